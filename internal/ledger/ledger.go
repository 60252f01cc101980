// Package ledger is the only writer of point balances. Every mutation is one
// SQL transaction; committed balances are then published on a Feed so that
// live subscribers see them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
)

var (
	ErrInsufficientPoints = store.ErrInsufficientPoints
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidEntry       = errors.New("label and category are required")
	ErrRewardUnavailable  = errors.New("reward unavailable")
)

type Ledger struct {
	store   *store.LedgerStore
	rewards *store.RewardStore
	feed    Feed
	logger  *slog.Logger
}

func New(ls *store.LedgerStore, rewards *store.RewardStore, feed Feed, logger *slog.Logger) *Ledger {
	return &Ledger{store: ls, rewards: rewards, feed: feed, logger: logger}
}

// AddPoints credits amount to the user and records a recycling activity
// labelled label in category.
func (l *Ledger) AddPoints(ctx context.Context, userID int64, amount int, label, category string) (*model.Activity, error) {
	return l.Earn(ctx, model.Earning{
		UserID:      userID,
		Type:        label,
		Category:    category,
		Points:      amount,
		IsRecycling: true,
	})
}

func (l *Ledger) Earn(ctx context.Context, e model.Earning) (*model.Activity, error) {
	if err := validateEarning(e); err != nil {
		return nil, err
	}
	act, bal, err := l.store.Earn(ctx, e)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, bal)
	return act, nil
}

// EarnMany credits several earnings for one user in a single transaction.
func (l *Ledger) EarnMany(ctx context.Context, userID int64, earnings []model.Earning) ([]model.Activity, error) {
	if len(earnings) == 0 {
		return nil, ErrInvalidAmount
	}
	for _, e := range earnings {
		if err := validateEarning(e); err != nil {
			return nil, err
		}
	}
	acts, bal, err := l.store.EarnMany(ctx, userID, earnings)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, bal)
	return acts, nil
}

// RedeemPoints debits cost and records a Pending redemption of rewardName.
// It fails with ErrInsufficientPoints, changing nothing, when the balance
// does not cover cost.
func (l *Ledger) RedeemPoints(ctx context.Context, userID int64, cost int, rewardName string) (*model.Redemption, error) {
	return l.spend(ctx, model.Spend{UserID: userID, RewardName: rewardName, Cost: cost})
}

// RedeemReward redeems an active catalog reward at its listed cost.
func (l *Ledger) RedeemReward(ctx context.Context, userID, rewardID int64) (*model.Redemption, error) {
	reward, err := l.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil || !reward.Active {
		return nil, ErrRewardUnavailable
	}
	return l.spend(ctx, model.Spend{
		UserID:     userID,
		RewardID:   &reward.ID,
		RewardName: reward.Name,
		Category:   reward.Category,
		Cost:       reward.PointCost,
	})
}

func (l *Ledger) spend(ctx context.Context, sp model.Spend) (*model.Redemption, error) {
	if sp.Cost <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(sp.RewardName) == "" {
		return nil, ErrInvalidEntry
	}
	r, bal, err := l.store.Spend(ctx, sp)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, bal)
	return r, nil
}

// AwardQuiz credits a completed quiz attempt at most once. It reports
// whether this call performed the award.
func (l *Ledger) AwardQuiz(ctx context.Context, attemptID string, e model.Earning) (bool, error) {
	if e.Points < 0 {
		return false, ErrInvalidAmount
	}
	awarded, bal, err := l.store.AwardQuiz(ctx, attemptID, e)
	if err != nil {
		return false, err
	}
	if bal != nil {
		l.publish(ctx, bal)
	}
	return awarded, nil
}

func (l *Ledger) Balance(ctx context.Context, userID int64) (int, error) {
	b, err := l.store.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.Balance, nil
}

func (l *Ledger) publish(ctx context.Context, b *model.Balance) {
	if err := l.feed.Publish(context.WithoutCancel(ctx), *b); err != nil {
		l.logger.Warn("publish balance", "user_id", b.UserID, "version", b.Version, "error", err)
	}
}

func validateEarning(e model.Earning) error {
	if e.Points <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Type) == "" || strings.TrimSpace(e.Category) == "" {
		return ErrInvalidEntry
	}
	return nil
}

// SubscribeToUserPoints calls cb with the user's current balance and then
// with every committed change, one call at a time. A slow callback skips
// intermediate balances but always sees the latest. The subscription ends
// when the returned function is called or ctx is done; the function is
// safe to call more than once.
func (l *Ledger) SubscribeToUserPoints(ctx context.Context, userID int64, cb func(balance int)) (func(), error) {
	s := &subscription{
		cb:          cb,
		lastVersion: -1,
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	// Subscribe before reading so no commit falls between the read and
	// the first published change.
	cancelFeed := l.feed.Subscribe(userID, s.offer)

	initial, err := l.store.Balance(ctx, userID)
	if err != nil {
		cancelFeed()
		return nil, fmt.Errorf("read initial balance: %w", err)
	}
	s.offer(*initial)

	unsubscribe := func() {
		s.once.Do(func() {
			cancelFeed()
			close(s.done)
		})
	}

	go s.run()
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-s.done:
		}
	}()

	return unsubscribe, nil
}

// subscription is a mailbox of size one. offer keeps only the newest
// balance by version; run delivers it to cb.
type subscription struct {
	cb func(int)

	mu          sync.Mutex
	pending     *model.Balance
	lastVersion int64

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) offer(b model.Balance) {
	s.mu.Lock()
	if b.Version <= s.lastVersion {
		s.mu.Unlock()
		return
	}
	s.lastVersion = b.Version
	s.pending = &b
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		s.mu.Lock()
		b := s.pending
		s.pending = nil
		s.mu.Unlock()
		if b == nil {
			continue
		}

		select {
		case <-s.done:
			return
		default:
		}
		s.cb(b.Balance)
	}
}
