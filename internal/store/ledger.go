package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

// LedgerStore owns every write to points_balances. Each credit or debit is
// committed together with the activity or redemption row that explains it.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanBalance(s scanner) (*model.Balance, error) {
	var b model.Balance
	if err := s.Scan(&b.UserID, &b.Balance, &b.Version, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Balance returns the user's current balance. A user with no balance row
// has a zero balance at version 0.
func (s *LedgerStore) Balance(ctx context.Context, userID int64) (*model.Balance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, balance, version, updated_at FROM points_balances WHERE user_id = ?`, userID,
	)
	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return &model.Balance{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Earn appends an activity entry and credits its points in one transaction.
func (s *LedgerStore) Earn(ctx context.Context, e model.Earning) (*model.Activity, *model.Balance, error) {
	acts, bal, err := s.EarnMany(ctx, e.UserID, []model.Earning{e})
	if err != nil {
		return nil, nil, err
	}
	return &acts[0], bal, nil
}

// EarnMany appends one activity per earning and credits their sum in one
// transaction. Every earning must belong to userID.
func (s *LedgerStore) EarnMany(ctx context.Context, userID int64, earnings []model.Earning) ([]model.Activity, *model.Balance, error) {
	if len(earnings) == 0 {
		return nil, nil, fmt.Errorf("earn: no entries")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	acts, total, err := insertActivities(ctx, tx, userID, earnings)
	if err != nil {
		return nil, nil, err
	}
	bal, err := credit(ctx, tx, userID, total)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit earn: %w", err)
	}
	return acts, bal, nil
}

// Spend debits sp.Cost and appends a Pending redemption in one transaction.
// The debit is conditional on the balance covering the cost; when it does
// not, ErrInsufficientPoints is returned and nothing is written.
func (s *LedgerStore) Spend(ctx context.Context, sp model.Spend) (*model.Redemption, *model.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`UPDATE points_balances
		 SET balance = balance - ?, version = version + 1, updated_at = ?
		 WHERE user_id = ? AND balance >= ?
		 RETURNING user_id, balance, version, updated_at`,
		sp.Cost, now, sp.UserID, sp.Cost,
	)
	bal, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil, ErrInsufficientPoints
	}
	if err != nil {
		return nil, nil, fmt.Errorf("debit balance: %w", err)
	}

	var rewardID sql.NullInt64
	if sp.RewardID != nil {
		rewardID = sql.NullInt64{Int64: *sp.RewardID, Valid: true}
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO redemptions (user_id, reward_id, reward_name, category, points_spent, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.UserID, rewardID, sp.RewardName, sp.Category, sp.Cost, model.RedemptionPending, now, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit spend: %w", err)
	}

	return &model.Redemption{
		ID:          id,
		UserID:      sp.UserID,
		RewardID:    sp.RewardID,
		RewardName:  sp.RewardName,
		Category:    sp.Category,
		PointsSpent: sp.Cost,
		Status:      model.RedemptionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, bal, nil
}

// AwardQuiz marks the attempt's points as awarded and credits e in the same
// transaction. It reports false, with a nil balance, if the attempt was
// already awarded. A zero-point earning only flips the flag.
func (s *LedgerStore) AwardQuiz(ctx context.Context, attemptID string, e model.Earning) (bool, *model.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE quiz_attempts SET points_awarded = 1 WHERE id = ? AND user_id = ? AND points_awarded = 0`,
		attemptID, e.UserID,
	)
	if err != nil {
		return false, nil, fmt.Errorf("flag quiz award: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return false, nil, nil
	}

	var bal *model.Balance
	if e.Points > 0 {
		if _, _, err := insertActivities(ctx, tx, e.UserID, []model.Earning{e}); err != nil {
			return false, nil, err
		}
		if bal, err = credit(ctx, tx, e.UserID, e.Points); err != nil {
			return false, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("commit quiz award: %w", err)
	}
	return true, bal, nil
}

func insertActivities(ctx context.Context, tx *sql.Tx, userID int64, earnings []model.Earning) ([]model.Activity, int, error) {
	now := time.Now().UTC()
	acts := make([]model.Activity, 0, len(earnings))
	total := 0
	for _, e := range earnings {
		if e.UserID != userID {
			return nil, 0, fmt.Errorf("earn: entry for user %d in batch for user %d", e.UserID, userID)
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO activities (user_id, type, category, item, points, is_recycling, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, e.Type, e.Category, e.Item, e.Points, boolToInt(e.IsRecycling), now,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("insert activity: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, 0, fmt.Errorf("last insert id: %w", err)
		}
		acts = append(acts, model.Activity{
			ID:          id,
			UserID:      userID,
			Type:        e.Type,
			Category:    e.Category,
			Item:        e.Item,
			Points:      e.Points,
			IsRecycling: e.IsRecycling,
			CreatedAt:   now,
		})
		total += e.Points
	}
	return acts, total, nil
}

func credit(ctx context.Context, tx *sql.Tx, userID int64, amount int) (*model.Balance, error) {
	row := tx.QueryRowContext(ctx,
		`INSERT INTO points_balances (user_id, balance, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   balance = balance + excluded.balance,
		   version = version + 1,
		   updated_at = excluded.updated_at
		 RETURNING user_id, balance, version, updated_at`,
		userID, amount, time.Now().UTC(),
	)
	bal, err := scanBalance(row)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return bal, nil
}
