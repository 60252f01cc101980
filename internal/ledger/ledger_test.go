package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupLedger(t *testing.T, feed Feed) (*Ledger, *sql.DB, int64) {
	t.Helper()
	db := setupDB(t)
	u, err := store.NewUserStore(db).Create(context.Background(), "alice@example.com", "Alice", "hunter22")
	require.NoError(t, err)
	l := New(store.NewLedgerStore(db), store.NewRewardStore(db), feed, slog.Default())
	return l, db, u.ID
}

func setupRedisFeed(t *testing.T) *RedisFeed {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	feed := NewRedisFeed(client, slog.Default())
	require.NoError(t, feed.Start(context.Background()))
	t.Cleanup(feed.Stop)
	return feed
}

// recorder collects balances delivered to a subscription callback.
type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) record(v int) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) last() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0, false
	}
	return r.values[len(r.values)-1], true
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func waitForBalance(t *testing.T, r *recorder, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, ok := r.last()
		return ok && v == want
	}, 2*time.Second, 5*time.Millisecond, "never observed balance %d, saw %v", want, r.snapshot())
}

func TestSubscriberSeesAddedPoints(t *testing.T) {
	feeds := map[string]func(t *testing.T) Feed{
		"memory": func(t *testing.T) Feed { return NewMemoryFeed() },
		"redis":  func(t *testing.T) Feed { return setupRedisFeed(t) },
	}
	for name, newFeed := range feeds {
		t.Run(name, func(t *testing.T) {
			l, _, userID := setupLedger(t, newFeed(t))
			ctx := context.Background()

			_, err := l.AddPoints(ctx, userID, 15, "Recycled", "Batteries")
			require.NoError(t, err)

			rec := &recorder{}
			unsubscribe, err := l.SubscribeToUserPoints(ctx, userID, rec.record)
			require.NoError(t, err)
			defer unsubscribe()

			waitForBalance(t, rec, 15)

			_, err = l.AddPoints(ctx, userID, 30, "Recycled", "Electronics")
			require.NoError(t, err)

			waitForBalance(t, rec, 45)
		})
	}
}

func TestRedeemMoreThanBalanceChangesNothing(t *testing.T) {
	l, db, userID := setupLedger(t, NewMemoryFeed())
	ctx := context.Background()

	_, err := l.AddPoints(ctx, userID, 40, "Recycled", "Phones")
	require.NoError(t, err)

	r, err := l.RedeemPoints(ctx, userID, 41, "Wireless Earbuds")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Nil(t, r)

	bal, err := l.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 40, bal)

	redemptions, err := store.NewRedemptionStore(db).ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, redemptions)
}

func TestRedeemPoints(t *testing.T) {
	l, _, userID := setupLedger(t, NewMemoryFeed())
	ctx := context.Background()

	_, err := l.AddPoints(ctx, userID, 100, "Recycled", "Computers")
	require.NoError(t, err)

	r, err := l.RedeemPoints(ctx, userID, 100, "Plant a Tree")
	require.NoError(t, err)
	assert.Equal(t, model.RedemptionPending, r.Status)
	assert.Equal(t, 100, r.PointsSpent)

	bal, err := l.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestRedeemReward(t *testing.T) {
	l, db, userID := setupLedger(t, NewMemoryFeed())
	ctx := context.Background()
	rewards := store.NewRewardStore(db)

	active, err := rewards.Create(ctx, model.Reward{Name: "Eco Tote", Category: "Merch", PointCost: 50, Active: true})
	require.NoError(t, err)
	retired, err := rewards.Create(ctx, model.Reward{Name: "Old Mug", Category: "Merch", PointCost: 10, Active: false})
	require.NoError(t, err)

	_, err = l.AddPoints(ctx, userID, 60, "Recycled", "Tablets")
	require.NoError(t, err)

	r, err := l.RedeemReward(ctx, userID, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eco Tote", r.RewardName)
	require.NotNil(t, r.RewardID)
	assert.Equal(t, active.ID, *r.RewardID)

	_, err = l.RedeemReward(ctx, userID, retired.ID)
	assert.ErrorIs(t, err, ErrRewardUnavailable)
	_, err = l.RedeemReward(ctx, userID, 999)
	assert.ErrorIs(t, err, ErrRewardUnavailable)

	bal, _ := l.Balance(ctx, userID)
	assert.Equal(t, 10, bal)
}

func TestAddPointsValidation(t *testing.T) {
	l, _, userID := setupLedger(t, NewMemoryFeed())
	ctx := context.Background()

	_, err := l.AddPoints(ctx, userID, 0, "Recycled", "Electronics")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.AddPoints(ctx, userID, -5, "Recycled", "Electronics")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.AddPoints(ctx, userID, 5, "", "Electronics")
	assert.ErrorIs(t, err, ErrInvalidEntry)
	_, err = l.RedeemPoints(ctx, userID, 0, "Nothing")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	feed := NewMemoryFeed()
	l, _, userID := setupLedger(t, feed)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe, err := l.SubscribeToUserPoints(ctx, userID, rec.record)
	require.NoError(t, err)
	waitForBalance(t, rec, 0)
	assert.Equal(t, 1, feed.SubscriberCount(userID))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, feed.SubscriberCount(userID))

	_, err = l.AddPoints(ctx, userID, 10, "Recycled", "Cables")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int{0}, rec.snapshot())
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	feed := NewMemoryFeed()
	l, _, userID := setupLedger(t, feed)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := l.SubscribeToUserPoints(ctx, userID, func(int) {})
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return feed.SubscriberCount(userID) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSlowSubscriberSeesLatest(t *testing.T) {
	l, _, userID := setupLedger(t, NewMemoryFeed())
	ctx := context.Background()

	release := make(chan struct{})
	rec := &recorder{}
	unsubscribe, err := l.SubscribeToUserPoints(ctx, userID, func(v int) {
		<-release
		rec.record(v)
	})
	require.NoError(t, err)
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		_, err := l.AddPoints(ctx, userID, 1, "Recycled", "Cables")
		require.NoError(t, err)
	}
	close(release)

	waitForBalance(t, rec, 10)
	values := rec.snapshot()
	for i := 1; i < len(values); i++ {
		assert.Greater(t, values[i], values[i-1], "balances delivered out of order: %v", values)
	}
}

func TestSubscriptionIgnoresStaleVersions(t *testing.T) {
	s := &subscription{lastVersion: -1, notify: make(chan struct{}, 1), done: make(chan struct{})}

	s.offer(model.Balance{Balance: 30, Version: 3})
	s.offer(model.Balance{Balance: 20, Version: 2})

	require.NotNil(t, s.pending)
	assert.Equal(t, 30, s.pending.Balance)
	assert.Equal(t, int64(3), s.lastVersion)
}
