package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/reloop/internal/backup"
	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { dbFlag, logLevelFlag = "", "" })
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seedRedemption creates a user with one Pending redemption in a database
// file and returns the path and redemption id.
func seedRedemption(t *testing.T) (string, int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reloop.db")
	db, err := database.Open(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	u, err := store.NewUserStore(db).Create(ctx, "alice@example.com", "Alice", "correct horse")
	require.NoError(t, err)
	l := ledger.New(store.NewLedgerStore(db), store.NewRewardStore(db), ledger.NewMemoryFeed(), slog.Default())
	_, err = l.AddPoints(ctx, u.ID, 200, "Recycled laptop", "Computers")
	require.NoError(t, err)
	r, err := l.RedeemPoints(ctx, u.ID, 150, "Reusable bottle")
	require.NoError(t, err)
	return path, r.ID
}

func TestRedemptionsAdvance(t *testing.T) {
	path, id := seedRedemption(t)
	idArg := strconv.FormatInt(id, 10)

	out, err := runCtl(t, "--db", path, "redemptions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Reusable bottle")

	out, err = runCtl(t, "--db", path, "redemptions", "advance", idArg)
	require.NoError(t, err)
	assert.Contains(t, out, string(model.RedemptionShipped))

	out, err = runCtl(t, "--db", path, "redemptions", "advance", idArg)
	require.NoError(t, err)
	assert.Contains(t, out, string(model.RedemptionCompleted))

	_, err = runCtl(t, "--db", path, "redemptions", "advance", idArg)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	_, err = runCtl(t, "--db", path, "redemptions", "advance", "abc")
	assert.Error(t, err)
}

func TestPickupStatusRejectsCancel(t *testing.T) {
	path, _ := seedRedemption(t)
	_, err := runCtl(t, "--db", path, "pickups", "status", "1", "Cancelled")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "cancel their own"))
}

func TestBackupRunDisabled(t *testing.T) {
	path, _ := seedRedemption(t)
	_, err := runCtl(t, "--db", path, "backup", "run")
	assert.ErrorIs(t, err, backup.ErrDisabled)
}

func TestVAPIDGenerate(t *testing.T) {
	out, err := runCtl(t, "vapid", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "RELOOP_VAPID_PUBLIC_KEY=")
	assert.Contains(t, out, "RELOOP_VAPID_PRIVATE_KEY=")
}

func TestQuizPreviewFallback(t *testing.T) {
	t.Setenv("RELOOP_GEMINI_API_KEY", "")
	path, _ := seedRedemption(t)
	out, err := runCtl(t, "--db", path, "quiz", "preview")
	require.NoError(t, err)
	assert.Contains(t, out, "correctAnswer:")
}

func TestRewardsDisable(t *testing.T) {
	path, _ := seedRedemption(t)
	db, err := database.Open(path)
	require.NoError(t, err)
	r, err := store.NewRewardStore(db).Create(context.Background(), model.Reward{
		Name: "Solar charger", Category: "Gadgets", PointCost: 400, Active: true,
	})
	require.NoError(t, err)
	db.Close()
	idArg := strconv.FormatInt(r.ID, 10)

	out, err := runCtl(t, "--db", path, "rewards", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Solar charger")

	_, err = runCtl(t, "--db", path, "rewards", "disable", idArg)
	require.NoError(t, err)
	out, err = runCtl(t, "--db", path, "rewards", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Solar charger")

	_, err = runCtl(t, "--db", path, "rewards", "enable", "9999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPickupStatusKeepsCancelledPickup(t *testing.T) {
	path, _ := seedRedemption(t)
	db, err := database.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	ps := store.NewPickupStore(db)
	p, err := ps.Create(ctx, model.DoorstepPickup{
		UserID: 1, Name: "Alice", Email: "alice@example.com", Address: "1 Main St",
		City: "Springfield", ZipCode: "12345", Items: []string{"phones"},
		ScheduledDate: time.Now().AddDate(0, 0, 2), TimeSlot: model.TimeSlots[0],
	})
	require.NoError(t, err)
	_, err = ps.Cancel(ctx, p.ID)
	require.NoError(t, err)
	db.Close()

	idArg := strconv.FormatInt(p.ID, 10)
	_, err = runCtl(t, "--db", path, "pickups", "status", idArg, string(model.PickupInProgress))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	_, err = runCtl(t, "--db", path, "pickups", "status", idArg, string(model.PickupCompleted))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	db, err = database.Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := store.NewPickupStore(db).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PickupCancelled, got.Status)
}
