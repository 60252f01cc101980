package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

func newTestPickup(userID int64, when time.Time) model.DoorstepPickup {
	return model.DoorstepPickup{
		UserID:              userID,
		Name:                "Alice",
		Email:               "alice@example.com",
		Phone:               "555-0100",
		Address:             "1 Main St",
		City:                "Springfield",
		ZipCode:             "12345",
		Items:               []string{"computers", "cables"},
		ScheduledDate:       when,
		TimeSlot:            model.TimeSlots[0],
		SpecialInstructions: "Ring twice",
	}
}

func TestPickupCreate(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	u := createTestUser(t, db, "alice@example.com")

	when := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	p, err := ps.Create(context.Background(), newTestPickup(u.ID, when))
	if err != nil {
		t.Fatalf("create pickup: %v", err)
	}
	if p.Status != model.PickupScheduled {
		t.Errorf("status = %q, want %q", p.Status, model.PickupScheduled)
	}
	if !reflect.DeepEqual(p.Items, []string{"computers", "cables"}) {
		t.Errorf("items = %v", p.Items)
	}
	if !p.ScheduledDate.Equal(when) {
		t.Errorf("scheduled_date = %v, want %v", p.ScheduledDate, when)
	}
}

func TestPickupCancelChangesOnlyStatus(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	before, _ := ps.Create(ctx, newTestPickup(u.ID, time.Now().Add(48*time.Hour)))

	after, err := ps.Cancel(ctx, before.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if after.Status != model.PickupCancelled {
		t.Errorf("status = %q, want %q", after.Status, model.PickupCancelled)
	}

	want := *before
	want.Status = model.PickupCancelled
	if !reflect.DeepEqual(*after, want) {
		t.Errorf("after cancel = %+v\nwant %+v", *after, want)
	}
}

func TestPickupCancelNotFound(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")
	existing, _ := ps.Create(ctx, newTestPickup(u.ID, time.Now().Add(48*time.Hour)))

	if _, err := ps.Cancel(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	got, _ := ps.GetByID(ctx, existing.ID)
	if got.Status != model.PickupScheduled {
		t.Errorf("unrelated pickup status = %q, want %q", got.Status, model.PickupScheduled)
	}
}

func TestPickupCancelTransitions(t *testing.T) {
	tests := []struct {
		from    model.PickupStatus
		wantErr error
	}{
		{model.PickupScheduled, nil},
		{model.PickupInProgress, nil},
		{model.PickupCompleted, ErrInvalidTransition},
		{model.PickupCancelled, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			db := setupTestDB(t)
			ps := NewPickupStore(db)
			ctx := context.Background()
			u := createTestUser(t, db, "alice@example.com")
			p, _ := ps.Create(ctx, newTestPickup(u.ID, time.Now().Add(48*time.Hour)))
			if tt.from != model.PickupScheduled {
				if err := ps.SetStatus(ctx, p.ID, tt.from); err != nil {
					t.Fatalf("set status: %v", err)
				}
			}

			_, err := ps.Cancel(ctx, p.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPickupListByUserNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	first, _ := ps.Create(ctx, newTestPickup(alice.ID, time.Now().Add(24*time.Hour)))
	second, _ := ps.Create(ctx, newTestPickup(alice.ID, time.Now().Add(72*time.Hour)))
	ps.Create(ctx, newTestPickup(bob.ID, time.Now().Add(24*time.Hour)))

	list, err := ps.ListByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%d %d], want [%d %d]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestPickupReminderWindow(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")
	now := time.Now().UTC()

	soon, _ := ps.Create(ctx, newTestPickup(u.ID, now.Add(6*time.Hour)))
	ps.Create(ctx, newTestPickup(u.ID, now.Add(72*time.Hour)))

	due, err := ps.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != soon.ID {
		t.Fatalf("due = %+v, want only pickup %d", due, soon.ID)
	}

	marked, err := ps.MarkReminderSent(ctx, soon.ID)
	if err != nil || !marked {
		t.Fatalf("mark = %v, %v; want true, nil", marked, err)
	}
	if marked, _ := ps.MarkReminderSent(ctx, soon.ID); marked {
		t.Error("expected second mark to report false")
	}

	due, _ = ps.ListDueForReminder(ctx, now, now.Add(24*time.Hour))
	if len(due) != 0 {
		t.Errorf("due after reminder = %d, want 0", len(due))
	}

	n, err := ps.CountUpcoming(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("count upcoming: %v", err)
	}
	if n != 2 {
		t.Errorf("upcoming = %d, want 2", n)
	}
}

func TestPickupSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []model.PickupStatus
		to      model.PickupStatus
		wantErr error
	}{
		{"scheduled to in progress", nil, model.PickupInProgress, nil},
		{"scheduled to completed", nil, model.PickupCompleted, nil},
		{"in progress to completed", []model.PickupStatus{model.PickupInProgress}, model.PickupCompleted, nil},
		{"cancelled stays cancelled", []model.PickupStatus{model.PickupCancelled}, model.PickupInProgress, ErrInvalidTransition},
		{"cancelled cannot complete", []model.PickupStatus{model.PickupCancelled}, model.PickupCompleted, ErrInvalidTransition},
		{"completed cannot reopen", []model.PickupStatus{model.PickupCompleted}, model.PickupInProgress, ErrInvalidTransition},
		{"in progress cannot go back", []model.PickupStatus{model.PickupInProgress}, model.PickupScheduled, ErrInvalidTransition},
		{"unknown status", nil, model.PickupStatus("Lost"), ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			ps := NewPickupStore(db)
			ctx := context.Background()
			u := createTestUser(t, db, "alice@example.com")
			p, _ := ps.Create(ctx, newTestPickup(u.ID, time.Now().Add(48*time.Hour)))
			for _, step := range tt.path {
				if err := ps.SetStatus(ctx, p.ID, step); err != nil {
					t.Fatalf("set status %q: %v", step, err)
				}
			}
			before, _ := ps.GetByID(ctx, p.ID)

			err := ps.SetStatus(ctx, p.ID, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			got, _ := ps.GetByID(ctx, p.ID)
			want := before.Status
			if tt.wantErr == nil {
				want = tt.to
			}
			if got.Status != want {
				t.Errorf("status = %q, want %q", got.Status, want)
			}
		})
	}
}

func TestPickupSetStatusNotFound(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)

	err := ps.SetStatus(context.Background(), 999, model.PickupInProgress)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPickupCountUpcomingIncludesToday(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPickupStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	now := time.Date(2026, 5, 14, 15, 30, 0, 0, time.UTC)
	today := time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC)
	ps.Create(ctx, newTestPickup(u.ID, today))
	ps.Create(ctx, newTestPickup(u.ID, today.AddDate(0, 0, -1)))
	cancelled, _ := ps.Create(ctx, newTestPickup(u.ID, today.AddDate(0, 0, 2)))
	ps.Cancel(ctx, cancelled.ID)

	n, err := ps.CountUpcoming(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("count upcoming: %v", err)
	}
	if n != 1 {
		t.Errorf("upcoming = %d, want 1 (today's pickup only)", n)
	}
}
