package store

import (
	"context"
	"errors"
	"testing"
)

func TestPushSubscriptionUpsert(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	first, err := ps.CreateSubscription(ctx, alice.ID, "https://push.example/1", "p1", "a1", "Laptop")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := ps.CreateSubscription(ctx, bob.ID, "https://push.example/1", "p2", "a2", "Phone")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d", second.ID, first.ID)
	}
	if second.UserID != bob.ID || second.P256dhKey != "p2" {
		t.Errorf("subscription = %+v, want moved to bob with new keys", second)
	}

	subs, _ := ps.ListByUser(ctx, alice.ID)
	if len(subs) != 0 {
		t.Errorf("alice subscriptions = %d, want 0", len(subs))
	}
}

func TestPushSubscriptionDelete(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	sub, _ := ps.CreateSubscription(ctx, alice.ID, "https://push.example/1", "p", "a", "")

	if err := ps.DeleteSubscription(ctx, sub.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for another user", err)
	}
	if err := ps.DeleteSubscription(ctx, sub.ID, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, _ := ps.ListByUser(ctx, alice.ID)
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}
