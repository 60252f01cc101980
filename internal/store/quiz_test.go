package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/google/uuid"
)

func TestQuizSaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQuizStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	a := &model.QuizAttempt{
		ID:     uuid.NewString(),
		UserID: u.ID,
		Topic:  "batteries",
		Questions: []model.QuizQuestion{
			{Question: "Which bin?", Options: []string{"Trash", "E-waste"}, CorrectAnswer: "E-waste"},
		},
		Answers: []model.QuizAnswer{{}},
		State:   model.QuizReady,
	}
	if err := qs.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	a.Answers[0] = model.QuizAnswer{Selected: "E-waste", Correct: true}
	a.Score = 1
	a.State = model.QuizCompleted
	a.CompletedAt = &now
	if err := qs.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := qs.Get(ctx, u.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 1 || got.State != model.QuizCompleted {
		t.Errorf("score = %d, state = %q", got.Score, got.State)
	}
	if got.Answers[0].Selected != "E-waste" {
		t.Errorf("answer = %+v", got.Answers[0])
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at")
	}
}

func TestQuizGetScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	qs := NewQuizStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	a := &model.QuizAttempt{ID: uuid.NewString(), UserID: alice.ID, State: model.QuizReady}
	qs.Create(ctx, a)

	got, err := qs.Get(ctx, bob.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for another user's attempt")
	}
}
