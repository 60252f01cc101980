package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

type QuizStore struct {
	db *sql.DB
}

func NewQuizStore(db *sql.DB) *QuizStore {
	return &QuizStore{db: db}
}

const quizCols = `id, user_id, topic, questions, answers, current_index, score, state, degraded, notice, points_awarded, created_at, completed_at`

func scanQuiz(s scanner) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	var questions, answers string
	var degraded, awarded int
	var completed sql.NullTime

	err := s.Scan(&a.ID, &a.UserID, &a.Topic, &questions, &answers, &a.CurrentIndex, &a.Score,
		&a.State, &degraded, &a.Notice, &awarded, &a.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &a.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	a.Degraded = degraded != 0
	a.PointsAwarded = awarded != 0
	if completed.Valid {
		a.CompletedAt = &completed.Time
	}
	return &a, nil
}

func encodeQuiz(a *model.QuizAttempt) (string, string, error) {
	q, err := json.Marshal(a.Questions)
	if err != nil {
		return "", "", fmt.Errorf("encode questions: %w", err)
	}
	ans, err := json.Marshal(a.Answers)
	if err != nil {
		return "", "", fmt.Errorf("encode answers: %w", err)
	}
	return string(q), string(ans), nil
}

func (s *QuizStore) Create(ctx context.Context, a *model.QuizAttempt) error {
	questions, answers, err := encodeQuiz(a)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (id, user_id, topic, questions, answers, current_index, score, state, degraded, notice, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Topic, questions, answers, a.CurrentIndex, a.Score, a.State,
		boolToInt(a.Degraded), a.Notice, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}
	return nil
}

// Get returns the user's attempt with id, or nil.
func (s *QuizStore) Get(ctx context.Context, userID int64, id string) (*model.QuizAttempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quiz_attempts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanQuiz(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz attempt: %w", err)
	}
	return a, nil
}

// Save writes the attempt's progress. points_awarded is owned by
// LedgerStore.AwardQuiz and is never written here.
func (s *QuizStore) Save(ctx context.Context, a *model.QuizAttempt) error {
	questions, answers, err := encodeQuiz(a)
	if err != nil {
		return err
	}
	var completed sql.NullTime
	if a.CompletedAt != nil {
		completed = sql.NullTime{Time: a.CompletedAt.UTC(), Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET questions = ?, answers = ?, current_index = ?, score = ?, state = ?,
		   degraded = ?, notice = ?, completed_at = ?
		 WHERE id = ? AND user_id = ?`,
		questions, answers, a.CurrentIndex, a.Score, a.State, boolToInt(a.Degraded), a.Notice, completed,
		a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("save quiz attempt: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
