package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/reloop/internal/model"
)

// ActivityStore reads the append-only activity log. Writes go through
// LedgerStore so that every entry is paired with its balance change.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(s scanner) (*model.Activity, error) {
	var a model.Activity
	var recycling int
	if err := s.Scan(&a.ID, &a.UserID, &a.Type, &a.Category, &a.Item, &a.Points, &recycling, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.IsRecycling = recycling != 0
	return &a, nil
}

const activityCols = `id, user_id, type, category, item, points, is_recycling, created_at`

// ListByUser returns every activity entry for the user, newest first.
func (s *ActivityStore) ListByUser(ctx context.Context, userID int64) ([]model.Activity, error) {
	return s.list(ctx, `SELECT `+activityCols+` FROM activities WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// Recent returns the user's latest limit entries.
func (s *ActivityStore) Recent(ctx context.Context, userID int64, limit int) ([]model.Activity, error) {
	return s.list(ctx, `SELECT `+activityCols+` FROM activities WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
}

func (s *ActivityStore) list(ctx context.Context, query string, args ...any) ([]model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// Totals sums the user's lifetime earnings. Items recycled counts entries
// flagged as recycling.
func (s *ActivityStore) Totals(ctx context.Context, userID int64) (*model.ActivityTotals, error) {
	var t model.ActivityTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0), COALESCE(SUM(is_recycling), 0), COUNT(*)
		 FROM activities WHERE user_id = ?`, userID,
	).Scan(&t.PointsEarned, &t.ItemsRecycled, &t.Activities)
	if err != nil {
		return nil, fmt.Errorf("activity totals: %w", err)
	}
	return &t, nil
}
