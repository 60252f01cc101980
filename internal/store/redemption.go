package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

// RedemptionStore reads redemption history and advances fulfillment status.
// New redemptions are written by LedgerStore.Spend.
type RedemptionStore struct {
	db *sql.DB
}

func NewRedemptionStore(db *sql.DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

func scanRedemption(s scanner) (*model.Redemption, error) {
	var r model.Redemption
	var rewardID sql.NullInt64

	err := s.Scan(&r.ID, &r.UserID, &rewardID, &r.RewardName, &r.Category, &r.PointsSpent, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if rewardID.Valid {
		r.RewardID = &rewardID.Int64
	}
	return &r, nil
}

const redemptionCols = `id, user_id, reward_id, reward_name, category, points_spent, status, created_at, updated_at`

func (s *RedemptionStore) GetByID(ctx context.Context, id int64) (*model.Redemption, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// ListByUser returns the user's redemptions, newest first.
func (s *RedemptionStore) ListByUser(ctx context.Context, userID int64) ([]model.Redemption, error) {
	return s.list(ctx,
		`SELECT `+redemptionCols+` FROM redemptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListByStatus returns redemptions in status, oldest first.
func (s *RedemptionStore) ListByStatus(ctx context.Context, status model.RedemptionStatus) ([]model.Redemption, error) {
	return s.list(ctx,
		`SELECT `+redemptionCols+` FROM redemptions WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
}

func (s *RedemptionStore) list(ctx context.Context, query string, args ...any) ([]model.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []model.Redemption{}
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// Advance moves a redemption one step along Pending, Shipped, Completed.
// The update is conditional on the status read, so two concurrent advances
// cannot skip a step.
func (s *RedemptionStore) Advance(ctx context.Context, id int64) (*model.Redemption, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	next, err := r.Status.Next()
	if err != nil {
		return nil, fmt.Errorf("advance redemption %d: %w", id, ErrInvalidTransition)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE redemptions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		next, time.Now().UTC(), id, r.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("advance redemption: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("advance redemption %d: %w", id, ErrInvalidTransition)
	}
	return s.GetByID(ctx, id)
}
