package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

type RecycleRequestStore struct {
	db *sql.DB
}

func NewRecycleRequestStore(db *sql.DB) *RecycleRequestStore {
	return &RecycleRequestStore{db: db}
}

func (s *RecycleRequestStore) Create(ctx context.Context, r model.RecycleRequest) (*model.RecycleRequest, error) {
	r.Status = model.RecycleRequestReceived
	r.CreatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO recycle_requests (user_id, kind, name, email, phone, organization, item_count, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Kind, r.Name, r.Email, r.Phone, r.Organization, r.ItemCount, r.Message, r.Status, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recycle request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return &r, nil
}

func (s *RecycleRequestStore) ListByUser(ctx context.Context, userID int64) ([]model.RecycleRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kind, name, email, phone, organization, item_count, message, status, created_at
		 FROM recycle_requests WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recycle requests: %w", err)
	}
	defer rows.Close()

	reqs := []model.RecycleRequest{}
	for rows.Next() {
		var r model.RecycleRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.Name, &r.Email, &r.Phone, &r.Organization,
			&r.ItemCount, &r.Message, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recycle request: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

