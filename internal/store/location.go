package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/reloop/internal/model"
)

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationCols = `id, name, type, address, city, zip_code, phone, hours, accepts, latitude, longitude`

func scanLocation(s scanner) (*model.Location, error) {
	var l model.Location
	var accepts string
	err := s.Scan(&l.ID, &l.Name, &l.Type, &l.Address, &l.City, &l.ZipCode, &l.Phone, &l.Hours, &accepts, &l.Latitude, &l.Longitude)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(accepts), &l.Accepts); err != nil {
		return nil, fmt.Errorf("decode accepts: %w", err)
	}
	return &l, nil
}

func (s *LocationStore) Create(ctx context.Context, l model.Location) (*model.Location, error) {
	if l.Accepts == nil {
		l.Accepts = []string{}
	}
	accepts, err := json.Marshal(l.Accepts)
	if err != nil {
		return nil, fmt.Errorf("encode accepts: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (name, type, address, city, zip_code, phone, hours, accepts, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.Type, l.Address, l.City, l.ZipCode, l.Phone, l.Hours, string(accepts), l.Latitude, l.Longitude,
	)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	l.ID = id
	return &l, nil
}

func (s *LocationStore) GetByID(ctx context.Context, id int64) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationCols+` FROM locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

// List returns locations matching search (name, city or address,
// case-insensitive) and locType. Empty arguments match everything.
func (s *LocationStore) List(ctx context.Context, search, locType string) ([]model.Location, error) {
	query := `SELECT ` + locationCols + ` FROM locations WHERE 1 = 1`
	var args []any
	if q := strings.TrimSpace(search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(city) LIKE ? OR LOWER(address) LIKE ?)`
		args = append(args, like, like, like)
	}
	if locType != "" {
		query += ` AND type = ?`
		args = append(args, locType)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := []model.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

func (s *LocationStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return n, nil
}
