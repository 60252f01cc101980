package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/reloop/internal/model"
)

type PickupStore struct {
	db *sql.DB
}

func NewPickupStore(db *sql.DB) *PickupStore {
	return &PickupStore{db: db}
}

func scanPickup(s scanner) (*model.DoorstepPickup, error) {
	var p model.DoorstepPickup
	var items string
	var reminder sql.NullTime

	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.City, &p.ZipCode,
		&items, &p.ScheduledDate, &p.TimeSlot, &p.SpecialInstructions, &p.Status, &p.CreatedAt, &reminder)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
		return nil, fmt.Errorf("decode pickup items: %w", err)
	}
	if reminder.Valid {
		p.ReminderSentAt = &reminder.Time
	}
	return &p, nil
}

const pickupCols = `id, user_id, name, email, phone, address, city, zip_code, items, scheduled_date, time_slot, special_instructions, status, created_at, reminder_sent_at`

// Create stores a new pickup request with status Scheduled.
func (s *PickupStore) Create(ctx context.Context, p model.DoorstepPickup) (*model.DoorstepPickup, error) {
	if p.Items == nil {
		p.Items = []string{}
	}
	items, err := json.Marshal(p.Items)
	if err != nil {
		return nil, fmt.Errorf("encode pickup items: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO doorstep_pickups (user_id, name, email, phone, address, city, zip_code, items,
		   scheduled_date, time_slot, special_instructions, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Email, p.Phone, p.Address, p.City, p.ZipCode, string(items),
		p.ScheduledDate.UTC(), p.TimeSlot, p.SpecialInstructions, model.PickupScheduled, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert pickup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PickupStore) GetByID(ctx context.Context, id int64) (*model.DoorstepPickup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pickupCols+` FROM doorstep_pickups WHERE id = ?`, id)
	p, err := scanPickup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pickup: %w", err)
	}
	return p, nil
}

// ListByUser returns the user's pickups, newest request first.
func (s *PickupStore) ListByUser(ctx context.Context, userID int64) ([]model.DoorstepPickup, error) {
	return s.list(ctx,
		`SELECT `+pickupCols+` FROM doorstep_pickups WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// Cancel overwrites the pickup's status with Cancelled and touches nothing
// else. Only Scheduled and In Progress pickups can be cancelled.
func (s *PickupStore) Cancel(ctx context.Context, id int64) (*model.DoorstepPickup, error) {
	if err := s.transition(ctx, id, model.PickupCancelled); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetStatus is used by operators to move a pickup through its lifecycle:
// Scheduled to In Progress, and Scheduled or In Progress to Completed.
func (s *PickupStore) SetStatus(ctx context.Context, id int64, status model.PickupStatus) error {
	return s.transition(ctx, id, status)
}

// transition moves pickup id to status only if its current status may lead
// there. It returns ErrNotFound for an unknown id and ErrInvalidTransition
// otherwise.
func (s *PickupStore) transition(ctx context.Context, id int64, status model.PickupStatus) error {
	var n int64
	if sources := status.Sources(); len(sources) > 0 {
		args := []any{status, id}
		for _, src := range sources {
			args = append(args, src)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")
		result, err := s.db.ExecContext(ctx,
			`UPDATE doorstep_pickups SET status = ? WHERE id = ? AND status IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("set pickup status: %w", err)
		}
		n, _ = result.RowsAffected()
	}
	if n > 0 {
		return nil
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	return fmt.Errorf("move pickup %d from %q to %q: %w", id, p.Status, status, ErrInvalidTransition)
}

// CountUpcoming counts the user's Scheduled pickups from the start of now's
// UTC day, so a pickup booked for today still counts.
func (s *PickupStore) CountUpcoming(ctx context.Context, userID int64, now time.Time) (int, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM doorstep_pickups WHERE user_id = ? AND status = ? AND scheduled_date >= ?`,
		userID, model.PickupScheduled, today,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count upcoming pickups: %w", err)
	}
	return n, nil
}

// ListDueForReminder returns Scheduled pickups between from and to that have
// not had a reminder sent.
func (s *PickupStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]model.DoorstepPickup, error) {
	return s.list(ctx,
		`SELECT `+pickupCols+` FROM doorstep_pickups
		 WHERE status = ? AND reminder_sent_at IS NULL AND scheduled_date >= ? AND scheduled_date <= ?
		 ORDER BY scheduled_date ASC`,
		model.PickupScheduled, from.UTC(), to.UTC())
}

// MarkReminderSent records the reminder. It reports false if another caller
// already marked it.
func (s *PickupStore) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE doorstep_pickups SET reminder_sent_at = ? WHERE id = ? AND reminder_sent_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *PickupStore) list(ctx context.Context, query string, args ...any) ([]model.DoorstepPickup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pickups: %w", err)
	}
	defer rows.Close()

	pickups := []model.DoorstepPickup{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pickup: %w", err)
		}
		pickups = append(pickups, *p)
	}
	return pickups, rows.Err()
}
