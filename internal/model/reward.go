package model

import (
	"fmt"
	"time"
)

type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "Pending"
	RedemptionShipped   RedemptionStatus = "Shipped"
	RedemptionCompleted RedemptionStatus = "Completed"
)

// Next returns the fulfillment status that follows s.
func (s RedemptionStatus) Next() (RedemptionStatus, error) {
	switch s {
	case RedemptionPending:
		return RedemptionShipped, nil
	case RedemptionShipped:
		return RedemptionCompleted, nil
	default:
		return "", fmt.Errorf("no status after %q", s)
	}
}

type Redemption struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	RewardID    *int64           `json:"reward_id,omitempty"`
	RewardName  string           `json:"reward_name"`
	Category    string           `json:"category"`
	PointsSpent int              `json:"points_spent"`
	Status      RedemptionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Spend describes one redemption debit against a user's balance.
type Spend struct {
	UserID     int64
	RewardID   *int64
	RewardName string
	Category   string
	Cost       int
}
