package model

import "time"

type Activity struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Item        string    `json:"item"`
	Points      int       `json:"points"`
	IsRecycling bool      `json:"is_recycling"`
	CreatedAt   time.Time `json:"created_at"`
}

// Earning is one credit to a user's balance together with the activity
// entry that records it.
type Earning struct {
	UserID      int64
	Type        string
	Category    string
	Item        string
	Points      int
	IsRecycling bool
}

type Balance struct {
	UserID    int64     `json:"user_id"`
	Balance   int       `json:"balance"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ActivityTotals struct {
	PointsEarned  int `json:"points_earned"`
	ItemsRecycled int `json:"items_recycled"`
	Activities    int `json:"activities"`
}
