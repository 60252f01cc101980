package model

import (
	"slices"
	"time"
)

type PickupStatus string

const (
	PickupScheduled  PickupStatus = "Scheduled"
	PickupInProgress PickupStatus = "In Progress"
	PickupCompleted  PickupStatus = "Completed"
	PickupCancelled  PickupStatus = "Cancelled"
)

// pickupSources lists, for each status, the statuses a pickup may enter it
// from. Scheduled is only ever set on creation.
var pickupSources = map[PickupStatus][]PickupStatus{
	PickupInProgress: {PickupScheduled},
	PickupCompleted:  {PickupScheduled, PickupInProgress},
	PickupCancelled:  {PickupScheduled, PickupInProgress},
}

// Sources returns the statuses a pickup may move to s from.
func (s PickupStatus) Sources() []PickupStatus {
	return slices.Clone(pickupSources[s])
}

// CanTransition reports whether a pickup in status s may move to next.
func (s PickupStatus) CanTransition(next PickupStatus) bool {
	return slices.Contains(pickupSources[next], s)
}

// Cancellable reports whether a pickup in status s may still be cancelled.
func (s PickupStatus) Cancellable() bool {
	return s.CanTransition(PickupCancelled)
}

// TimeSlots are the pickup windows offered on the scheduling form.
var TimeSlots = []string{
	"9:00 AM - 12:00 PM",
	"12:00 PM - 3:00 PM",
	"3:00 PM - 6:00 PM",
}

// PickupItemTypes are the item-type identifiers a pickup may list.
var PickupItemTypes = []string{
	"computers",
	"phones",
	"tablets",
	"tvs",
	"appliances",
	"batteries",
	"cables",
	"other",
}

type DoorstepPickup struct {
	ID                  int64        `json:"id"`
	UserID              int64        `json:"user_id"`
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	Phone               string       `json:"phone"`
	Address             string       `json:"address"`
	City                string       `json:"city"`
	ZipCode             string       `json:"zip_code"`
	Items               []string     `json:"items"`
	ScheduledDate       time.Time    `json:"scheduled_date"`
	TimeSlot            string       `json:"time_slot"`
	SpecialInstructions string       `json:"special_instructions"`
	Status              PickupStatus `json:"status"`
	CreatedAt           time.Time    `json:"created_at"`
	ReminderSentAt      *time.Time   `json:"reminder_sent_at,omitempty"`
}
