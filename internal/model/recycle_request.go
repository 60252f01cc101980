package model

import "time"

type RecycleRequestKind string

const (
	RequestBusiness  RecycleRequestKind = "business"
	RequestEducation RecycleRequestKind = "education"
	RequestMailIn    RecycleRequestKind = "mail-in"
)

// Valid reports whether k is one of the known request forms.
func (k RecycleRequestKind) Valid() bool {
	switch k {
	case RequestBusiness, RequestEducation, RequestMailIn:
		return true
	}
	return false
}

const RecycleRequestReceived = "Received"

type RecycleRequest struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"user_id"`
	Kind         RecycleRequestKind `json:"kind"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	Organization string             `json:"organization"`
	ItemCount    int                `json:"item_count"`
	Message      string             `json:"message"`
	Status       string             `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
}
