package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/dukerupert/reloop/internal/websocket"
)

// Mailer sends transactional email. A nil Mailer disables email.
type Mailer interface {
	SendPickupConfirmation(ctx context.Context, p *model.DoorstepPickup) error
	SendRequestReceived(ctx context.Context, r *model.RecycleRequest) error
}

type PickupHandler struct {
	pickupStore *store.PickupStore
	mailer      Mailer
	hub         *websocket.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewPickupHandler(ps *store.PickupStore, mailer Mailer, hub *websocket.Hub, logger *slog.Logger) *PickupHandler {
	return &PickupHandler{pickupStore: ps, mailer: mailer, hub: hub, logger: logger, now: time.Now}
}

func (h *PickupHandler) notify(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.SendToUser(userID, msg)
	}
}

type pickupRequest struct {
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	Address             string   `json:"address"`
	City                string   `json:"city"`
	ZipCode             string   `json:"zip_code"`
	Items               []string `json:"items"`
	ScheduledDate       string   `json:"scheduled_date"`
	TimeSlot            string   `json:"time_slot"`
	SpecialInstructions string   `json:"special_instructions"`
}

// validate trims req in place and returns the first problem found.
func (req *pickupRequest) validate(today time.Time) (time.Time, string) {
	for _, f := range []*string{&req.Name, &req.Email, &req.Phone, &req.Address, &req.City, &req.ZipCode, &req.TimeSlot, &req.SpecialInstructions} {
		*f = strings.TrimSpace(*f)
	}
	if req.Name == "" || req.Phone == "" || req.Address == "" || req.City == "" || req.ZipCode == "" {
		return time.Time{}, "name, phone, address, city and zip_code are required"
	}
	if !validEmail(req.Email) {
		return time.Time{}, "a valid email is required"
	}
	if len(req.Items) == 0 {
		return time.Time{}, "at least one item type is required"
	}
	for _, it := range req.Items {
		if !slices.Contains(model.PickupItemTypes, it) {
			return time.Time{}, "unknown item type: " + it
		}
	}
	if !slices.Contains(model.TimeSlots, req.TimeSlot) {
		return time.Time{}, "time_slot must be one of the offered windows"
	}
	date, err := time.Parse(time.DateOnly, req.ScheduledDate)
	if err != nil {
		return time.Time{}, "scheduled_date must be YYYY-MM-DD"
	}
	y, m, d := today.Date()
	if date.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return time.Time{}, "scheduled_date cannot be in the past"
	}
	return date, ""
}

// Create handles POST /api/pickups
func (h *PickupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, problem := req.validate(h.now())
	if problem != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": problem})
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	p, err := h.pickupStore.Create(ctx, model.DoorstepPickup{
		UserID:              userID,
		Name:                req.Name,
		Email:               req.Email,
		Phone:               req.Phone,
		Address:             req.Address,
		City:                req.City,
		ZipCode:             req.ZipCode,
		Items:               slices.Compact(slices.Sorted(slices.Values(req.Items))),
		ScheduledDate:       date,
		TimeSlot:            req.TimeSlot,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		writeError(w, h.logger, err, "schedule pickup")
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendPickupConfirmation(ctx, p); err != nil {
			h.logger.Warn("pickup confirmation email", "pickup_id", p.ID, "error", err)
		}
	}
	h.notify(userID, websocket.NewMessage("pickup", "created", p.ID, nil))

	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /api/pickups
func (h *PickupHandler) List(w http.ResponseWriter, r *http.Request) {
	pickups, err := h.pickupStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "list pickups")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(pickups))
}

// Cancel handles POST /api/pickups/{id}/cancel. Another user's pickup is
// reported as not found.
func (h *PickupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	existing, err := h.pickupStore.GetByID(ctx, id)
	if err != nil {
		writeError(w, h.logger, err, "get pickup")
		return
	}
	if existing == nil || existing.UserID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pickup not found"})
		return
	}
	if !existing.Status.Cancellable() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a " + strings.ToLower(string(existing.Status)) + " pickup cannot be cancelled"})
		return
	}

	p, err := h.pickupStore.Cancel(ctx, id)
	if err != nil {
		writeError(w, h.logger, err, "cancel pickup")
		return
	}
	h.notify(userID, websocket.NewMessage("pickup", "cancelled", p.ID, nil))

	writeJSON(w, http.StatusOK, p)
}
