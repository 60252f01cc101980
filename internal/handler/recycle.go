package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/store"
)

type RecycleHandler struct {
	service      *recycle.Service
	requestStore *store.RecycleRequestStore
	mailer       Mailer
	logger       *slog.Logger
}

func NewRecycleHandler(svc *recycle.Service, rs *store.RecycleRequestStore, mailer Mailer, logger *slog.Logger) *RecycleHandler {
	return &RecycleHandler{service: svc, requestStore: rs, mailer: mailer, logger: logger}
}

// Submit handles POST /api/recycle
func (h *RecycleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []recycle.Item `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.service.Submit(r.Context(), auth.UserID(r.Context()), req.Items)
	if err != nil {
		writeError(w, h.logger, err, "record recycling")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Rates handles GET /api/recycle/rates
func (h *RecycleHandler) Rates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Rates().List())
}

type recycleRequestBody struct {
	Kind         model.RecycleRequestKind `json:"kind"`
	Name         string                   `json:"name"`
	Email        string                   `json:"email"`
	Phone        string                   `json:"phone"`
	Organization string                   `json:"organization"`
	ItemCount    int                      `json:"item_count"`
	Message      string                   `json:"message"`
}

// CreateRequest handles POST /api/recycle/requests for the business,
// education and mail-in forms.
func (h *RecycleHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req recycleRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	if !req.Kind.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be business, education or mail-in"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Organization = strings.TrimSpace(req.Organization)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if !validEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}
	if req.Kind != model.RequestMailIn && req.Organization == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "organization is required"})
		return
	}
	if req.ItemCount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_count must be >= 0"})
		return
	}

	ctx := r.Context()
	created, err := h.requestStore.Create(ctx, model.RecycleRequest{
		UserID:       auth.UserID(ctx),
		Kind:         req.Kind,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Organization: req.Organization,
		ItemCount:    req.ItemCount,
		Message:      strings.TrimSpace(req.Message),
	})
	if err != nil {
		writeError(w, h.logger, err, "save request")
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendRequestReceived(ctx, created); err != nil {
			h.logger.Warn("request received email", "request_id", created.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListRequests handles GET /api/recycle/requests
func (h *RecycleHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requestStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "list requests")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reqs))
}

// Quote handles POST /api/recycle/quote. Nothing is credited.
func (h *RecycleHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []recycle.Item `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	lines, total, err := h.service.Quote(req.Items)
	if err != nil {
		writeError(w, h.logger, err, "quote items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines, "total": total})
}
