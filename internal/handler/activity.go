package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/reloop/internal/activity"
	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
)

const dashboardRecent = 5

type ActivityHandler struct {
	activityStore *store.ActivityStore
	pickupStore   *store.PickupStore
	ledger        *ledger.Ledger
	logger        *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, ps *store.PickupStore, l *ledger.Ledger, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activityStore: as, pickupStore: ps, ledger: l, logger: logger}
}

type dashboardResponse struct {
	Balance         int                   `json:"balance"`
	Totals          *model.ActivityTotals `json:"totals"`
	Recent          []model.Activity      `json:"recent"`
	UpcomingPickups int                   `json:"upcoming_pickups"`
}

// Dashboard handles GET /api/dashboard
func (h *ActivityHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		writeError(w, h.logger, err, "get balance")
		return
	}
	totals, err := h.activityStore.Totals(ctx, userID)
	if err != nil {
		writeError(w, h.logger, err, "get totals")
		return
	}
	recent, err := h.activityStore.Recent(ctx, userID, dashboardRecent)
	if err != nil {
		writeError(w, h.logger, err, "list recent activity")
		return
	}
	upcoming, err := h.pickupStore.CountUpcoming(ctx, userID, time.Now())
	if err != nil {
		writeError(w, h.logger, err, "count pickups")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Balance:         balance,
		Totals:          totals,
		Recent:          emptyIfNil(recent),
		UpcomingPickups: upcoming,
	})
}

type activityListResponse struct {
	Activities []model.Activity `json:"activities"`
	Categories []string         `json:"categories"`
}

// List handles GET /api/activities?category=&search=&recycling=&sort=
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := activity.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if v := q.Get("recycling"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recycling must be true or false"})
			return
		}
		f.RecyclingOnly = only
	}

	entries, err := h.activityStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "list activities")
		return
	}

	writeJSON(w, http.StatusOK, activityListResponse{
		Activities: activity.Apply(entries, f),
		Categories: activity.Categories(entries),
	})
}
