package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/store"
)

type RewardHandler struct {
	rewardStore     *store.RewardStore
	redemptionStore *store.RedemptionStore
	ledger          *ledger.Ledger
	logger          *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, ds *store.RedemptionStore, l *ledger.Ledger, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, redemptionStore: ds, ledger: l, logger: logger}
}

// List handles GET /api/rewards
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewardStore.ListActive(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "list rewards")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(rewards))
}

// Redeem handles POST /api/rewards/{id}/redeem. The debit and the
// redemption record are written together or not at all.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	redemption, err := h.ledger.RedeemReward(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "redeem reward")
		return
	}
	writeJSON(w, http.StatusCreated, redemption)
}

// Redemptions handles GET /api/redemptions
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := h.redemptionStore.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "list redemptions")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(redemptions))
}

// Points handles GET /api/points
func (h *RewardHandler) Points(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err, "get balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": userID, "balance": int64(balance)})
}
