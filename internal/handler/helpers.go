package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/quiz"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

// statusFor maps domain errors to a response status. ok is false for
// errors that should be logged and hidden behind a 500.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, ledger.ErrRewardUnavailable):
		return http.StatusNotFound, true
	case errors.Is(err, store.ErrInsufficientPoints),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, quiz.ErrNotReady),
		errors.Is(err, quiz.ErrCompleted),
		errors.Is(err, quiz.ErrAlreadyAnswered):
		return http.StatusConflict, true
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidEntry),
		errors.Is(err, recycle.ErrNoItems),
		errors.Is(err, recycle.ErrTooManyItems),
		errors.Is(err, recycle.ErrInvalidQuantity),
		errors.Is(err, recycle.ErrInvalidItem),
		errors.Is(err, quiz.ErrUnanswered),
		errors.Is(err, quiz.ErrInvalidOption),
		errors.Is(err, quiz.ErrOutOfRange):
		return http.StatusBadRequest, true
	case errors.Is(err, quiz.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, quiz.ErrNoQuestions):
		return http.StatusServiceUnavailable, true
	}
	return http.StatusInternalServerError, false
}

// writeError responds with the status mapped from err. Unknown errors are
// logged with action and reported as "failed to <action>".
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	status, ok := statusFor(err)
	if ok {
		writeJSON(w, status, map[string]string{"error": errorMessage(err)})
		return
	}
	logger.Error(action, "error", err)
	writeJSON(w, status, map[string]string{"error": "failed to " + action})
}

// errorMessage strips the wrapping context stores add so clients see the
// sentinel text only.
func errorMessage(err error) string {
	for _, target := range []error{
		store.ErrNotFound, store.ErrInsufficientPoints, store.ErrInvalidTransition, store.ErrConflict,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
