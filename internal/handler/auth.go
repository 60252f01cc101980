package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/middleware"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
)

const minPasswordLength = 8

type AuthHandler struct {
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	tokens        *auth.TokenIssuer
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, tokens *auth.TokenIssuer, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:     us,
		sessionStore:  ss,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// startSession creates a session row, sets the cookie and returns a bearer
// token bound to the same session.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) (*sessionResponse, error) {
	sess, err := h.sessionStore.Create(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	token, err := h.tokens.Issue(user.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies || r.TLS != nil,
	})
	return &sessionResponse{User: user, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if !validEmail(req.Email) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	user, err := h.userStore.Create(r.Context(), req.Email, req.Name, req.Password)
	if errors.Is(err, store.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "an account with that email already exists"})
		return
	}
	if err != nil {
		writeError(w, h.logger, err, "create account")
		return
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		writeError(w, h.logger, err, "start session")
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.userStore.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err, "sign in")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}

	if err := h.userStore.TouchLastLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("touch last login", "user_id", user.ID, "error", err)
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		writeError(w, h.logger, err, "start session")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := auth.SessionID(r.Context()); sid != 0 {
		if err := h.sessionStore.Delete(r.Context(), sid); err != nil {
			h.logger.Error("delete session", "session_id", sid, "error", err)
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "get account")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name"`
		ProfilePicture string `json:"profile_picture"`
		DateOfBirth    string `json:"date_of_birth"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	update := store.ProfileUpdate{Name: req.Name, ProfilePicture: strings.TrimSpace(req.ProfilePicture)}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date_of_birth must be YYYY-MM-DD"})
			return
		}
		if dob.After(time.Now()) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date_of_birth cannot be in the future"})
			return
		}
		update.DateOfBirth = &dob
	}

	user, err := h.userStore.UpdateProfile(r.Context(), auth.UserID(r.Context()), update)
	if err != nil {
		writeError(w, h.logger, err, "update account")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/me/password. Every session of the user is
// revoked and a fresh one is issued to the caller.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)
	changed, err := h.userStore.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, h.logger, err, "change password")
		return
	}
	if !changed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current password is incorrect"})
		return
	}

	if err := h.sessionStore.DeleteByUserID(ctx, userID); err != nil {
		writeError(w, h.logger, err, "revoke sessions")
		return
	}
	user, err := h.userStore.GetByID(ctx, userID)
	if err != nil {
		writeError(w, h.logger, err, "get account")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	resp, err := h.startSession(w, r, user)
	if err != nil {
		writeError(w, h.logger, err, "start session")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
