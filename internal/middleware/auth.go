package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/store"
)

const SessionCookieName = "reloop_session"

// RequireAuth resolves the session cookie or a bearer token into an
// AuthContext. A bearer token is only honored while its session row exists.
func RequireAuth(sessionStore *store.SessionStore, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := authenticate(r, sessionStore, tokens)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func authenticate(r *http.Request, sessionStore *store.SessionStore, tokens *auth.TokenIssuer) (auth.AuthContext, bool) {
	if raw, ok := bearerToken(r); ok {
		if tokens == nil {
			return auth.AuthContext{}, false
		}
		userID, sessionID, err := tokens.Parse(raw)
		if err != nil {
			return auth.AuthContext{}, false
		}
		sess, err := sessionStore.GetByID(r.Context(), sessionID)
		if err != nil || sess == nil || sess.UserID != userID {
			return auth.AuthContext{}, false
		}
		return auth.AuthContext{UserID: sess.UserID, SessionID: sess.ID}, true
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return auth.AuthContext{}, false
	}
	sess, err := sessionStore.GetByToken(r.Context(), cookie.Value)
	if err != nil || sess == nil {
		return auth.AuthContext{}, false
	}
	return auth.AuthContext{UserID: sess.UserID, SessionID: sess.ID}, true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
