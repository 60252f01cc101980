package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	sessions *store.SessionStore
	tokens   *auth.TokenIssuer
	user     *model.User
}

func setupAuthMiddleware(t *testing.T) authFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenIssuer(testSecret, "reloop")
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	u, err := store.NewUserStore(db).Create(context.Background(), "alice@example.com", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return authFixture{
		sessions: store.NewSessionStore(db, time.Hour),
		tokens:   tokens,
		user:     u,
	}
}

func protected(t *testing.T, f authFixture, got *auth.AuthContext) http.Handler {
	return RequireAuth(f.sessions, f.tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		*got = ac
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuthNoCredentials(t *testing.T) {
	f := setupAuthMiddleware(t)

	handler := RequireAuth(f.sessions, f.tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRequireAuthInvalidCookie(t *testing.T) {
	f := setupAuthMiddleware(t)

	handler := RequireAuth(f.sessions, f.tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidCookie(t *testing.T) {
	f := setupAuthMiddleware(t)
	sess, _ := f.sessions.Create(context.Background(), f.user.ID)

	var got auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	protected(t, f, &got).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != f.user.ID || got.SessionID != sess.ID {
		t.Errorf("AuthContext = %+v, want user %d session %d", got, f.user.ID, sess.ID)
	}
}

func TestRequireAuthBearerToken(t *testing.T) {
	f := setupAuthMiddleware(t)
	ctx := context.Background()
	sess, _ := f.sessions.Create(ctx, f.user.ID)
	token, _ := f.tokens.Issue(f.user.ID, sess.ID, sess.ExpiresAt)

	var got auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, f, &got).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", got.SessionID, sess.ID)
	}

	// Logging out deletes the session, which revokes the token.
	f.sessions.Delete(ctx, sess.ID)

	rec = httptest.NewRecorder()
	protected(t, f, &got).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthBearerSessionMismatch(t *testing.T) {
	f := setupAuthMiddleware(t)
	sess, _ := f.sessions.Create(context.Background(), f.user.ID)
	token, _ := f.tokens.Issue(f.user.ID+1, sess.ID, sess.ExpiresAt)

	var got auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t, f, &got).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	f := setupAuthMiddleware(t)
	sess, _ := f.sessions.Create(context.Background(), f.user.ID)

	var got auth.AuthContext
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	protected(t, f, &got).ServeHTTP(rec, req)

	// A non-bearer Authorization header falls back to the cookie.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
