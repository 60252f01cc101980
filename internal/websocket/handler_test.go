package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/reloop/internal/auth"
)

type stubPoints struct {
	balances     []int
	unsubscribed atomic.Bool
}

func (s *stubPoints) SubscribeToUserPoints(_ context.Context, _ int64, cb func(int)) (func(), error) {
	go func() {
		for _, b := range s.balances {
			cb(b)
		}
	}()
	return func() { s.unsubscribed.Store(true) }, nil
}

func withUser(userID int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})))
	})
}

func TestHandleWebSocketStreamsPoints(t *testing.T) {
	hub := NewHub(slog.Default())
	points := &stubPoints{balances: []int{100, 130}}
	srv := httptest.NewServer(withUser(7, HandleWebSocket(hub, points, nil, slog.Default())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var got []float64
	for len(got) < 2 {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != "points_updated" {
			t.Fatalf("type = %q, want points_updated", msg.Type)
		}
		got = append(got, msg.Extra["balance"].(float64))
	}
	if got[0] != 100 || got[1] != 130 {
		t.Errorf("balances = %v, want [100 130]", got)
	}

	conn.Close(ws.StatusNormalClosure, "")

	deadline := time.Now().Add(time.Second)
	for !points.unsubscribed.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !points.unsubscribed.Load() {
		t.Error("expected unsubscribe after close")
	}
}

func TestHandleWebSocketRequiresUser(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, &stubPoints{}, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
