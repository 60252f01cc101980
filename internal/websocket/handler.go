package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/reloop/internal/auth"
)

// PointsSubscriber streams a user's balance until the returned unsubscribe
// function is called.
type PointsSubscriber interface {
	SubscribeToUserPoints(ctx context.Context, userID int64, cb func(balance int)) (func(), error)
}

// HandleWebSocket upgrades authenticated requests, registers the connection
// with the hub and forwards the user's live balance to it.
func HandleWebSocket(hub *Hub, points PointsSubscriber, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := NewClient(hub, conn, userID)
		unsubscribe, err := points.SubscribeToUserPoints(ctx, userID, func(balance int) {
			client.Send(NewMessage("points", "updated", 0, map[string]any{"balance": balance}))
		})
		if err != nil {
			logger.Error("subscribe to points", "user_id", userID, "error", err)
			conn.Close(ws.StatusInternalError, "points unavailable")
			return
		}
		defer unsubscribe()

		client.Run(ctx)
	}
}
