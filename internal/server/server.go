package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/handler"
	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/middleware"
	"github.com/dukerupert/reloop/internal/push"
	"github.com/dukerupert/reloop/internal/quiz"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/store"
	ws "github.com/dukerupert/reloop/internal/websocket"
)

const (
	loginAttemptsPerMinute = 10
	limiterIdle            = 10 * time.Minute
)

type Config struct {
	SessionTTL    time.Duration
	SecureCookies bool
	// AllowedOrigins are extra host patterns accepted on websocket upgrades.
	AllowedOrigins []string
}

// Services are the long-lived domain components the handlers call into.
// Push and Mailer may be nil.
type Services struct {
	Tokens  *auth.TokenIssuer
	Ledger  *ledger.Ledger
	Quiz    *quiz.Service
	Recycle *recycle.Service
	Push    *push.Service
	Mailer  handler.Mailer
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	ledger       *ledger.Ledger
	authH        *handler.AuthHandler
	activityH    *handler.ActivityHandler
	pickupH      *handler.PickupHandler
	rewardH      *handler.RewardHandler
	recycleH     *handler.RecycleHandler
	catalogH     *handler.CatalogHandler
	quizH        *handler.QuizHandler
	pushH        *handler.PushHandler
	sessionStore *store.SessionStore
	tokens       *auth.TokenIssuer
	rateLimiter  *middleware.RateLimiter
	origins      []string
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, svc Services, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.SessionTTL)
	activityStore := store.NewActivityStore(db)
	pickupStore := store.NewPickupStore(db)
	rewardStore := store.NewRewardStore(db)
	redemptionStore := store.NewRedemptionStore(db)
	requestStore := store.NewRecycleRequestStore(db)
	locationStore := store.NewLocationStore(db)
	blogStore := store.NewBlogStore(db)
	pushStore := store.NewPushStore(db)

	return &Server{
		db:           db,
		hub:          hub,
		ledger:       svc.Ledger,
		authH:        handler.NewAuthHandler(userStore, sessionStore, svc.Tokens, cfg.SecureCookies, logger.With("component", "auth")),
		activityH:    handler.NewActivityHandler(activityStore, pickupStore, svc.Ledger, logger.With("component", "activity")),
		pickupH:      handler.NewPickupHandler(pickupStore, svc.Mailer, hub, logger.With("component", "pickup")),
		rewardH:      handler.NewRewardHandler(rewardStore, redemptionStore, svc.Ledger, logger.With("component", "reward")),
		recycleH:     handler.NewRecycleHandler(svc.Recycle, requestStore, svc.Mailer, logger.With("component", "recycle")),
		catalogH:     handler.NewCatalogHandler(locationStore, blogStore, logger.With("component", "catalog")),
		quizH:        handler.NewQuizHandler(svc.Quiz, logger.With("component", "quiz")),
		pushH:        handler.NewPushHandler(pushStore, svc.Push, logger.With("component", "push_handler")),
		sessionStore: sessionStore,
		tokens:       svc.Tokens,
		rateLimiter:  middleware.NewRateLimiter(loginAttemptsPerMinute, time.Minute, limiterIdle),
		origins:      cfg.AllowedOrigins,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /api/locations", s.catalogH.Locations)
	outerMux.HandleFunc("GET /api/locations/{id}", s.catalogH.Location)
	outerMux.HandleFunc("GET /api/blog", s.catalogH.Posts)
	outerMux.HandleFunc("GET /api/blog/{slug}", s.catalogH.Post)
	outerMux.HandleFunc("GET /api/recycle/rates", s.recycleH.Rates)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Account
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me", s.authH.UpdateMe)
	mux.HandleFunc("PUT /api/me/password", s.authH.ChangePassword)

	// Dashboard and activity log
	mux.HandleFunc("GET /api/dashboard", s.activityH.Dashboard)
	mux.HandleFunc("GET /api/activities", s.activityH.List)

	// Doorstep pickups
	mux.HandleFunc("GET /api/pickups", s.pickupH.List)
	mux.HandleFunc("POST /api/pickups", s.pickupH.Create)
	mux.HandleFunc("POST /api/pickups/{id}/cancel", s.pickupH.Cancel)

	// Rewards and points
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.Redemptions)
	mux.HandleFunc("GET /api/points", s.rewardH.Points)

	// Recycling
	mux.HandleFunc("POST /api/recycle", s.recycleH.Submit)
	mux.HandleFunc("POST /api/recycle/quote", s.recycleH.Quote)
	mux.HandleFunc("GET /api/recycle/requests", s.recycleH.ListRequests)
	mux.HandleFunc("POST /api/recycle/requests", s.recycleH.CreateRequest)

	// Quiz
	mux.HandleFunc("POST /api/quiz", s.quizH.Start)
	mux.HandleFunc("GET /api/quiz/{id}", s.quizH.Get)
	mux.HandleFunc("POST /api/quiz/{id}/answer", s.quizH.Answer)
	mux.HandleFunc("POST /api/quiz/{id}/next", s.quizH.Next)
	mux.HandleFunc("POST /api/quiz/{id}/previous", s.quizH.Previous)
	mux.HandleFunc("POST /api/quiz/{id}/complete", s.quizH.Complete)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.ledger, s.origins, s.logger.With("component", "websocket")))
}
