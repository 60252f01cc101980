package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/reloop/internal/auth"
	"github.com/dukerupert/reloop/internal/backup"
	"github.com/dukerupert/reloop/internal/catalog"
	"github.com/dukerupert/reloop/internal/config"
	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/email"
	"github.com/dukerupert/reloop/internal/genai"
	"github.com/dukerupert/reloop/internal/handler"
	"github.com/dukerupert/reloop/internal/ledger"
	"github.com/dukerupert/reloop/internal/logging"
	"github.com/dukerupert/reloop/internal/push"
	"github.com/dukerupert/reloop/internal/quiz"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/server"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/redis/go-redis/v9"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("reloop exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cat, err := catalog.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	rewardStore := store.NewRewardStore(db)
	if err := cat.Seed(ctx, catalog.Stores{
		Rewards:   rewardStore,
		Locations: store.NewLocationStore(db),
		Blog:      store.NewBlogStore(db),
	}, logging.Component(logger, "catalog")); err != nil {
		return err
	}

	feed, closeFeed, err := pointsFeed(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFeed()
	pointsLedger := ledger.New(store.NewLedgerStore(db), rewardStore, feed, logging.Component(logger, "ledger"))

	var llm quiz.TextGenerator
	if cfg.GeminiAPIKey != "" {
		llm = genai.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		logger.Warn("RELOOP_GEMINI_API_KEY not set, quizzes use the standard question set")
	}
	gen, err := quiz.NewGenerator(llm, logging.Component(logger, "quiz"))
	if err != nil {
		return err
	}
	quizService := quiz.NewService(store.NewQuizStore(db), gen, pointsLedger, cfg.QuizPerMinute, cfg.QuizBurst, logging.Component(logger, "quiz"))

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, "reloop")
	if err != nil {
		return err
	}

	var mailer handler.Mailer
	if cfg.PostmarkToken != "" {
		mailer = email.NewClient(cfg.PostmarkToken, cfg.EmailFrom, cfg.BaseURL)
	}

	pushService := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber,
		push.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if pushService.Configured() {
		sched := push.NewScheduler(pushService, store.NewPushStore(db), store.NewPickupStore(db), cfg.ReminderEvery, logging.Component(logger, "push"))
		sched.Start(ctx)
		defer sched.Stop()
	}

	backupMgr := backup.NewManager(cfg.BackupSettings(), db, store.NewBackupStore(db), logging.Component(logger, "backup"))
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	srv := server.New(db, server.Config{
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, server.Services{
		Tokens:  tokens,
		Ledger:  pointsLedger,
		Quiz:    quizService,
		Recycle: recycle.NewService(pointsLedger, cat.Rates),
		Push:    pushService,
		Mailer:  mailer,
	}, logger)

	go runCleanup(ctx, srv, quizService, logging.Component(logger, "cleanup"))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		// Quiz generation waits on the model for up to 30s.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reloop listening", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// pointsFeed returns the Redis feed when RELOOP_REDIS_ADDR is set so that
// every instance sees every balance change; otherwise an in-process feed.
func pointsFeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Feed, func(), error) {
	if cfg.RedisAddr == "" {
		return ledger.NewMemoryFeed(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	feed := ledger.NewRedisFeed(client, logging.Component(logger, "points_feed"))
	if err := feed.Start(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return feed, func() {
		feed.Stop()
		client.Close()
	}, nil
}

// runCleanup drops expired sessions and idle rate-limiter keys hourly.
func runCleanup(ctx context.Context, srv *server.Server, quizService *quiz.Service, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.SessionStore().DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("deleted expired sessions", "count", n)
			}
			if dropped := srv.RateLimiter().Cleanup(); dropped > 0 {
				logger.Debug("dropped idle rate limit keys", "count", dropped)
			}
			if dropped := quizService.PruneLimiters(); dropped > 0 {
				logger.Debug("dropped refilled quiz limiters", "count", dropped)
			}
		}
	}
}
