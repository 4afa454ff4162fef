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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/auction-settlement/internal/api"
	"github.com/atmx/auction-settlement/internal/auth"
	"github.com/atmx/auction-settlement/internal/bidding"
	"github.com/atmx/auction-settlement/internal/config"
	"github.com/atmx/auction-settlement/internal/invoice"
	"github.com/atmx/auction-settlement/internal/lock"
	"github.com/atmx/auction-settlement/internal/metrics"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/reference"
	"github.com/atmx/auction-settlement/internal/settlement"
	"github.com/atmx/auction-settlement/internal/store"
	"github.com/atmx/auction-settlement/internal/winner"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Redis (cache + distributed lock) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	// --- Initialize store ---
	var st store.Store
	if cfg.DatabaseURL != "" {
		if cfg.Migrate {
			if err := store.Migrate(cfg.DatabaseURL); err != nil {
				slog.Error("migration failed", "err", err)
				os.Exit(1)
			}
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		if rdb != nil {
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
		}
	} else {
		slog.Warn("database url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Generation lock ---
	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
		slog.Info("distributed generation lock enabled")
	}

	// --- Notifications ---
	hub := notify.NewWSHub()
	go hub.Run(ctx)

	sinks := []notify.Sink{hub}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("auction-settlement"))
		if err != nil {
			slog.Error("nats connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, func() { nc.Drain() })
		sinks = append(sinks, notify.NewNATSSink(nc))
		slog.Info("publishing events to NATS", "subject_prefix", notify.SubjectPrefix)
	}
	dispatcher := notify.NewDispatcher(sinks...)

	// --- Services ---
	numbers, err := reference.NewInvoiceNumberer(cfg.NodeID)
	if err != nil {
		slog.Error("invoice numberer", "err", err)
		os.Exit(1)
	}
	handler := api.NewHandler(api.Deps{
		Bids:             bidding.NewService(st, dispatcher),
		Winners:          winner.NewEngine(st),
		Invoices:         invoice.NewGenerator(st, locker, numbers, dispatcher),
		Settlements:      settlement.NewGenerator(st, dispatcher),
		Verifier:         auth.NewVerifier([]byte(cfg.JWTSecret)),
		Hub:              hub,
		BatchConcurrency: cfg.BatchConcurrency,
	})

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"auction-settlement"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Websocket connections outlive any request timeout, so the timeout is
	// applied inside the API router rather than globally.
	r.With(skipTimeoutForUpgrade(30*time.Second)).Mount("/api/v1", handler.Routes())

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("auction-settlement listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down auction-settlement...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("notifications dropped on shutdown", "err", err)
	}
	fmt.Println("auction-settlement stopped")
}

// skipTimeoutForUpgrade applies chi's request timeout to every request except
// websocket upgrades.
func skipTimeoutForUpgrade(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timed := middleware.Timeout(d)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timed.ServeHTTP(w, r)
		})
	}
}
