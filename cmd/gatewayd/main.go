// Package main is the entry point for gatewayd, the change-stream daemon
// clients subscribe to over a websocket. Its sole responsibility is wiring
// dependencies together and starting the server. No business logic belongs
// here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmallory/tripsync/internal/auth"
	"github.com/pmallory/tripsync/internal/config"
	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/gateway/memory"
	"github.com/pmallory/tripsync/internal/gateway/pg"
	"github.com/pmallory/tripsync/internal/handler"
	"github.com/pmallory/tripsync/internal/middleware"
)

// maxBodySize bounds request bodies. gatewayd's endpoints carry no bodies
// today; the limit is protection for anything added later.
const maxBodySize = 1 << 20 // 1 MiB

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log
	// aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Changefeed backend -----------------------------------------------
	// Production runs against Postgres LISTEN/NOTIFY; dev mode swaps in the
	// in-memory gateway and disables authentication.
	var (
		feed     gateway.Changefeed
		verifier handler.IdentityVerifier
	)
	if cfg.DevMode {
		slog.Warn("running in dev mode: in-memory gateway, no authentication")
		feed = memory.New()
	} else {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(context.Background()); err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		slog.Info("database connection established")

		pgFeed := pg.NewChangefeed(pool, logger)
		defer pgFeed.Close()
		feed = pgFeed
		verifier = tokenVerifier{secret: []byte(cfg.JWTSecret)}
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger →
	// Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodySize))

	srv := handler.NewServer(feed, verifier, logger)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// Websocket connections are hijacked on upgrade and outlive them.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// tokenVerifier adapts auth.VerifyToken to the handler's interface.
type tokenVerifier struct {
	secret []byte
}

func (v tokenVerifier) Verify(token string) (gateway.Identity, error) {
	return auth.VerifyToken(v.secret, token)
}
