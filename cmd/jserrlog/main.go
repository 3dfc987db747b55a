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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/splax/jserrlog/internal/app/migrate"
	httpx "github.com/splax/jserrlog/internal/http"
	"github.com/splax/jserrlog/internal/repository/postgres"
	"github.com/splax/jserrlog/internal/service/admin"
	"github.com/splax/jserrlog/internal/service/ingest"
	"github.com/splax/jserrlog/internal/token"
	"github.com/splax/jserrlog/internal/ws"
	"github.com/splax/jserrlog/pkg/config"
	"github.com/splax/jserrlog/pkg/logger"
)

func main() {
	cfg := config.LoadServiceConfig()
	log := logger.New("jserrlog", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hub := ws.NewHub()

	ingestSvc := ingest.New(repo, hub, log)
	adminSvc := admin.New(repo, log, cfg)
	submit := token.NewSubmitIssuer(cfg.NonceSecret, cfg.SubmitTokenBucket)
	nonces := token.NewClearNonces(cfg.ClearNonceTTL)

	router, err := httpx.NewRouter(log, ingestSvc, adminSvc, submit, nonces, hub, cfg, pool.Ping)
	if err != nil {
		log.Error("failed to assemble router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("jserrlog server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("jserrlog server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
