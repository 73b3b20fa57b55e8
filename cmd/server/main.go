package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/vulture-market/internal/config"
	"github.com/DoyleJ11/vulture-market/internal/httpapi"
	"github.com/DoyleJ11/vulture-market/internal/hub"
	"github.com/DoyleJ11/vulture-market/internal/session"
	"github.com/DoyleJ11/vulture-market/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("logger", zap.Error(err))
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       *store.Store
		archive  httpapi.Archive
		recorder session.Recorder
	)
	if cfg.DatabaseURL != "" {
		var err error
		if db, err = store.Open(ctx, cfg.DatabaseURL, log); err != nil {
			return err
		}
		if err := db.Migrate(ctx); err != nil {
			return multierr.Append(err, db.Close())
		}
		archive, recorder = db, db
	} else {
		log.Warn("DATABASE_URL not set, finished games will not be archived")
	}

	h := hub.NewHub(context.Background(), hub.Config{
		Rules:      cfg.Rules,
		Logger:     log,
		Recorder:   recorder,
		SweepEvery: cfg.SweepEvery,
		IdleGrace:  cfg.IdleGrace,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, log, archive, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := multierr.Combine(
			srv.Shutdown(sctx),
			h.Shutdown(sctx),
		)
		if db != nil {
			err = multierr.Append(err, db.Close())
		}
		return err
	})
	return g.Wait()
}
