package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ewilliams-labs/setforge/internal/adapters/rest"
	"github.com/ewilliams-labs/setforge/internal/adapters/sqlite"
	"github.com/ewilliams-labs/setforge/internal/adapters/tagscan"
	"github.com/ewilliams-labs/setforge/internal/adapters/taxonomy"
	"github.com/ewilliams-labs/setforge/internal/config"
	"github.com/ewilliams-labs/setforge/internal/core/services"
	"github.com/ewilliams-labs/setforge/internal/logging"
	"github.com/ewilliams-labs/setforge/internal/worker"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("SETFORGE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("FATAL: %v", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		logrus.Fatalf("FATAL: %v", err)
	}
	log := logging.Component("main")

	// 2. Driven adapters
	if cfg.Storage.Driver != "sqlite" {
		log.Fatalf("unknown storage driver: %s", cfg.Storage.Driver)
	}
	db, err := sqlite.NewAdapter(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	genres, err := taxonomy.LoadFile(cfg.Taxonomy.Path)
	if err != nil {
		log.Fatalf("failed to load genre taxonomy: %v", err)
	}

	policy, err := cfg.Sequencing.HarmonicPolicy()
	if err != nil {
		log.Fatalf("invalid harmonic policy: %v", err)
	}

	// 3. Core
	svc := services.NewSequencer(db, db, genres, services.Config{
		DefaultBeamWidth: cfg.Sequencing.DefaultBeamWidth,
		DefaultDriftPct:  cfg.Sequencing.DefaultDriftPct,
		Policy:           &policy,
	})

	pool := worker.NewPool(db, tagscan.ReadTrack, cfg.Worker.Workers, cfg.Worker.QueueSize)
	pool.Start()
	defer pool.Stop()

	// 4. Driving adapter
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest.NewHandler(svc, pool),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	log.WithFields(logrus.Fields{
		"addr":    cfg.HTTP.Addr,
		"db":      cfg.Storage.Path,
		"workers": cfg.Worker.Workers,
		"policy":  policy.String(),
	}).Info("setforge API starting")

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown error")
		}
	}
}
