package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/sf-parking-risk-service/internal/adapter/http"
	"github.com/couchcryptid/sf-parking-risk-service/internal/analysis"
	"github.com/couchcryptid/sf-parking-risk-service/internal/config"
	"github.com/couchcryptid/sf-parking-risk-service/internal/dataset"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	domain.SetLocation(cfg.Location)

	osFs := afero.NewOsFs()
	loader := dataset.NewLoader(osFs, cfg.Location, logger, metrics)

	citations, err := loader.Citations(cfg.CitationsCSV)
	if err != nil {
		logger.Error("failed to load citations", "path", cfg.CitationsCSV, "error", err)
		os.Exit(1)
	}

	// Tickets only feed the heat map; citations stand in when the file is absent.
	tickets, err := loader.Tickets(cfg.TicketsCSV)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("tickets file missing, heat map uses citations", "path", cfg.TicketsCSV)
	} else if err != nil {
		logger.Error("failed to load tickets", "path", cfg.TicketsCSV, "error", err)
		os.Exit(1)
	}

	streets, err := loader.Streets(cfg.StreetsGeoJSON)
	if err != nil {
		logger.Error("failed to load street regulations", "path", cfg.StreetsGeoJSON, "error", err)
		os.Exit(1)
	}

	model := analysis.Build(citations, tickets, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, model, httpadapter.Options{
		Streets:     streets,
		StaticFS:    osFs,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
