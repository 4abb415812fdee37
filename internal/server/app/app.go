// Package app wires the dev server together and owns its lifecycle.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/config"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/httpapi"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository/sqlite"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/service"
)

type App struct {
	version   string
	buildDate string
	logger    *slog.Logger
	server    *http.Server
	repo      *sqlite.Repository
}

func New(version, buildDate string, logger *slog.Logger) (*App, error) {
	cfg := config.Load()
	repo, err := sqlite.New(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := repo.SeedDemoData(context.Background()); err != nil {
		_ = repo.Close()
		return nil, err
	}
	services := service.NewServices(repo, cfg)
	router := httpapi.NewRouter(services, logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &App{version: version, buildDate: buildDate, logger: logger, server: server, repo: repo}, nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = a.repo.Close() }()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server error", "err", err)
		}
	}()

	a.logger.Info("voting dev server listening",
		"version", a.version, "build_date", a.buildDate, "addr", a.server.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
