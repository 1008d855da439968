package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/noah-isme/study-vault-api/internal/server"
	"github.com/noah-isme/study-vault-api/pkg/config"
	"github.com/noah-isme/study-vault-api/pkg/logger"
)

const newRelicShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logr, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logr.Sync() //nolint:errcheck

		if err := serve(cmd.Context(), cfg, logr); err != nil {
			logr.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if _, err := maxprocs.Set(maxprocs.Logger(logr.Sugar().Infof)); err != nil {
		return fmt.Errorf("maxprocs: %w", err)
	}
	logr.Info("startup", zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)))

	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.License),
			newrelic.ConfigEnabled(true),
		)
		if err != nil {
			return fmt.Errorf("new relic: %w", err)
		}
		defer app.Shutdown(newRelicShutdownTimeout)
		nrApp = app
	}

	app, err := server.Build(ctx, cfg, logr, nrApp)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logr.Warn("close resources", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))
		defer logr.Info("shutdown complete")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
