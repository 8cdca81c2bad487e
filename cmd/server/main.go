// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/bluff/internal/api"
	"github.com/jason-s-yu/bluff/internal/auth"
	"github.com/jason-s-yu/bluff/internal/cache"
	"github.com/jason-s-yu/bluff/internal/config"
	"github.com/jason-s-yu/bluff/internal/database"
	"github.com/jason-s-yu/bluff/internal/game"
	"github.com/jason-s-yu/bluff/internal/ws"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration.")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gameOpts := game.Options{TurnTimeout: cfg.TurnTimeout, Logger: logger}
	routerOpts := api.Options{AllowOrigins: cfg.AllowOrigins, Logger: logger}

	if cfg.RedisAddr != "" {
		historian, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis.")
		}
		defer historian.Close()
		gameOpts.Publisher = historian
		routerOpts.Actions = historian
		logger.WithField("addr", cfg.RedisAddr).Info("Room action history enabled.")
	}

	if cfg.DatabaseURL != "" {
		store, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres.")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to prepare database schema.")
		}
		gameOpts.Results = store
		routerOpts.Results = store
		logger.Info("Game result storage enabled.")
	}

	hubOpts := ws.Options{AllowOrigins: cfg.AllowOrigins, Logger: logger, Game: gameOpts}
	if cfg.JWTSecret != "" {
		hubOpts.Verifier = auth.NewVerifier(cfg.JWTSecret)
		logger.Info("Websocket token auth enabled.")
	}
	hub := ws.NewHub(hubOpts)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(hub, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Server listening.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed.")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown did not complete cleanly.")
	}
	hub.CloseAll()
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info.")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
