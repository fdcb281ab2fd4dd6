package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/bootstrap"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/config"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/httpapi"
	sharedauth "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/auth"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/logging"
	sharedserver "github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/server"
)

const serviceName = "gamification-service"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		panic(fmt.Errorf("bootstrap error: %w", err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close failed", slog.Any("error", err))
		}
	}()

	if err := app.Watch(ctx); err != nil {
		logger.Warn("external change watch unavailable", slog.Any("error", err))
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
		Secret:   cfg.Auth.Secret,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))

			httpapi.RegisterRoutes(r, app.Service, logger, httpapi.WithAdmins(cfg.AdminUserIDs...))
		})
	})

	// No WriteTimeout: /v1/events/me holds its response open. JSON handlers bound their
	// own work with a context deadline.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger, cancel); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
