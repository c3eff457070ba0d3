package main

import (
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tripsplit/tripsplit/internal/auth"
	"github.com/tripsplit/tripsplit/internal/config"
	"github.com/tripsplit/tripsplit/internal/handler"
	"github.com/tripsplit/tripsplit/internal/service"
	"github.com/tripsplit/tripsplit/internal/storage/sqlite"
	"github.com/tripsplit/tripsplit/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("TRIPSPLIT_CONFIG_DIR"))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.SetupWithLevel(logging.ParseLevel(cfg.Logging.Level))

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DB.Path)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.Auth.BcryptCost)

	router := handler.NewRouter(handler.Services{
		Auth:     service.NewAuthService(authenticator, jwtManager, slog.Default()),
		Trips:    service.NewTripService(store),
		Expenses: service.NewExpenseService(store),
	}, jwtManager)

	// h2c allows HTTP/2 without TLS for clients behind a terminating proxy.
	h2cHandler := h2c.NewHandler(router, &http2.Server{})

	addr := cfg.Server.Addr()
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
