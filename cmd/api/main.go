package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-delivery-messaging/internal/application/dispatch"
	"github.com/go-delivery-messaging/internal/application/messaging"
	"github.com/go-delivery-messaging/internal/config"
	"github.com/go-delivery-messaging/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-delivery-messaging/internal/infrastructure/jwt"
	"github.com/go-delivery-messaging/internal/infrastructure/sns"
	transporthttp "github.com/go-delivery-messaging/internal/transport/http"
	"github.com/go-delivery-messaging/internal/transport/ws"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamo client: %w", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	hub := ws.NewHub(logger.With("component", "ws"))

	// SNS gateway (optional, graceful fallback to websocket-only delivery).
	var remote dispatch.Gateway
	if gw, err := sns.NewGatewayFromConfig(ctx, cfg); err == nil {
		remote = gw
	} else {
		logger.Warn("SNS push gateway not available, delivering over websocket only", "err", err)
	}

	svc := messaging.NewService(messaging.ServiceDeps{
		Messages:    dynamo.NewMessageRepo(dynamoClient, cfg.DynamoTables.Messages, cfg.MessagesDefaultPageSize, cfg.MessagesMaxPageSize),
		Sessions:    dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.PushSessions, cfg.PushSessionTTL),
		Dispatcher:  dispatch.New(dispatch.NewRouted(hub, remote), cfg.PushTimeout),
		Logger:      logger.With("component", "messaging"),
		FanOutLimit: cfg.PushFanOutLimit,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Messaging:   svc,
		JWTProvider: jwtProvider,
		Hub:         hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	// Hijacked websocket connections outlive Shutdown.
	hub.Close()
	logger.Info("server stopped")
	return nil
}
