package main

import (
	"chat-presence/auth"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"chat-presence/transport/ws"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the process lifecycle, so that deferred
// cleanup (database close, worker shutdown) runs before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	location, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", config.TimeZone, err)
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(repositories.NewBadgerLogger(log)))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Presence & push pipeline
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewPresenceRegistry(log, config.SinkTimeout, time.Now)
	orchestrator := runtime.NewOrchestrator(log, sup, registry,
		config.NumberOfWorkers, config.BufferSize, config.SinkTimeout).
		WithQueueSampling(config.MetricInterval)

	// 4. Repositories & services
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	membershipRepository := repositories.NewMembershipRepository(db, log)
	subscriptionRepository := repositories.NewSubscriptionRepository(db, log)

	cursors := services.NewCursorService(log, subscriptionRepository, membershipRepository, time.Now)
	defaultLimit := 0
	if config.LimitMessages != nil {
		defaultLimit = *config.LimitMessages
	}
	visibility := services.NewVisibilityFilter(log, messageRepository, membershipRepository, cursors, location, defaultLimit)
	chat := services.NewChatService(log, messageRepository, membershipRepository, subscriptionRepository,
		cursors, visibility, registry, orchestrator, services.ChatServiceConfig{
			MaxContentLength: config.MaxContentLength,
			Clock:            time.Now,
		})

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Start(ctx)
	}()

	// 6. WebSocket gateway
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	gateway := ws.NewServer(log, chat, ws.Config{
		WriteTimeout:   config.SinkTimeout,
		HistoryLimit:   defaultLimit,
		ReadBufferSize: config.ConnectionBufferSize,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           gateway.Handler(tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket gateway", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		orchestrator.Stop()
		<-orchestratorDone
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", "error", err)
	}
	gateway.Close()
	orchestrator.Stop()
	<-orchestratorDone
	log.Info("Program stopped cleanly")

	return nil
}
