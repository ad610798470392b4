package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"huddle/auth"
	"huddle/deferred"
	"huddle/directory"
	"huddle/engine"
	"huddle/internal"
	"huddle/ledger"
	"huddle/repositories"
	"huddle/runtime"
	"huddle/runtime/workers"
	"huddle/services"
	"huddle/sink"
	"huddle/standup"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "huddled terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the daemon lifecycle, and
// centralizes error reporting. Keeping the logic out of main ensures
// deferred cleanup (database close) always executes and keeps the
// wiring testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Archive database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are
		// flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core components: directory, ledger, lifecycle engine, timers.
	tokens := auth.NewTokens(config.TokenSecret, config.TokenDuration)
	dir := directory.New(tokens, logger)
	store := ledger.New()
	lifecycle := engine.New(dir, store, logger, config.BufferSize)
	timers := runtime.NewTimerHeap(logger)
	scheduler := deferred.NewScheduler(dir, store, lifecycle, timers, logger)
	standups := standup.NewManager(dir, lifecycle, timers, logger)

	// The transport consuming this surface is deployed separately; the
	// daemon runs the core and its background workers.
	var service services.IHuddleService = services.NewHuddle(dir, lifecycle, scheduler, standups)

	// 4. Background workers under supervision.
	archive := sink.NewArchive(repositories.NewArchiveRepository(db, logger), logger)
	fanout := workers.NewEventFanout(logger, lifecycle.Events(), config.SinkTimeout).Add(archive)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(timers, fanout, workers.NewHeartbeatWorker(logger, config.HeartbeatInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("huddled core ready", "surface", fmt.Sprintf("%T", service))
	supervisor.Run(ctx)
	logger.Info("huddled stopped")
	return exitOK, nil
}
