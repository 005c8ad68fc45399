package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"streamroom/auth"
	"streamroom/infrastructure/ws"
	"streamroom/ingest"
	"streamroom/internal"
	"streamroom/observability"
	"streamroom/runtime"
	"streamroom/runtime/workers"
	"streamroom/services"
	"streamroom/web"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper: call run() and handle
	// the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamroom terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so that defers execute before the process
// exits and the wiring stays testable.
func run() (int, error) {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the TOML config file")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// Shared chat state: created once, owned here, passed by reference
	// into every session.
	stats := observability.NewMonitor(logger)
	registry := runtime.NewRegistry()
	history := runtime.NewHistory(config.HistorySize)
	bus := runtime.NewBus(logger, config.SessionBuffer)
	chatService := services.NewChatService(registry, history, bus, stats)

	tokens, err := auth.NewTokenIssuer(config.GateSessionTTL)
	if err != nil {
		return exitRuntime, fmt.Errorf("token issuer: %w", err)
	}
	gate := auth.NewGate(logger, config.KeyHash, tokens)

	gateway := ws.NewGateway(logger, chatService)
	httpServer := web.NewServer(logger, config, gate, gateway, chatService, stats)
	rtmpServer := ingest.NewServer(logger, config.RTMPPort, config.StreamKey, stats)

	// NotifyContext captures OS signals and cancels the context to
	// trigger the shutdown of every supervised worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(logger)
	sup.Add(httpServer, rtmpServer, stats)

	logger.Info("Starting streamroom",
		"http_port", config.Port,
		"rtmp_port", config.RTMPPort,
		"gate_enabled", gate.Enabled(),
		"tls", config.TLSEnabled(),
	)

	// Blocks until a signal arrives and all workers have drained.
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
