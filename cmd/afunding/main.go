package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afunding/internal/api"
	"afunding/internal/campaigns"
	"afunding/internal/config"
	"afunding/internal/ledger"
	"afunding/internal/metrics"
	"afunding/internal/session"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	if cfg.Log.SlogFormat() == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("Configuration loaded",
		"rpc_server", cfg.RPCServerURL,
		"contract", cfg.ContractAddress,
		"fetch_workers", cfg.FetchWorkers,
		"log_level", cfg.Log.Level,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the ledger connection and bind the registry
	conn, err := ledger.Connect(ctx, cfg.RPCServerURL)
	if err != nil {
		log.Fatalf("Failed to connect to RPC endpoint: %v", err)
	}
	defer conn.Close()

	contract, err := conn.Bind(cfg.ContractAddress, ledger.CrowdfundingABI)
	if err != nil {
		log.Fatalf("Failed to load contract: %v", err)
	}

	sender, err := ledger.ParseAddress(cfg.SenderAddress)
	if err != nil {
		log.Fatalf("Invalid sender address: %v", err)
	}
	slog.Warn("Campaigns are submitted from a fixed node-managed account",
		"sender", sender.Hex(),
	)

	// 4. Sessions and API server
	metrics.FetchWorkers.Set(float64(max(cfg.FetchWorkers, 1)))
	sessions := session.NewManager(contract, sender, campaigns.SequenceConfig{
		Workers: cfg.FetchWorkers,
	})

	server := api.NewServer(cfg.HTTP, sessions)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	go sweepSessions(ctx, sessions, cfg.SessionIdleTimeout)

	// 5. Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}

	slog.Info("Afunding stopped")
}

// sweepSessions drops idle sessions until ctx is done
func sweepSessions(ctx context.Context, sessions *session.Manager, idle time.Duration) {
	ticker := time.NewTicker(max(idle/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions.Sweep(now, idle)
		}
	}
}
