// Tower orchestration server — exposes the disruption HTTP API and runs the
// multi-agent recovery pipeline against the operational data store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/irops-ai/tower/pkg/api"
	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/llm/providers/anthropic"
	"github.com/irops-ai/tower/pkg/llm/providers/bedrock"
	"github.com/irops-ai/tower/pkg/orchestrator"
	"github.com/irops-ai/tower/pkg/store"
	"github.com/irops-ai/tower/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// buildModels constructs the model fallback chain in configured order.
func buildModels(awsCfg aws.Config, chain config.ModelChainConfig) ([]llm.Model, error) {
	models := make([]llm.Model, 0, len(chain.Models))
	for _, mc := range chain.Models {
		switch mc.Provider {
		case config.ProviderBedrock:
			models = append(models, bedrock.NewFromConfig(awsCfg, mc))
		case config.ProviderAnthropic:
			m, err := anthropic.NewFromEnv(mc)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", mc.ModelID, err)
			}
			models = append(models, m)
		default:
			return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
		}
	}
	return models, nil
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env from the config directory before anything reads the environment.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting tower",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.GetStats()
	slog.Info("Configuration loaded",
		"agents", stats.Agents,
		"safety_agents", stats.SafetyAgents,
		"queries", stats.Queries,
		"primary_model", stats.PrimaryModel)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	fetcher := store.NewDynamoFetcher(dynamodb.NewFromConfig(awsCfg), cfg.Store)
	slog.Info("Data store client initialized")

	chain, err := buildModels(awsCfg, cfg.Models)
	if err != nil {
		slog.Error("Failed to build model chain", "error", err)
		os.Exit(1)
	}
	gateway := llm.NewGateway(chain...)
	slog.Info("Model gateway initialized", "models", len(chain))

	orch := orchestrator.New(cfg, gateway, fetcher)
	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: api.NewServer(orch, cfg).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// In-flight runs get the global timeout to finish before the listener dies.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Defaults.GlobalTimeout+5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	slog.Info("Shutdown complete")
}
