package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uniportal/assistant/pkg/agents"
	"github.com/uniportal/assistant/pkg/assistants"
	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/databases"
	"github.com/uniportal/assistant/pkg/embedders"
	"github.com/uniportal/assistant/pkg/llms"
	"github.com/uniportal/assistant/pkg/metadata"
	"github.com/uniportal/assistant/pkg/observability"
	"github.com/uniportal/assistant/pkg/pipeline"
	"github.com/uniportal/assistant/pkg/server"
)

// ServeCmd starts the portal HTTP server.
type ServeCmd struct {
	Port            int      `help:"Override the configured listen port."`
	ConfigType      string   `help:"Configuration source." enum:"file,consul,etcd" default:"file"`
	ConfigEndpoints []string `help:"Consul or etcd endpoints."`
	Watch           bool     `help:"Reload the agent roster and quotas when the config source changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	// .env is optional; a missing file is not an error.
	if err := config.LoadDotEnv(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	loader, err := config.NewLoader(config.LoaderOptions{
		Type:      config.ConfigType(c.ConfigType),
		Path:      cli.Config,
		Endpoints: c.ConfigEndpoints,
	})
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	if _, err := observability.InitGlobalTracer(ctx, cfg.Observability.Tracing); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	metrics, err := observability.InitMetrics(ctx, cfg.Observability.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)

	embedder, err := embedders.NewEmbedderFromConfig(&cfg.Embedder)
	if err != nil {
		return fmt.Errorf("failed to configure embedder: %w", err)
	}
	store, err := databases.NewProviderFromConfig(&cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("failed to configure vector store: %w", err)
	}
	defer store.Close()
	llm, err := llms.NewProviderFromConfig(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to configure llm: %w", err)
	}

	cache := metadata.NewCache(time.Duration(cfg.Retrieval.MetadataTTL) * time.Second)
	fetcher := metadata.NewFetcher(cache,
		metadata.WithTimeout(time.Duration(cfg.Retrieval.MetadataTimeout)*time.Second))

	registry := assistants.NewRegistry(cfg, fetcher)
	quota := assistants.NewQuota(cfg)
	pipe := pipeline.New(&cfg.Retrieval, embedder, store, llm)
	agentClient := agents.NewClient()

	if c.Watch {
		// Provider endpoints and the listen address still need a restart;
		// the agent roster and its quotas follow the source live.
		err := loader.Watch(func(newCfg *config.Config) error {
			registry.UpdateConfig(newCfg)
			quota.UpdateConfig(newCfg)
			slog.Info("agent roster and quotas reloaded", "agents", len(newCfg.Agents))
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		defer loader.Stop()
	}

	slog.Info("portal starting",
		"agents", len(cfg.Agents),
		"retrieval_enabled", cfg.Retrieval.Enabled,
		"collection", cfg.Retrieval.Collection)

	return server.New(cfg, registry, quota, pipe, agentClient, store).Start(ctx)
}
