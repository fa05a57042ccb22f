package main

import (
	"fmt"
	"runtime/debug"

	"gopkg.in/yaml.v3"

	"github.com/uniportal/assistant/pkg/config"
)

// ValidateCmd checks a configuration file without starting the server.
type ValidateCmd struct {
	Print bool `help:"Print the effective configuration (defaults applied, secrets redacted)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.LoadFile(cli.Config)
	if err != nil {
		return err
	}

	if c.Print {
		redactSecrets(cfg)
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Printf("Configuration is valid.\n")
	fmt.Printf("  agents:       %d\n", len(cfg.Agents))
	for _, agent := range cfg.Agents {
		state := "active"
		if !agent.IsActive() {
			state = "inactive"
		}
		fmt.Printf("    - %s (%s)\n", agent.Alias, state)
	}
	fmt.Printf("  embedder:     %s\n", cfg.Embedder.Type)
	fmt.Printf("  vector store: %s\n", cfg.VectorStore.Type)
	fmt.Printf("  llm:          %s (%s)\n", cfg.LLM.Type, cfg.LLM.Model)
	fmt.Printf("  retrieval:    enabled=%t collection=%s\n", cfg.Retrieval.Enabled, cfg.Retrieval.Collection)
	return nil
}

func redactSecrets(cfg *config.Config) {
	if cfg.Embedder.APIKey != "" {
		cfg.Embedder.APIKey = "[redacted]"
	}
	if cfg.VectorStore.APIKey != "" {
		cfg.VectorStore.APIKey = "[redacted]"
	}
	if cfg.LLM.APIKey != "" {
		cfg.LLM.APIKey = "[redacted]"
	}
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("assistant version %s\n", version)
	return nil
}
