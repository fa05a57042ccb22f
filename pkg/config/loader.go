package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/consul"
	"github.com/knadh/koanf/providers/etcd"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

type ConfigType string

const (
	ConfigTypeFile   ConfigType = "file"
	ConfigTypeConsul ConfigType = "consul"
	ConfigTypeEtcd   ConfigType = "etcd"
)

type LoaderOptions struct {
	Type ConfigType

	// Path is the file path or the KV key for consul/etcd.
	Path string

	Endpoints []string
}

// Loader reads configuration from a file, a consul KV key or an etcd key,
// and can watch the source for changes. Call Load before Watch.
type Loader struct {
	options  LoaderOptions
	parser   *yaml.YAML
	provider koanf.Provider
	stopChan chan struct{}
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Type == "" {
		opts.Type = ConfigTypeFile
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	if len(opts.Endpoints) == 0 {
		switch opts.Type {
		case ConfigTypeConsul:
			opts.Endpoints = []string{"localhost:8500"}
		case ConfigTypeEtcd:
			opts.Endpoints = []string{"localhost:2379"}
		}
	}

	return &Loader{
		options:  opts,
		parser:   yaml.Parser(),
		stopChan: make(chan struct{}),
	}, nil
}

func (l *Loader) Load() (*Config, error) {
	provider, parser, err := l.buildProvider()
	if err != nil {
		return nil, err
	}
	l.provider = provider
	return l.load(parser)
}

// load reads the source into a fresh koanf so keys removed upstream do not
// linger across reloads.
func (l *Loader) load(parser koanf.Parser) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(l.provider, parser); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.options.Type, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandConfigEnv(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *Loader) buildProvider() (koanf.Provider, koanf.Parser, error) {
	switch l.options.Type {
	case ConfigTypeFile:
		return file.Provider(l.options.Path), l.parser, nil

	case ConfigTypeConsul:
		consulConfig := api.DefaultConfig()
		consulConfig.Address = l.options.Endpoints[0]
		return consul.Provider(consul.Config{
			Cfg: consulConfig,
			Key: l.options.Path,
		}), nil, nil

	case ConfigTypeEtcd:
		return etcd.Provider(etcd.Config{
			Endpoints:   l.options.Endpoints,
			DialTimeout: 5 * time.Second,
			Key:         l.options.Path,
		}), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported config type: %s", l.options.Type)
	}
}

// Watcher is implemented by koanf providers that support change
// notifications (the file provider does).
type Watcher interface {
	Watch(cb func(event interface{}, err error)) error
}

// Watch reloads the source whenever the provider reports a change and hands
// each successfully validated config to onChange. A reload that fails to
// parse or validate keeps the previous configuration in effect.
func (l *Loader) Watch(onChange func(*Config) error) error {
	if l.provider == nil {
		return fmt.Errorf("config must be loaded before watching")
	}
	watcher, ok := l.provider.(Watcher)
	if !ok {
		return fmt.Errorf("%s config provider does not support watching", l.options.Type)
	}

	_, parser, err := l.buildProvider()
	if err != nil {
		return err
	}

	slog.Info("config watcher started", "type", l.options.Type, "path", l.options.Path)

	return watcher.Watch(func(event interface{}, err error) {
		select {
		case <-l.stopChan:
			return
		default:
		}

		if err != nil {
			slog.Warn("config watch error", "error", err)
			return
		}

		newCfg, err := l.load(parser)
		if err != nil {
			slog.Warn("reloaded config is invalid, keeping previous", "error", err)
			return
		}

		if onChange != nil {
			if err := onChange(newCfg); err != nil {
				slog.Warn("config change callback failed", "error", err)
				return
			}
		}
		slog.Info("configuration reloaded", "type", l.options.Type)
	})
}

// Stop terminates the change watcher, if any.
func (l *Loader) Stop() {
	close(l.stopChan)
}

// LoadFile reads, env-expands and parses a YAML config file in one call.
// This is the common path for the CLI.
func LoadFile(path string) (*Config, error) {
	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := []byte(ExpandEnvVars(string(raw)))

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(expanded), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// expandConfigEnv applies env expansion to the string fields that commonly
// carry secrets or deployment-specific URLs.
func expandConfigEnv(cfg *Config) {
	cfg.Embedder.URL = ExpandEnvVars(cfg.Embedder.URL)
	cfg.Embedder.BaseURL = ExpandEnvVars(cfg.Embedder.BaseURL)
	cfg.Embedder.APIKey = ExpandEnvVars(cfg.Embedder.APIKey)
	cfg.VectorStore.URL = ExpandEnvVars(cfg.VectorStore.URL)
	cfg.VectorStore.Host = ExpandEnvVars(cfg.VectorStore.Host)
	cfg.VectorStore.APIKey = ExpandEnvVars(cfg.VectorStore.APIKey)
	cfg.LLM.BaseURL = ExpandEnvVars(cfg.LLM.BaseURL)
	cfg.LLM.APIKey = ExpandEnvVars(cfg.LLM.APIKey)
	for i := range cfg.Agents {
		cfg.Agents[i].BaseURL = ExpandEnvVars(cfg.Agents[i].BaseURL)
		cfg.Agents[i].DomainURL = ExpandEnvVars(cfg.Agents[i].DomainURL)
	}
}
