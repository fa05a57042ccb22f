// Package assistants maintains the registry of configured assistant agents
// and merges their live metadata with configuration into resolved, displayable
// records. Every configured agent resolves to a record; unreachable agents
// resolve with health "unhealthy" instead of disappearing from listings.
package assistants

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/metadata"
)

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// maxDelegateDescription caps delegate descriptions so routing prompts stay
// within a predictable size.
const maxDelegateDescription = 300

// ResolvedAssistant merges an agent's configuration with its cached metadata
// and derived presentation attributes. Request-scoped, never persisted.
type ResolvedAssistant struct {
	Alias        string                  `json:"alias"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description,omitempty"`
	BaseURL      string                  `json:"base_url"`
	DomainURL    string                  `json:"domain_url,omitempty"`
	Health       string                  `json:"health"`
	Colors       ColorPair               `json:"colors"`
	RoutingHint  string                  `json:"routing_hint,omitempty"`
	DisplayOrder int                     `json:"display_order"`
	Metadata     *metadata.AgentMetadata `json:"metadata,omitempty"`
}

// DelegateAgent is one entry of the orchestrator's hand-off list.
type DelegateAgent struct {
	Alias           string                    `json:"alias"`
	Name            string                    `json:"name"`
	Icon            string                    `json:"icon,omitempty"`
	BaseURL         string                    `json:"base_url"`
	Description     string                    `json:"description,omitempty"`
	SupportedModels []metadata.SupportedModel `json:"supported_models,omitempty"`
	RoutingHint     string                    `json:"routing_hint,omitempty"`
}

// Registry exposes read APIs over the configured agent set. It owns the
// metadata fetcher (and through it the TTL cache) so administrative refresh
// has a single invalidation point. The configuration is held behind an
// atomic pointer so a reload can swap the agent roster without a restart.
type Registry struct {
	cfg     atomic.Pointer[config.Config]
	fetcher *metadata.Fetcher

	// lookupEnv is swappable for tests.
	lookupEnv func(string) (string, bool)
}

func NewRegistry(cfg *config.Config, fetcher *metadata.Fetcher) *Registry {
	r := &Registry{
		fetcher:   fetcher,
		lookupEnv: os.LookupEnv,
	}
	r.cfg.Store(cfg)
	return r
}

// UpdateConfig swaps the configuration in place. In-flight reads finish
// against the roster they started with.
func (r *Registry) UpdateConfig(cfg *config.Config) {
	r.cfg.Store(cfg)
}

func (r *Registry) config() *config.Config {
	return r.cfg.Load()
}

// Fetcher exposes the metadata fetcher for administrative invalidation.
func (r *Registry) Fetcher() *metadata.Fetcher {
	return r.fetcher
}

// ListConfigs returns the active agents ordered by display order, then alias.
// Internal agents get their base URL resolved at read time so intra-process
// calls never cross the network.
func (r *Registry) ListConfigs() []config.AgentConfig {
	agents := r.config().Agents
	configs := make([]config.AgentConfig, 0, len(agents))
	for _, ac := range agents {
		if !ac.IsActive() {
			continue
		}
		ac.BaseURL = r.resolveBaseURL(&ac)
		configs = append(configs, ac)
	}

	sort.SliceStable(configs, func(i, j int) bool {
		if configs[i].DisplayOrder != configs[j].DisplayOrder {
			return configs[i].DisplayOrder < configs[j].DisplayOrder
		}
		return configs[i].Alias < configs[j].Alias
	})
	return configs
}

// resolveBaseURL prefers an alias-specific environment override for internal
// agents, then synthesizes a localhost URL against the agent port.
func (r *Registry) resolveBaseURL(ac *config.AgentConfig) string {
	tenant := config.DecodeTenant(ac.Tenant)
	if !tenant.IsInternal {
		return ac.BaseURL
	}

	envKey := "ASSISTANT_" + strings.ToUpper(strings.ReplaceAll(ac.Alias, "-", "_")) + "_URL"
	if v, ok := r.lookupEnv(envKey); ok && v != "" {
		return v
	}
	return fmt.Sprintf("http://localhost:%d/api/%s_agent/v1", r.config().Server.AgentPort, ac.Alias)
}

// Resolve merges live metadata into the agent's configuration. It never
// fails: an unreachable agent yields an unhealthy record whose display name
// falls back to the alias.
func (r *Registry) Resolve(ctx context.Context, ac config.AgentConfig) *ResolvedAssistant {
	tenant := config.DecodeTenant(ac.Tenant)
	resolved := &ResolvedAssistant{
		Alias:        ac.Alias,
		Name:         ac.Alias,
		BaseURL:      ac.BaseURL,
		DomainURL:    ac.DomainURL,
		Health:       HealthUnhealthy,
		Colors:       ColorsFor(ac.Alias),
		RoutingHint:  tenant.RoutingHint,
		DisplayOrder: ac.DisplayOrder,
	}

	meta := r.fetcher.GetMetadata(ctx, ac.BaseURL)
	if meta == nil {
		return resolved
	}

	resolved.Health = HealthHealthy
	resolved.Name = meta.DisplayName(ac.Alias)
	resolved.Description = meta.Description
	resolved.Metadata = meta
	return resolved
}

// ResolveAll resolves every active agent concurrently. One slow or
// unreachable agent delays the result only by its own fetch timeout, never
// by blocking the others.
func (r *Registry) ResolveAll(ctx context.Context) []*ResolvedAssistant {
	configs := r.ListConfigs()
	resolved := make([]*ResolvedAssistant, len(configs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config().Retrieval.MaxConcurrentResolves)
	for i, ac := range configs {
		g.Go(func() error {
			resolved[i] = r.Resolve(ctx, ac)
			return nil
		})
	}
	g.Wait()
	return resolved
}

// GetByAlias returns nil only when no matching configuration exists. An
// unreachable but configured agent still resolves to an unhealthy record.
func (r *Registry) GetByAlias(ctx context.Context, alias string) *ResolvedAssistant {
	for _, ac := range r.ListConfigs() {
		if ac.Alias == alias {
			return r.Resolve(ctx, ac)
		}
	}
	return nil
}

// ListForOrchestrator builds the delegate set a routing agent may hand off
// to, excluding the orchestrator itself. Unhealthy agents are included:
// health describes this moment, and a delegate listed while degraded is more
// useful to the router than one that silently vanishes.
func (r *Registry) ListForOrchestrator(ctx context.Context) []DelegateAgent {
	delegates := make([]DelegateAgent, 0)
	for _, resolved := range r.ResolveAll(ctx) {
		if resolved.Alias == r.config().Retrieval.Orchestrator {
			continue
		}
		delegate := DelegateAgent{
			Alias:       resolved.Alias,
			Name:        resolved.Name,
			BaseURL:     resolved.BaseURL,
			Description: truncate(resolved.Description, maxDelegateDescription),
			RoutingHint: resolved.RoutingHint,
		}
		if resolved.Metadata != nil {
			delegate.Icon = resolved.Metadata.Icon
			delegate.SupportedModels = resolved.Metadata.SupportedModels
		}
		delegates = append(delegates, delegate)
	}
	return delegates
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
