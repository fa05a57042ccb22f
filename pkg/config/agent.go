package config

import (
	"fmt"
	"net/url"
	"strings"
)

// AgentConfig describes one configured assistant agent. Agents are never
// deleted while referenced by chat history; deactivation is the Active flag.
type AgentConfig struct {
	// Alias is the stable, unique identifier (e.g. "regulations", "data").
	Alias string `yaml:"alias" koanf:"alias"`

	// BaseURL is the agent service root implementing /metadata, /data, /ask.
	BaseURL string `yaml:"base_url" koanf:"base_url"`

	// DomainURL is an optional externally reachable (proxied) URL.
	DomainURL string `yaml:"domain_url,omitempty" koanf:"domain_url"`

	// Active gates visibility; inactive agents are hidden but retained.
	Active *bool `yaml:"active,omitempty" koanf:"active"`

	// DisplayOrder sorts listings; ties break on alias.
	DisplayOrder int `yaml:"display_order,omitempty" koanf:"display_order"`

	// Tenant is the opaque per-tenant configuration document. It is decoded
	// defensively via DecodeTenant; unknown keys are ignored.
	Tenant map[string]interface{} `yaml:"tenant,omitempty" koanf:"tenant"`
}

func (c *AgentConfig) SetDefaults() {
	if c.Active == nil {
		active := true
		c.Active = &active
	}
}

func (c *AgentConfig) Validate() error {
	if c.Alias == "" {
		return fmt.Errorf("alias is required")
	}
	if strings.ContainsAny(c.Alias, " /") {
		return fmt.Errorf("alias %q must be URL-safe", c.Alias)
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	}
	return nil
}

// IsActive reports whether the agent should appear in listings.
func (c *AgentConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// TenantConfig is the typed view over the opaque per-tenant document.
// Missing or malformed fields fall back to zero values; quota defaults are
// applied by the quota resolver, not here.
type TenantConfig struct {
	// RoutingHint tells the orchestrator when to delegate to this agent.
	RoutingHint string

	// DailyMessageLimit overrides the web-chat daily message quota.
	DailyMessageLimit *int

	// EmbedDailyLimit overrides the embed-channel daily quota.
	EmbedDailyLimit *int

	// IsInternal marks agents served from this process; their base URL is
	// resolved at read time instead of being taken from configuration.
	IsInternal bool

	// EmbedAllowAll permits embedding the agent on any external domain.
	EmbedAllowAll bool

	// EmbedAllowedDomains whitelists embedding domains when EmbedAllowAll
	// is false.
	EmbedAllowedDomains []string
}

// DecodeTenant extracts the typed tenant configuration from the opaque map.
// It never fails: values of unexpected types are ignored.
func DecodeTenant(raw map[string]interface{}) TenantConfig {
	var tc TenantConfig
	if raw == nil {
		return tc
	}

	if v, ok := raw["routing_hint"].(string); ok {
		tc.RoutingHint = v
	}
	if n, ok := intValue(raw["daily_message_limit"]); ok {
		tc.DailyMessageLimit = &n
	}
	if n, ok := intValue(raw["embed_daily_limit"]); ok {
		tc.EmbedDailyLimit = &n
	}
	if v, ok := raw["is_internal"].(bool); ok {
		tc.IsInternal = v
	}
	if v, ok := raw["embed_allow_all"].(bool); ok {
		tc.EmbedAllowAll = v
	}
	if list, ok := raw["embed_allowed_domains"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				tc.EmbedAllowedDomains = append(tc.EmbedAllowedDomains, s)
			}
		}
	}

	return tc
}

// intValue accepts the numeric encodings YAML and JSON decoders produce.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
