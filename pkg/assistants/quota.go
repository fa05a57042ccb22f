package assistants

import (
	"sync/atomic"

	"github.com/uniportal/assistant/pkg/config"
)

// DefaultDailyLimit is the web-chat message quota applied when the agent's
// tenant document sets no explicit limit.
const DefaultDailyLimit = 100

// Quota resolves per-agent limits and plugin flags from configuration. Pure
// lookups with no caching: values change rarely and a read costs nothing.
// The configuration sits behind an atomic pointer so limits follow a reload.
type Quota struct {
	cfg atomic.Pointer[config.Config]
}

func NewQuota(cfg *config.Config) *Quota {
	q := &Quota{}
	q.cfg.Store(cfg)
	return q
}

// UpdateConfig swaps the configuration in place.
func (q *Quota) UpdateConfig(cfg *config.Config) {
	q.cfg.Store(cfg)
}

func (q *Quota) agent(alias string) *config.AgentConfig {
	agents := q.cfg.Load().Agents
	for i := range agents {
		if agents[i].Alias == alias {
			return &agents[i]
		}
	}
	return nil
}

// DailyLimit returns the agent's web-chat daily message quota. Missing or
// malformed configuration falls back to DefaultDailyLimit.
func (q *Quota) DailyLimit(alias string) int {
	ac := q.agent(alias)
	if ac == nil {
		return DefaultDailyLimit
	}
	tenant := config.DecodeTenant(ac.Tenant)
	if tenant.DailyMessageLimit == nil || *tenant.DailyMessageLimit < 0 {
		return DefaultDailyLimit
	}
	return *tenant.DailyMessageLimit
}

// EmbedDailyLimit returns the embed-channel daily quota, or nil when the
// channel is unlimited (the default).
func (q *Quota) EmbedDailyLimit(alias string) *int {
	ac := q.agent(alias)
	if ac == nil {
		return nil
	}
	tenant := config.DecodeTenant(ac.Tenant)
	if tenant.EmbedDailyLimit == nil || *tenant.EmbedDailyLimit < 0 {
		return nil
	}
	return tenant.EmbedDailyLimit
}

// RetrievalEnabled reports whether the retrieval plugin flag is on. Callers
// must check this before constructing any retrieval URL.
func (q *Quota) RetrievalEnabled() bool {
	return q.cfg.Load().Retrieval.Enabled
}

// RetrievalSetting names the administrative flag gating retrieval, for error
// messages telling an operator what to enable.
const RetrievalSetting = "retrieval.enabled"
