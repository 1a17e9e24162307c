package cli

import (
	"net/http"
	"time"

	"github.com/soyeahso/lobeboard/internal/bus"
	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/memsearch"
	"github.com/soyeahso/lobeboard/internal/probe"
)

// probeIDs for the two first-class backends.
const (
	probeMemorySearch = "memory-search"
	probeMessageBus   = "message-bus"
)

// buildProbeSpecs assembles the probe registry from config: the two
// first-class backends plus any extra health-checked endpoints.
func buildProbeSpecs(cfg config.Config) []probe.Spec {
	checkClient := &http.Client{Timeout: time.Duration(cfg.Status.CheckTimeoutSeconds) * time.Second}

	specs := []probe.Spec{
		{
			ID:       probeMemorySearch,
			Name:     "Memory Search",
			Endpoint: cfg.Backends.MemorySearch,
			Check:    probe.HTTPCheck(checkClient, cfg.Backends.MemorySearch),
		},
		{
			ID:       probeMessageBus,
			Name:     "Message Bus",
			Endpoint: cfg.Backends.MessageBus,
			Check:    probe.HTTPCheck(checkClient, cfg.Backends.MessageBus),
		},
	}

	for _, entry := range cfg.Probes {
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		specs = append(specs, probe.Spec{
			ID:       entry.ID,
			Name:     name,
			Endpoint: entry.Endpoint,
			Interval: time.Duration(entry.IntervalSeconds) * time.Second,
			Check:    probe.HTTPCheck(checkClient, entry.Endpoint),
		})
	}
	return specs
}

// buildAgents maps configured agent entries into the domain roster.
func buildAgents(cfg config.Config) []domain.Agent {
	agents := make([]domain.Agent, 0, len(cfg.Agents.List))
	for _, entry := range cfg.Agents.List {
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		agents = append(agents, domain.Agent{
			ID:        entry.ID,
			Name:      name,
			Glyph:     entry.Glyph,
			Substrate: entry.Substrate,
		})
	}
	return agents
}

// buildLobeMap assembles the internal-to-wire identifier table from the
// agent roster.
func buildLobeMap(cfg config.Config) *bus.LobeMap {
	table := make(map[string]string)
	for _, entry := range cfg.Agents.List {
		if entry.Lobe != "" {
			table[entry.ID] = entry.Lobe
		}
	}
	return bus.NewLobeMap(table)
}

func buildActivityPolicy(cfg config.Config) probe.ActivityPolicy {
	return probe.ActivityPolicy{
		Window:            cfg.Status.ActivityWindow,
		Recency:           time.Duration(cfg.Status.RecencyMinutes) * time.Minute,
		CoherentThreshold: cfg.Status.CoherentThreshold,
		LocalAgent:        cfg.Agents.Local,
	}
}

func newBusClient(cfg config.Config) *bus.Client {
	return bus.NewClient(cfg.Backends.MessageBus, buildLobeMap(cfg), log)
}

func newMemoryClient(cfg config.Config) *memsearch.Client {
	return memsearch.NewClient(cfg.Backends.MemorySearch, log)
}
