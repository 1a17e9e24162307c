package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "loopback",
		},
		Backends: BackendsConfig{
			MemorySearch: "http://localhost:8900",
			MessageBus:   "http://localhost:8901",
		},
		Status: StatusConfig{
			PollSeconds:         15,
			CheckTimeoutSeconds: 5,
			HealthyThreshold:    2,
			CoherentThreshold:   2,
			ActivityWindow:      20,
			RecencyMinutes:      30,
		},
		Layout: LayoutConfig{
			DebounceMillis: 1000,
			Anchor:         PanelEntry{ID: "federation", Title: "Federation", Kind: "status"},
			Satellites: []PanelEntry{
				{ID: "messages", Title: "Corpus Callosum", Kind: "messages", Direction: "right"},
				{ID: "memory", Title: "Memory Search", Kind: "search", Direction: "below"},
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
	}
}
