package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the config file, applies defaults and environment overrides,
// and returns a merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	data = expandEnv(data)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// expandEnv substitutes ${VAR} references in the raw config with the
// environment value. Unset variables are left untouched so a literal
// ${...} in a value survives.
func expandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	}))
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18790
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Backends.MemorySearch == "" {
		cfg.Backends.MemorySearch = "http://localhost:8900"
	}
	if cfg.Backends.MessageBus == "" {
		cfg.Backends.MessageBus = "http://localhost:8901"
	}
	if cfg.Status.PollSeconds == 0 {
		cfg.Status.PollSeconds = 15
	}
	if cfg.Status.CheckTimeoutSeconds == 0 {
		cfg.Status.CheckTimeoutSeconds = 5
	}
	if cfg.Status.HealthyThreshold == 0 {
		cfg.Status.HealthyThreshold = 2
	}
	if cfg.Status.CoherentThreshold == 0 {
		cfg.Status.CoherentThreshold = 2
	}
	if cfg.Status.ActivityWindow == 0 {
		cfg.Status.ActivityWindow = 20
	}
	if cfg.Status.RecencyMinutes == 0 {
		cfg.Status.RecencyMinutes = 30
	}
	if cfg.Layout.DebounceMillis == 0 {
		cfg.Layout.DebounceMillis = 1000
	}
	if cfg.Layout.Anchor.ID == "" {
		cfg.Layout.Anchor = Defaults().Layout.Anchor
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}

// applyEnvOverrides reads LOBEBOARD_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOBEBOARD_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("LOBEBOARD_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("LOBEBOARD_MEMORY_SEARCH_URL"); v != "" {
		cfg.Backends.MemorySearch = v
	}
	if v := os.Getenv("LOBEBOARD_MESSAGE_BUS_URL"); v != "" {
		cfg.Backends.MessageBus = v
	}
	if v := os.Getenv("LOBEBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
