package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.host",
			Message: "required when bind: custom",
		})
	}

	for _, pair := range []struct{ path, value string }{
		{"backends.memorySearch", cfg.Backends.MemorySearch},
		{"backends.messageBus", cfg.Backends.MessageBus},
	} {
		if pair.value == "" {
			continue
		}
		if u, err := url.Parse(pair.value); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    pair.path,
				Message: fmt.Sprintf("must be an absolute URL, got %q", pair.value),
			})
		}
	}

	seen := map[string]bool{}
	for i, p := range cfg.Probes {
		path := fmt.Sprintf("probes[%d]", i)
		if p.ID == "" {
			issues = append(issues, ValidationIssue{Path: path + ".id", Message: "id is required"})
		}
		if p.Endpoint == "" {
			issues = append(issues, ValidationIssue{Path: path + ".endpoint", Message: "endpoint is required"})
		}
		if p.ID != "" && seen[p.ID] {
			issues = append(issues, ValidationIssue{
				Path:    path + ".id",
				Message: fmt.Sprintf("duplicate probe id %q", p.ID),
			})
		}
		seen[p.ID] = true
	}

	for i, a := range cfg.Agents.List {
		if a.ID == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("agents.list[%d].id", i),
				Message: "id is required",
			})
		}
	}

	if cfg.Status.HealthyThreshold < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "status.healthyThreshold",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Status.HealthyThreshold),
		})
	}
	if cfg.Status.CoherentThreshold < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "status.coherentThreshold",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Status.CoherentThreshold),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
