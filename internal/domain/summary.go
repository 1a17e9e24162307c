package domain

import "time"

// HealthState is the top-level federation health classification.
type HealthState string

const (
	HealthCoherent HealthState = "coherent"
	HealthDegraded HealthState = "degraded"
	HealthOffline  HealthState = "offline"
)

// FederationSummary is the aggregate view shown to the operator. It is
// recomputed as a whole on every poll cycle and replaced atomically, so
// consumers never see a partially updated summary.
type FederationSummary struct {
	Health       HealthState     `json:"health"`
	ActiveAgents int             `json:"activeAgents"`
	TotalAgents  int             `json:"totalAgents"`
	Connectivity map[string]bool `json:"connectivity"`
	Uptime       time.Duration   `json:"uptime"`
}
