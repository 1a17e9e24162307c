package domain

import "time"

// ProbeStatus is the last-known connectivity state of a backend probe.
type ProbeStatus string

const (
	ProbeConnected    ProbeStatus = "connected"
	ProbeConnecting   ProbeStatus = "connecting"
	ProbeDisconnected ProbeStatus = "disconnected"
	ProbeError        ProbeStatus = "error"
)

// Probe is a named backend endpoint with health-check state. Probes are
// created once at startup from the configured registry and only mutated
// by the status aggregator in response to check results.
type Probe struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Endpoint    string      `json:"endpoint"`
	Status      ProbeStatus `json:"status"`
	LastChecked time.Time   `json:"lastChecked,omitzero"`
	LatencyMS   int64       `json:"latencyMs,omitempty"`
	LastError   string      `json:"lastError,omitempty"`
}
