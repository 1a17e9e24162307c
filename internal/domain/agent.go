package domain

// ActivityStatus classifies how recently an agent has spoken.
type ActivityStatus string

const (
	AgentActive  ActivityStatus = "active"
	AgentIdle    ActivityStatus = "idle"
	AgentOffline ActivityStatus = "offline"
)

// Agent is a logical participant in the federation. Activity is derived
// from recent message traffic each poll cycle; the identity fields come
// from configuration and never change at runtime.
type Agent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Glyph     string         `json:"glyph,omitempty"`
	Substrate string         `json:"substrate,omitempty"`
	Activity  ActivityStatus `json:"activity"`
}
