package config

// Config is the root configuration for lobeboard.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Backends BackendsConfig `yaml:"backends,omitempty"`
	Probes   []ProbeEntry   `yaml:"probes,omitempty"`
	Agents   AgentsConfig   `yaml:"agents,omitempty"`
	Status   StatusConfig   `yaml:"status,omitempty"`
	Layout   LayoutConfig   `yaml:"layout,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// GatewayConfig controls the dashboard HTTP/WebSocket server.
type GatewayConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	Host string `yaml:"host,omitempty"` // used when bind: custom
}

// BackendsConfig holds base URLs for the two first-class backends. Extra
// health-checked endpoints go in the probes list.
type BackendsConfig struct {
	MemorySearch string `yaml:"memorySearch,omitempty"`
	MessageBus   string `yaml:"messageBus,omitempty"`
}

// ProbeEntry declares an additional health-checked endpoint.
type ProbeEntry struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name,omitempty"`
	Endpoint        string `yaml:"endpoint"`
	IntervalSeconds int    `yaml:"intervalSeconds,omitempty"`
}

// AgentsConfig declares the federation participants.
type AgentsConfig struct {
	// Local is the agent representing this process; it is always
	// reported active.
	Local string       `yaml:"local,omitempty"`
	List  []AgentEntry `yaml:"list,omitempty"`
}

// AgentEntry defines a single agent. Lobe is the wire identifier used by
// the message bus; it may differ from the internal ID and is mapped on
// both read and write paths.
type AgentEntry struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name,omitempty"`
	Glyph     string `yaml:"glyph,omitempty"`
	Substrate string `yaml:"substrate,omitempty"`
	Lobe      string `yaml:"lobe,omitempty"`
}

// StatusConfig tunes polling and the health policy thresholds.
type StatusConfig struct {
	PollSeconds         int `yaml:"pollSeconds,omitempty"`
	CheckTimeoutSeconds int `yaml:"checkTimeoutSeconds,omitempty"`
	// HealthyThreshold is the minimum connected-probe count for the
	// summary to report healthy.
	HealthyThreshold int `yaml:"healthyThreshold,omitempty"`
	// CoherentThreshold is the minimum active-agent count for the
	// federation to report coherent.
	CoherentThreshold int `yaml:"coherentThreshold,omitempty"`
	ActivityWindow    int `yaml:"activityWindow,omitempty"`
	RecencyMinutes    int `yaml:"recencyMinutes,omitempty"`
}

// LayoutConfig controls layout persistence and the default arrangement.
type LayoutConfig struct {
	DebounceMillis int          `yaml:"debounceMillis,omitempty"`
	Anchor         PanelEntry   `yaml:"anchor,omitempty"`
	Satellites     []PanelEntry `yaml:"satellites,omitempty"`
}

// PanelEntry declares a panel in the default layout.
type PanelEntry struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title,omitempty"`
	Kind      string `yaml:"kind,omitempty"`
	Direction string `yaml:"direction,omitempty"` // placement relative to the anchor
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "compact" | "json"
}
