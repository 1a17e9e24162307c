package probe

import (
	"sync"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
)

// ActivityPolicy tunes agent-activity derivation and the federation
// health thresholds.
type ActivityPolicy struct {
	// Window is how many recent messages to inspect. Zero means 20.
	Window int
	// Recency is how fresh an authored message must be for the author to
	// count as active. Zero means 30 minutes.
	Recency time.Duration
	// CoherentThreshold is the minimum active-agent count for the
	// federation to be coherent. Zero means 2.
	CoherentThreshold int
	// LocalAgent identifies the agent representing this process, which
	// is always reported active.
	LocalAgent string
}

// ActivityTracker derives per-agent activity and the federation summary
// from recent message traffic. A failed poll cycle never clears the last
// known-good data: only connectivity and health are downgraded, so the
// operator sees stale-but-present state instead of a blank panel.
type ActivityTracker struct {
	policy ActivityPolicy
	start  time.Time
	now    func() time.Time

	mu       sync.Mutex
	agents   []domain.Agent
	messages []domain.Message
	summary  domain.FederationSummary
}

// NewActivityTracker creates a tracker over a fixed agent roster.
func NewActivityTracker(agents []domain.Agent, policy ActivityPolicy) *ActivityTracker {
	if policy.Window <= 0 {
		policy.Window = 20
	}
	if policy.Recency <= 0 {
		policy.Recency = 30 * time.Minute
	}
	if policy.CoherentThreshold <= 0 {
		policy.CoherentThreshold = 2
	}

	roster := make([]domain.Agent, len(agents))
	copy(roster, agents)
	for i := range roster {
		if roster[i].ID == policy.LocalAgent {
			roster[i].Activity = domain.AgentActive
		} else {
			roster[i].Activity = domain.AgentIdle
		}
	}

	t := &ActivityTracker{
		policy: policy,
		start:  time.Now(),
		now:    time.Now,
		agents: roster,
	}
	t.summary = t.summarizeLocked(false, nil)
	return t
}

// Observe ingests the result of one poll cycle and returns the freshly
// computed summary. When busConnected is false the messages argument is
// ignored and previously fetched data is retained.
func (t *ActivityTracker) Observe(messages []domain.Message, busConnected bool, connectivity map[string]bool) domain.FederationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	if busConnected {
		window := messages
		if len(window) > t.policy.Window {
			window = window[len(window)-t.policy.Window:]
		}
		t.messages = make([]domain.Message, len(window))
		copy(t.messages, window)

		cutoff := t.now().Add(-t.policy.Recency)
		lastSpoke := make(map[string]time.Time, len(t.messages))
		for _, m := range t.messages {
			if m.Timestamp.After(lastSpoke[m.From]) {
				lastSpoke[m.From] = m.Timestamp
			}
		}
		for i := range t.agents {
			switch {
			case t.agents[i].ID == t.policy.LocalAgent:
				t.agents[i].Activity = domain.AgentActive
			case lastSpoke[t.agents[i].ID].After(cutoff):
				t.agents[i].Activity = domain.AgentActive
			default:
				t.agents[i].Activity = domain.AgentIdle
			}
		}
	}

	t.summary = t.summarizeLocked(busConnected, connectivity)
	return t.summary
}

// Agents returns the roster with last-derived activity.
func (t *ActivityTracker) Agents() []domain.Agent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Agent, len(t.agents))
	copy(out, t.agents)
	return out
}

// Messages returns the retained recent-message window, oldest first.
func (t *ActivityTracker) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Summary returns the last computed federation summary.
func (t *ActivityTracker) Summary() domain.FederationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

func (t *ActivityTracker) summarizeLocked(busConnected bool, connectivity map[string]bool) domain.FederationSummary {
	active := 0
	for _, a := range t.agents {
		if a.Activity == domain.AgentActive {
			active++
		}
	}

	health := domain.HealthDegraded
	switch {
	case !busConnected:
		health = domain.HealthOffline
	case active >= t.policy.CoherentThreshold:
		health = domain.HealthCoherent
	}

	conn := make(map[string]bool, len(connectivity))
	for k, v := range connectivity {
		conn[k] = v
	}

	return domain.FederationSummary{
		Health:       health,
		ActiveAgents: active,
		TotalAgents:  len(t.agents),
		Connectivity: conn,
		Uptime:       time.Since(t.start),
	}
}
