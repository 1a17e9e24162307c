// Package dashboard composes the clients, aggregator, and layout
// persistence into the operator-facing dashboard core.
package dashboard

import (
	"context"
	"strings"
	"sync"

	"github.com/soyeahso/lobeboard/internal/bus"
	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/layout"
	"github.com/soyeahso/lobeboard/internal/logging"
	"github.com/soyeahso/lobeboard/internal/memsearch"
	"github.com/soyeahso/lobeboard/internal/probe"
)

// InitState is the terminal state of layout initialization.
type InitState string

const (
	// InitPending means Init has not completed yet.
	InitPending InitState = "pending"
	// InitRestored means a valid persisted layout was applied.
	InitRestored InitState = "restored"
	// InitDefaultConstructed means the fixed default arrangement was
	// built, either because nothing valid was persisted or because
	// applying the persisted snapshot failed.
	InitDefaultConstructed InitState = "default"
)

// DefaultLayout declares the fixed fallback arrangement: one anchor panel
// plus satellites positioned relative to it.
type DefaultLayout struct {
	Anchor     domain.PanelSpec
	Satellites []domain.PanelSpec
}

// Options wire a Controller.
type Options struct {
	Panels   domain.PanelManager
	Layout   *layout.Manager
	Probes   *probe.Aggregator
	Activity *probe.ActivityTracker
	Bus      *bus.Client
	Memory   *memsearch.Client
	Defaults DefaultLayout
	// LocalAgent is the sender identity for outbound messages.
	LocalAgent string
	// Channel is the bus channel the dashboard reads and writes.
	Channel string
	// FetchLimit bounds each message fetch. Zero means 50.
	FetchLimit int
	Log        *logging.Logger
}

// Controller owns the dashboard session: it restores or constructs the
// panel layout once, keeps auto-save attached for the session, and routes
// operator actions to the clients.
type Controller struct {
	panels   domain.PanelManager
	layout   *layout.Manager
	probes   *probe.Aggregator
	activity *probe.ActivityTracker
	bus      *bus.Client
	memory   *memsearch.Client
	defaults DefaultLayout
	local    string
	channel  string
	limit    int
	log      *logging.Logger

	mu         sync.Mutex
	state      InitState
	detachAuto func()
}

// NewController creates an uninitialized controller.
func NewController(opts Options) *Controller {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 50
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{
		panels:   opts.Panels,
		layout:   opts.Layout,
		probes:   opts.Probes,
		activity: opts.Activity,
		bus:      opts.Bus,
		memory:   opts.Memory,
		defaults: opts.Defaults,
		local:    opts.LocalAgent,
		channel:  opts.Channel,
		limit:    opts.FetchLimit,
		log:      log.Sub("dashboard"),
		state:    InitPending,
	}
}

// Init restores the persisted layout or builds the default one, then
// attaches auto-save for the remainder of the session. It is idempotent:
// a second call (duplicate mount) neither creates duplicate panels nor
// stacks a second auto-save subscription. No failure escapes: a corrupt
// snapshot or a failed apply falls through to default construction.
func (c *Controller) Init() InitState {
	c.mu.Lock()
	if c.state != InitPending {
		state := c.state
		c.mu.Unlock()
		c.log.Debug().Str("state", string(state)).Msg("duplicate init ignored")
		return state
	}
	c.mu.Unlock()

	state := InitDefaultConstructed
	if snapshot, ok := c.layout.Load(); ok {
		if err := c.applySnapshot(snapshot); err != nil {
			c.log.Warn().Err(err).Msg("applying persisted layout failed, building default")
			c.buildDefault()
		} else {
			state = InitRestored
		}
	} else {
		c.buildDefault()
	}

	detach := c.layout.AttachAutoSave(c.panels)

	c.mu.Lock()
	// A concurrent Init may have won the race while we worked.
	if c.state != InitPending {
		state = c.state
		c.mu.Unlock()
		detach()
		return state
	}
	c.state = state
	c.detachAuto = detach
	c.mu.Unlock()

	c.log.Info().Str("state", string(state)).Msg("dashboard initialized")
	return state
}

// applySnapshot hands the snapshot to the panel manager, converting a
// panic from malformed input into an error so init can fall back.
func (c *Controller) applySnapshot(snapshot domain.LayoutSnapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &applyPanicError{value: r}
		}
	}()
	return c.panels.FromSnapshot(snapshot)
}

type applyPanicError struct{ value any }

func (e *applyPanicError) Error() string { return "panel manager rejected snapshot" }

func (c *Controller) buildDefault() {
	if err := c.panels.AddPanel(c.defaults.Anchor); err != nil {
		c.log.Error().Err(err).Str("panel", c.defaults.Anchor.ID).Msg("failed to add anchor panel")
		return
	}
	for _, sat := range c.defaults.Satellites {
		spec := sat
		if spec.Position == nil {
			spec.Position = &domain.PanelPosition{RelativeTo: c.defaults.Anchor.ID, Direction: "right"}
		}
		if err := c.panels.AddPanel(spec); err != nil {
			c.log.Error().Err(err).Str("panel", spec.ID).Msg("failed to add satellite panel")
		}
	}
}

// State returns the initialization state.
func (c *Controller) State() InitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Teardown detaches auto-save and flushes any pending layout write. The
// controller returns to pending and may be initialized again.
func (c *Controller) Teardown() {
	c.mu.Lock()
	detach := c.detachAuto
	c.detachAuto = nil
	c.state = InitPending
	c.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// Refresh runs one poll cycle: fetch recent messages, derive agent
// activity, and recompute the federation summary. A bus failure keeps the
// previous message and activity data; only connectivity and health drop.
func (c *Controller) Refresh(ctx context.Context) domain.FederationSummary {
	busUp := c.bus.CheckHealth(ctx)
	memUp := c.memory.CheckHealth(ctx)

	var msgs []domain.Message
	if busUp {
		msgs = c.bus.FetchMessages(ctx, c.channel, c.limit, false)
	}

	connectivity := map[string]bool{
		"messageBus":   busUp,
		"memorySearch": memUp,
	}
	summary := c.activity.Observe(msgs, busUp, connectivity)
	c.log.Debug().
		Str("health", string(summary.Health)).
		Int("active", summary.ActiveAgents).
		Msg("refresh cycle complete")
	return summary
}

// SendMessage validates and posts an operator message, then re-fetches so
// the sent message is observed from the bus rather than injected locally.
// The returned messages are the post-send view; sent is false when the
// body was empty or the bus rejected the post.
func (c *Controller) SendMessage(ctx context.Context, content, toAgent string) (sent bool, msgs []domain.Message) {
	if strings.TrimSpace(content) == "" {
		return false, c.activity.Messages()
	}

	sent = c.bus.SendMessage(ctx, bus.SendRequest{
		Content: content,
		From:    c.local,
		ToAgent: toAgent,
		Channel: c.channel,
	})
	if !sent {
		c.log.Warn().Str("to", toAgent).Msg("message send failed")
	}

	msgs = c.bus.FetchMessages(ctx, c.channel, c.limit, false)
	return sent, msgs
}

// Search routes a query to the memory-search client. Empty queries are
// rejected locally inside the client before any network call.
func (c *Controller) Search(ctx context.Context, query string, opts memsearch.SearchOptions) memsearch.SearchResult {
	return c.memory.Search(ctx, query, opts)
}

// HealthLabel derives the operator-facing top-level label from the
// current summary and probe states.
func (c *Controller) HealthLabel() string {
	summary := c.activity.Summary()
	probes := c.probes.Summary()
	switch {
	case summary.Health == domain.HealthOffline:
		return "offline"
	case summary.Health == domain.HealthCoherent && probes.Healthy:
		return "coherent"
	default:
		return "degraded"
	}
}
