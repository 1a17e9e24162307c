// Package probe polls backend endpoints and aggregates their health.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/logging"
)

// ErrUnknownProbe is returned when a check is requested for an
// unregistered probe ID. This is a caller bug, not a probe failure.
var ErrUnknownProbe = errors.New("probe: unknown probe id")

// BackendError indicates the backend responded but signaled failure
// (non-2xx). The probe transitions to status "error" rather than
// "disconnected" so the operator can tell a sick backend from a dead one.
type BackendError struct {
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// CheckFunc runs one health check. A nil return means connected; a
// *BackendError means the backend answered but is unhealthy; any other
// error is treated as a transport failure (disconnected).
type CheckFunc func(ctx context.Context) error

// Spec declares a probe: identity plus its own check procedure and
// polling cadence. Each entry owns its check function, so adding a probe
// type never touches a central conditional.
type Spec struct {
	ID       string
	Name     string
	Endpoint string
	Interval time.Duration
	Check    CheckFunc
}

type probeEntry struct {
	spec  Spec
	state domain.Probe
}

// Options configure an Aggregator.
type Options struct {
	// CheckTimeout bounds each individual check. Zero means 5s.
	CheckTimeout time.Duration
	// HealthyThreshold is the minimum connected count for Summary to
	// report healthy. Zero means 2.
	HealthyThreshold int
	Log              *logging.Logger
}

// Summary is a pure function of current probe states.
type Summary struct {
	ConnectedCount int  `json:"connectedCount"`
	TotalCount     int  `json:"totalCount"`
	Healthy        bool `json:"healthy"`
}

// Aggregator holds last-known status per probe, runs checks with bounded
// timeouts, and notifies subscribers on every state mutation. All check
// failures are captured into probe state; Check methods never surface
// them as errors.
type Aggregator struct {
	timeout   time.Duration
	threshold int
	log       *logging.Logger

	mu      sync.Mutex
	probes  map[string]*probeEntry
	order   []string
	subs    map[int]func([]domain.Probe)
	nextSub int

	pollCancel context.CancelFunc
	pollWG     sync.WaitGroup
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts Options) *Aggregator {
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Second
	}
	if opts.HealthyThreshold <= 0 {
		opts.HealthyThreshold = 2
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Aggregator{
		timeout:   opts.CheckTimeout,
		threshold: opts.HealthyThreshold,
		log:       log.Sub("probes"),
		probes:    make(map[string]*probeEntry),
		subs:      make(map[int]func([]domain.Probe)),
	}
}

// RegisterProbes adds probes to the registry. Idempotent: a probe sharing
// an identifier replaces the existing entry, resetting its state.
func (a *Aggregator) RegisterProbes(specs []Spec) {
	a.mu.Lock()
	for _, spec := range specs {
		if _, exists := a.probes[spec.ID]; !exists {
			a.order = append(a.order, spec.ID)
		}
		a.probes[spec.ID] = &probeEntry{
			spec: spec,
			state: domain.Probe{
				ID:       spec.ID,
				Name:     spec.Name,
				Endpoint: spec.Endpoint,
				Status:   domain.ProbeDisconnected,
			},
		}
		a.log.Debug().Str("probe", spec.ID).Msg("probe registered")
	}
	snapshot, subs := a.snapshotLocked()
	a.mu.Unlock()

	notify(subs, snapshot)
}

// CheckOne runs a single probe's check with a bounded timeout. The probe
// passes through "connecting" before the check starts so subscribers
// observe the in-flight state. The returned error is non-nil only for an
// unknown ID; check failures land in the probe's own status.
func (a *Aggregator) CheckOne(ctx context.Context, id string) (domain.Probe, error) {
	a.mu.Lock()
	entry, ok := a.probes[id]
	if !ok {
		a.mu.Unlock()
		return domain.Probe{}, fmt.Errorf("%w: %q", ErrUnknownProbe, id)
	}
	spec := entry.spec
	entry.state.Status = domain.ProbeConnecting
	snapshot, subs := a.snapshotLocked()
	a.mu.Unlock()

	notify(subs, snapshot)

	checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
	start := time.Now()
	err := spec.Check(checkCtx)
	latency := time.Since(start)
	cancel()

	a.mu.Lock()
	// Registration may have replaced the entry mid-check; re-resolve so a
	// stale result never clobbers a fresh probe.
	entry, ok = a.probes[id]
	if !ok {
		a.mu.Unlock()
		return domain.Probe{}, fmt.Errorf("%w: %q", ErrUnknownProbe, id)
	}
	entry.state.LastChecked = time.Now()
	entry.state.LatencyMS = latency.Milliseconds()
	var backendErr *BackendError
	switch {
	case err == nil:
		entry.state.Status = domain.ProbeConnected
		entry.state.LastError = ""
	case errors.As(err, &backendErr):
		entry.state.Status = domain.ProbeError
		entry.state.LastError = err.Error()
	default:
		entry.state.Status = domain.ProbeDisconnected
		entry.state.LastError = err.Error()
	}
	result := entry.state
	snapshot, subs = a.snapshotLocked()
	a.mu.Unlock()

	if err != nil {
		a.log.Debug().Err(err).Str("probe", id).Str("status", string(result.Status)).Msg("probe check failed")
	}
	notify(subs, snapshot)
	return result, nil
}

// CheckAll runs every registered probe concurrently. Failures are
// isolated per probe; one probe's failure never blocks or fails the rest.
func (a *Aggregator) CheckAll(ctx context.Context) []domain.Probe {
	a.mu.Lock()
	ids := make([]string, len(a.order))
	copy(ids, a.order)
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			a.CheckOne(ctx, id)
		}(id)
	}
	wg.Wait()

	return a.Probes()
}

// Probes returns a copy of all probe states in registration order.
func (a *Aggregator) Probes() []domain.Probe {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot, _ := a.snapshotLocked()
	return snapshot
}

// Subscribe registers a listener. It is invoked synchronously with the
// current state before Subscribe returns, then on every state mutation.
// Subscribers are independent; the returned function removes only this
// subscription.
func (a *Aggregator) Subscribe(fn func([]domain.Probe)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	snapshot, _ := a.snapshotLocked()
	a.mu.Unlock()

	fn(snapshot)

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Summary computes connected/total counts and the health flag. Healthy
// means at least the configured threshold of probes is connected.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	connected := 0
	for _, entry := range a.probes {
		if entry.state.Status == domain.ProbeConnected {
			connected++
		}
	}
	return Summary{
		ConnectedCount: connected,
		TotalCount:     len(a.probes),
		Healthy:        connected >= a.threshold,
	}
}

// Status returns the current status of one probe without checking it.
func (a *Aggregator) Status(id string) (domain.Probe, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.probes[id]
	if !ok {
		return domain.Probe{}, false
	}
	return entry.state, true
}

// Start launches one polling loop per registered probe at its own
// interval. Each probe is checked once immediately. Stop (or ctx
// cancellation) tears the loops down.
func (a *Aggregator) Start(ctx context.Context, defaultInterval time.Duration) {
	a.mu.Lock()
	if a.pollCancel != nil {
		a.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	a.pollCancel = cancel
	specs := make([]Spec, 0, len(a.order))
	for _, id := range a.order {
		specs = append(specs, a.probes[id].spec)
	}
	a.mu.Unlock()

	for _, spec := range specs {
		interval := spec.Interval
		if interval <= 0 {
			interval = defaultInterval
		}
		a.pollWG.Add(1)
		go a.pollLoop(pollCtx, spec.ID, interval)
	}
	a.log.Info().Int("probes", len(specs)).Msg("polling started")
}

// Stop cancels all polling loops and waits for them to exit. Safe to call
// multiple times.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel := a.pollCancel
	a.pollCancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.pollWG.Wait()
	a.log.Info().Msg("polling stopped")
}

func (a *Aggregator) pollLoop(ctx context.Context, id string, interval time.Duration) {
	defer a.pollWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.CheckOne(ctx, id)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.CheckOne(ctx, id)
		}
	}
}

// snapshotLocked copies probe states and the subscriber list. Callers
// must hold a.mu. Notifying from the copy keeps mutation-then-notify
// atomic from a subscriber's point of view.
func (a *Aggregator) snapshotLocked() ([]domain.Probe, []func([]domain.Probe)) {
	snapshot := make([]domain.Probe, 0, len(a.order))
	for _, id := range a.order {
		snapshot = append(snapshot, a.probes[id].state)
	}
	subs := make([]func([]domain.Probe), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	return snapshot, subs
}

func notify(subs []func([]domain.Probe), snapshot []domain.Probe) {
	for _, fn := range subs {
		fn(snapshot)
	}
}
