// Package layout persists panel-layout snapshots with debounced writes.
package layout

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/logging"
)

// StorageKey is the fixed key the serialized layout blob lives under.
const StorageKey = "lobeboard:layout"

// Store is the durable keyed-blob storage the manager writes to.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// SnapshotProvider produces the layout snapshot to persist. It is called
// at write time, not at Save time, so the debounced write always captures
// the latest arrangement.
type SnapshotProvider func() domain.LayoutSnapshot

// Options configure a Manager.
type Options struct {
	// Debounce is the save collapse window. Zero means 1 second.
	Debounce time.Duration
	Log      *logging.Logger
}

// Manager serializes layout snapshots to a Store. Repeated Save calls
// within the debounce window collapse into a single write of the latest
// snapshot; the window resets on each call. At most one pending timer
// exists at a time.
type Manager struct {
	store    Store
	debounce time.Duration
	log      *logging.Logger

	mu         sync.Mutex
	timer      *time.Timer
	pending    SnapshotProvider
	detachAuto func()
	closed     bool
}

// NewManager creates a layout persistence manager over the given store.
func NewManager(store Store, opts Options) *Manager {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		store:    store,
		debounce: opts.Debounce,
		log:      log.Sub("layout"),
	}
}

// Save schedules a debounced write. The provider runs when the window
// elapses; calling Save again before then replaces the pending write and
// resets the timer.
func (m *Manager) Save(provider SnapshotProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.pending = provider
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.firePending)
}

// Flush writes any pending snapshot immediately and cancels the timer.
func (m *Manager) Flush() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	provider := m.pending
	m.pending = nil
	m.mu.Unlock()

	if provider != nil {
		m.write(provider)
	}
}

func (m *Manager) firePending() {
	m.mu.Lock()
	provider := m.pending
	m.pending = nil
	m.timer = nil
	closed := m.closed
	m.mu.Unlock()

	if provider == nil || closed {
		return
	}
	m.write(provider)
}

func (m *Manager) write(provider SnapshotProvider) {
	snapshot := provider()
	data, err := json.Marshal(snapshot)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to serialize layout snapshot")
		return
	}
	if err := m.store.Put(StorageKey, data); err != nil {
		m.log.Error().Err(err).Msg("failed to persist layout snapshot")
		return
	}
	m.log.Debug().Int("panels", len(snapshot.Panels)).Msg("layout saved")
}

// Load deserializes the persisted snapshot. The second return is false
// when nothing usable is stored: a missing blob, malformed JSON, or a
// snapshot failing the structural validity check are all treated as
// absence so corrupt state never reaches the panel manager.
func (m *Manager) Load() (domain.LayoutSnapshot, bool) {
	data, found, err := m.store.Get(StorageKey)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to read persisted layout")
		return domain.LayoutSnapshot{}, false
	}
	if !found {
		return domain.LayoutSnapshot{}, false
	}

	var snapshot domain.LayoutSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		m.log.Warn().Err(err).Msg("persisted layout is malformed, ignoring")
		return domain.LayoutSnapshot{}, false
	}
	if !snapshot.Valid() {
		m.log.Warn().Msg("persisted layout failed structural check, ignoring")
		return domain.LayoutSnapshot{}, false
	}
	return snapshot, true
}

// Clear removes the persisted snapshot.
func (m *Manager) Clear() {
	if err := m.store.Delete(StorageKey); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted layout")
	}
}

// AttachAutoSave subscribes to the panel manager's layout-change events,
// scheduling a debounced save on each. Attaching is idempotent: a prior
// subscription is replaced, never stacked. The returned detach cancels
// the subscription and any pending debounced write.
func (m *Manager) AttachAutoSave(pm domain.PanelManager) (detach func()) {
	m.mu.Lock()
	if m.detachAuto != nil {
		prev := m.detachAuto
		m.detachAuto = nil
		m.mu.Unlock()
		prev()
		m.mu.Lock()
	}
	m.mu.Unlock()

	cancel := pm.OnLayoutChange(func() {
		m.Save(pm.ToSnapshot)
	})

	var once sync.Once
	detach = func() {
		once.Do(func() {
			cancel()
			m.cancelPending()
			m.mu.Lock()
			m.detachAuto = nil
			m.mu.Unlock()
		})
	}

	m.mu.Lock()
	m.detachAuto = detach
	m.mu.Unlock()
	return detach
}

// Close cancels any pending debounced write and detaches auto-save. The
// manager must not write after the owning view is gone.
func (m *Manager) Close() {
	m.mu.Lock()
	detach := m.detachAuto
	m.detachAuto = nil
	m.closed = true
	m.mu.Unlock()

	if detach != nil {
		detach()
	}
	m.cancelPending()
}

func (m *Manager) cancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
}
