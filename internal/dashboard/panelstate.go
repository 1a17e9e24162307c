package dashboard

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/soyeahso/lobeboard/internal/domain"
)

// PanelState is a headless panel manager: it owns the canonical panel
// arrangement as data without rendering anything. Connected views mirror
// it through the gateway; layout-affecting calls fire change listeners so
// auto-save sees every mutation.
type PanelState struct {
	mu        sync.Mutex
	panels    []domain.PanelSpec
	grid      map[string]gridCell
	listeners map[int]func()
	nextID    int
}

// gridCell records where a panel sits in the arrangement.
type gridCell struct {
	RelativeTo string `json:"relativeTo,omitempty"`
	Direction  string `json:"direction,omitempty"`
	Order      int    `json:"order"`
}

// NewPanelState creates an empty arrangement.
func NewPanelState() *PanelState {
	return &PanelState{
		grid:      make(map[string]gridCell),
		listeners: make(map[int]func()),
	}
}

// AddPanel adds a panel. Adding a duplicate ID is an error so duplicate
// mounts surface instead of silently doubling panels.
func (p *PanelState) AddPanel(spec domain.PanelSpec) error {
	p.mu.Lock()
	for _, existing := range p.panels {
		if existing.ID == spec.ID {
			p.mu.Unlock()
			return fmt.Errorf("panel %q already exists", spec.ID)
		}
	}
	cell := gridCell{Order: len(p.panels)}
	if spec.Position != nil {
		cell.RelativeTo = spec.Position.RelativeTo
		cell.Direction = spec.Position.Direction
	}
	p.panels = append(p.panels, spec)
	p.grid[spec.ID] = cell
	listeners := p.listenersLocked()
	p.mu.Unlock()

	fire(listeners)
	return nil
}

// MovePanel repositions a panel relative to another one.
func (p *PanelState) MovePanel(id, relativeTo, direction string) error {
	p.mu.Lock()
	cell, ok := p.grid[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("panel %q not found", id)
	}
	cell.RelativeTo = relativeTo
	cell.Direction = direction
	p.grid[id] = cell
	listeners := p.listenersLocked()
	p.mu.Unlock()

	fire(listeners)
	return nil
}

// OnLayoutChange registers a listener fired after every layout-affecting
// mutation. The returned function cancels the subscription.
func (p *PanelState) OnLayoutChange(fn func()) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// ToSnapshot captures the current arrangement.
func (p *PanelState) ToSnapshot() domain.LayoutSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.panels))
	for _, spec := range p.panels {
		ids = append(ids, spec.ID)
	}
	grid, err := json.Marshal(p.grid)
	if err != nil {
		grid = nil
	}
	return domain.LayoutSnapshot{Grid: grid, Panels: ids}
}

// FromSnapshot replaces the arrangement with a restored one. Malformed
// snapshots fail without touching current state.
func (p *PanelState) FromSnapshot(snapshot domain.LayoutSnapshot) error {
	if !snapshot.Valid() {
		return fmt.Errorf("snapshot missing grid or panels")
	}
	var grid map[string]gridCell
	if err := json.Unmarshal(snapshot.Grid, &grid); err != nil {
		return fmt.Errorf("decoding grid: %w", err)
	}

	panels := make([]domain.PanelSpec, 0, len(snapshot.Panels))
	for _, id := range snapshot.Panels {
		spec := domain.PanelSpec{ID: id}
		if cell, ok := grid[id]; ok && cell.RelativeTo != "" {
			spec.Position = &domain.PanelPosition{RelativeTo: cell.RelativeTo, Direction: cell.Direction}
		}
		panels = append(panels, spec)
	}

	p.mu.Lock()
	p.panels = panels
	p.grid = grid
	listeners := p.listenersLocked()
	p.mu.Unlock()

	fire(listeners)
	return nil
}

// Panels returns the current panel specs in order.
func (p *PanelState) Panels() []domain.PanelSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.PanelSpec, len(p.panels))
	copy(out, p.panels)
	return out
}

func (p *PanelState) listenersLocked() []func() {
	out := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		out = append(out, fn)
	}
	return out
}

func fire(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
