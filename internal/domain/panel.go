package domain

// PanelPosition places a satellite panel relative to an existing one.
type PanelPosition struct {
	RelativeTo string `json:"relativeTo,omitempty"`
	Direction  string `json:"direction,omitempty"` // "left" | "right" | "above" | "below" | "within"
}

// PanelSpec describes a panel to be added to the layout.
type PanelSpec struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Kind     string         `json:"kind"`
	Position *PanelPosition `json:"position,omitempty"`
}

// PanelManager is the external layout engine the dashboard drives. The
// core never renders; it only adds panels, snapshots the arrangement, and
// listens for layout-affecting events.
type PanelManager interface {
	// AddPanel adds a panel to the current arrangement.
	AddPanel(spec PanelSpec) error

	// OnLayoutChange registers a listener invoked after every
	// layout-affecting event. The returned function cancels the
	// subscription.
	OnLayoutChange(fn func()) (cancel func())

	// ToSnapshot captures the current arrangement.
	ToSnapshot() LayoutSnapshot

	// FromSnapshot restores a previously captured arrangement. It may
	// fail on malformed input; callers must fall back to a default
	// layout rather than leave a partial arrangement.
	FromSnapshot(snapshot LayoutSnapshot) error
}
