package domain

import "encoding/json"

// LayoutSnapshot is an opaque structural representation of a panel
// arrangement. The grid descriptor comes from the panel manager and is
// not interpreted here beyond the structural validity check.
type LayoutSnapshot struct {
	Grid   json.RawMessage `json:"grid,omitempty"`
	Panels []string        `json:"panels,omitempty"`
}

// Valid reports whether the snapshot may be restored: it must carry both
// a structural grid and a non-empty panel list. Anything else is treated
// as absent so the default-layout fallback is never fed corrupt state.
func (s LayoutSnapshot) Valid() bool {
	if len(s.Panels) == 0 {
		return false
	}
	if len(s.Grid) == 0 {
		return false
	}
	// A grid of JSON null is as absent as no grid at all.
	var probe any
	if err := json.Unmarshal(s.Grid, &probe); err != nil || probe == nil {
		return false
	}
	return true
}
