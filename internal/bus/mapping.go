package bus

// LobeMap translates between internal agent identifiers and the wire
// identifiers ("lobes") the message bus uses. The table comes from
// configuration so new agents never require code changes; it is applied
// on both the read (wire to internal) and write (internal to wire) paths.
type LobeMap struct {
	toWire     map[string]string
	toInternal map[string]string
}

// NewLobeMap builds a bidirectional mapping from internal ID to wire ID.
func NewLobeMap(internalToWire map[string]string) *LobeMap {
	m := &LobeMap{
		toWire:     make(map[string]string, len(internalToWire)),
		toInternal: make(map[string]string, len(internalToWire)),
	}
	for internal, wire := range internalToWire {
		m.toWire[internal] = wire
		m.toInternal[wire] = internal
	}
	return m
}

// Wire returns the wire identifier for an internal ID. Unmapped IDs pass
// through unchanged.
func (m *LobeMap) Wire(internal string) string {
	if w, ok := m.toWire[internal]; ok {
		return w
	}
	return internal
}

// Internal returns the internal identifier for a wire ID. Unmapped IDs
// pass through unchanged.
func (m *LobeMap) Internal(wire string) string {
	if i, ok := m.toInternal[wire]; ok {
		return i
	}
	return wire
}
