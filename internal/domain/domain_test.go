package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- LayoutSnapshot tests ---

func TestLayoutSnapshotValid(t *testing.T) {
	tests := []struct {
		name string
		snap LayoutSnapshot
		want bool
	}{
		{
			name: "grid and panels",
			snap: LayoutSnapshot{Grid: json.RawMessage(`{"a":{"order":0}}`), Panels: []string{"a"}},
			want: true,
		},
		{
			name: "empty grid object still counts as a grid",
			snap: LayoutSnapshot{Grid: json.RawMessage(`{}`), Panels: []string{"a"}},
			want: true,
		},
		{
			name: "missing panels",
			snap: LayoutSnapshot{Grid: json.RawMessage(`{}`)},
			want: false,
		},
		{
			name: "empty panel list",
			snap: LayoutSnapshot{Grid: json.RawMessage(`{}`), Panels: []string{}},
			want: false,
		},
		{
			name: "missing grid",
			snap: LayoutSnapshot{Panels: []string{"a"}},
			want: false,
		},
		{
			name: "null grid",
			snap: LayoutSnapshot{Grid: json.RawMessage(`null`), Panels: []string{"a"}},
			want: false,
		},
		{
			name: "malformed grid",
			snap: LayoutSnapshot{Grid: json.RawMessage(`{not json`), Panels: []string{"a"}},
			want: false,
		},
		{
			name: "zero value",
			snap: LayoutSnapshot{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Valid())
		})
	}
}

func TestLayoutSnapshotJSONRoundTrip(t *testing.T) {
	snap := LayoutSnapshot{
		Grid:   json.RawMessage(`{"federation":{"order":0},"messages":{"relativeTo":"federation","direction":"right","order":1}}`),
		Panels: []string{"federation", "messages"},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var restored LayoutSnapshot
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.True(t, restored.Valid())
	assert.Equal(t, snap.Panels, restored.Panels)
}

// --- Message ordering tests ---

func TestSortByTimestamp(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "c", Timestamp: base.Add(2 * time.Minute)},
		{ID: "a", Timestamp: base},
		{ID: "d", Timestamp: base.Add(3 * time.Minute)},
		{ID: "b", Timestamp: base.Add(time.Minute)},
	}

	SortByTimestamp(msgs)

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp),
			"messages must be non-decreasing by timestamp")
	}
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "d", msgs[3].ID)
}

func TestSortByTimestampStableOnTies(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "first", Timestamp: ts},
		{ID: "second", Timestamp: ts},
	}

	SortByTimestamp(msgs)

	assert.Equal(t, "first", msgs[0].ID)
	assert.Equal(t, "second", msgs[1].ID)
}

// --- Status constant tests ---

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, ProbeStatus("connected"), ProbeConnected)
	assert.Equal(t, ProbeStatus("connecting"), ProbeConnecting)
	assert.Equal(t, ProbeStatus("disconnected"), ProbeDisconnected)
	assert.Equal(t, ProbeStatus("error"), ProbeError)

	assert.Equal(t, HealthState("coherent"), HealthCoherent)
	assert.Equal(t, HealthState("degraded"), HealthDegraded)
	assert.Equal(t, HealthState("offline"), HealthOffline)

	assert.Equal(t, ActivityStatus("active"), AgentActive)
	assert.Equal(t, ActivityStatus("idle"), AgentIdle)
	assert.Equal(t, ActivityStatus("offline"), AgentOffline)
}
