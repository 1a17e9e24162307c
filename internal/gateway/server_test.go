package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/lobeboard/internal/bus"
	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/dashboard"
	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/layout"
	"github.com/soyeahso/lobeboard/internal/memsearch"
	"github.com/soyeahso/lobeboard/internal/probe"
)

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.blobs[key]
	return v, ok, nil
}

func (s *memStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(backend.Close)

	lm := layout.NewManager(&memStore{blobs: make(map[string][]byte)}, layout.Options{Debounce: time.Millisecond})
	t.Cleanup(lm.Close)

	agg := probe.NewAggregator(probe.Options{HealthyThreshold: 1})
	agg.RegisterProbes([]probe.Spec{
		{ID: "message-bus", Name: "Message Bus", Check: func(ctx context.Context) error { return nil }},
	})

	tracker := probe.NewActivityTracker(
		[]domain.Agent{{ID: "board"}, {ID: "atlas"}},
		probe.ActivityPolicy{LocalAgent: "board"},
	)

	ctrl := dashboard.NewController(dashboard.Options{
		Panels:     dashboard.NewPanelState(),
		Layout:     lm,
		Probes:     agg,
		Activity:   tracker,
		Bus:        bus.NewClient(backend.URL, nil, nil),
		Memory:     memsearch.NewClient(backend.URL, nil),
		Defaults:   dashboard.DefaultLayout{Anchor: domain.PanelSpec{ID: "federation"}},
		LocalAgent: "board",
	})
	ctrl.Init()
	t.Cleanup(ctrl.Teardown)

	return NewServer(config.GatewayConfig{}, ctrl, agg, tracker, nil)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)
	s.probes.CheckAll(context.Background())

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Probes.ConnectedCount)
	assert.True(t, body.Probes.Healthy)
	assert.Equal(t, 2, body.Summary.TotalAgents)
	assert.Zero(t, body.Clients)
	assert.NotEmpty(t, body.Label)
}

func TestHandleProbesAndAgents(t *testing.T) {
	s := newTestServer(t)
	s.probes.CheckAll(context.Background())

	rec := httptest.NewRecorder()
	s.handleProbes(rec, httptest.NewRequest(http.MethodGet, "/api/probes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var probes []domain.Probe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &probes))
	require.Len(t, probes, 1)
	assert.Equal(t, domain.ProbeConnected, probes[0].Status)

	rec = httptest.NewRecorder()
	s.handleAgents(rec, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var agents []domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Len(t, agents, 2)
}

func TestHandleSendMessage(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"content": "hello"}`))
	s.handleSendMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["sent"])
}

func TestHandleSendMessageRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleSendMessage(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleSendMessage(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"content": "  "}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code, "empty content is never sent")
}

func TestWebSocketSeedsNewSubscriber(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second Event
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "summary", first.Type)
	assert.Equal(t, "probes", second.Type)
	assert.Less(t, first.Seq, second.Seq, "event sequence is monotonic")
}

func TestBroadcastSummaryReachesSubscriber(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the two seed events.
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.NoError(t, conn.ReadJSON(&ev))

	// Registration races the dial; wait for the registry to see us.
	deadline := time.Now().Add(2 * time.Second)
	for s.clients.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, s.clients.Count())

	s.BroadcastSummary(domain.FederationSummary{Health: domain.HealthCoherent, ActiveAgents: 2})

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "summary", ev.Type)

	payload, err := json.Marshal(ev.Payload)
	require.NoError(t, err)
	var summary domain.FederationSummary
	require.NoError(t, json.Unmarshal(payload, &summary))
	assert.Equal(t, domain.HealthCoherent, summary.Health)
}

func TestRegistryTracksDisconnect(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for s.clients.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, s.clients.Count())

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.clients.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, s.clients.Count(), "read loop removes the client on disconnect")
}

func TestBindHost(t *testing.T) {
	cases := []struct {
		bind string
		host string
		want string
	}{
		{"", "", "127.0.0.1"},
		{"loopback", "", "127.0.0.1"},
		{"lan", "", "0.0.0.0"},
		{"custom", "10.1.2.3", "10.1.2.3"},
	}
	for _, tc := range cases {
		s := &Server{cfg: config.GatewayConfig{Bind: tc.bind, Host: tc.host}}
		assert.Equal(t, tc.want, s.bindHost(), "bind=%s", tc.bind)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	dialed, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer dialed.Close()

	client := NewClient(dialed)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "close is idempotent")
	assert.ErrorIs(t, client.Send(Event{Type: "summary"}), ErrClientClosed)
}
