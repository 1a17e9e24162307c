package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/lobeboard/internal/domain"
)

func testLobeMap() *LobeMap {
	return NewLobeMap(map[string]string{
		"board": "dashboard_lobe",
		"atlas": "atlas_lobe",
	})
}

// fakeBus is a minimal in-memory message-bus backend.
type fakeBus struct {
	mu       sync.Mutex
	messages []map[string]any
	failSend bool
	wrapped  bool
	lastSend map[string]string
}

func (f *fakeBus) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /corpus-callosum/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if f.wrapped {
			json.NewEncoder(w).Encode(map[string]any{"messages": f.messages})
			return
		}
		json.NewEncoder(w).Encode(f.messages)
	})
	mux.HandleFunc("POST /corpus-callosum/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failSend {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastSend = body
		f.messages = append(f.messages, map[string]any{
			"id":        fmt.Sprintf("m%d", len(f.messages)+1),
			"from_lobe": body["from_lobe"],
			"to_lobe":   body["to_lobe"],
			"message":   body["message"],
			"channel":   body["channel"],
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /corpus-callosum/messages/read", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body["message_ids"]) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestFetchMessagesSortedByTimestamp(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for _, wrapped := range []bool{false, true} {
		name := "bare list"
		if wrapped {
			name = "wrapped list"
		}
		t.Run(name, func(t *testing.T) {
			fake := &fakeBus{
				wrapped: wrapped,
				messages: []map[string]any{
					{"id": "2", "from_lobe": "atlas_lobe", "message": "second", "timestamp": base.Add(time.Minute).Format(time.RFC3339)},
					{"id": "3", "from_lobe": "atlas_lobe", "message": "third", "timestamp": base.Add(2 * time.Minute).Format(time.RFC3339)},
					{"id": "1", "from_lobe": "dashboard_lobe", "message": "first", "timestamp": base.Format(time.RFC3339)},
				},
			}
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			client := NewClient(srv.URL, testLobeMap(), nil)
			msgs := client.FetchMessages(context.Background(), "", 10, false)

			require.Len(t, msgs, 3)
			for i := 1; i < len(msgs); i++ {
				assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp))
			}
			assert.Equal(t, "first", msgs[0].Body)
			assert.Equal(t, "board", msgs[0].From, "wire lobe mapped to internal id")
			assert.Equal(t, "atlas", msgs[1].From)
		})
	}
}

func TestFetchMessagesDefaultsMissingFields(t *testing.T) {
	fake := &fakeBus{
		messages: []map[string]any{
			{"id": "1", "from_lobe": "atlas_lobe"},
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(srv.URL, testLobeMap(), nil)
	msgs := client.FetchMessages(context.Background(), "", 10, false)

	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Body, "missing content defaults to empty")
	assert.WithinDuration(t, time.Now(), msgs[0].Timestamp, 5*time.Second,
		"missing timestamp defaults to now")
}

func TestFetchMessagesFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	assert.Empty(t, client.FetchMessages(context.Background(), "", 10, false))

	srv.Close()
	assert.Empty(t, client.FetchMessages(context.Background(), "", 10, false),
		"transport failure yields empty, not an error")
}

func TestSendMessageMapsIdentifiers(t *testing.T) {
	fake := &fakeBus{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(srv.URL, testLobeMap(), nil)
	ok := client.SendMessage(context.Background(), SendRequest{
		Content: "hello",
		From:    "board",
		ToAgent: "atlas",
		Channel: "ops",
	})
	require.True(t, ok)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "dashboard_lobe", fake.lastSend["from_lobe"], "internal id mapped to wire on send")
	assert.Equal(t, "atlas_lobe", fake.lastSend["to_lobe"])
	assert.Equal(t, "hello", fake.lastSend["message"])
	assert.Equal(t, "ops", fake.lastSend["channel"])
}

func TestSendMessageBroadcastDefault(t *testing.T) {
	fake := &fakeBus{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(srv.URL, testLobeMap(), nil)
	require.True(t, client.SendMessage(context.Background(), SendRequest{Content: "hi", From: "board"}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, domain.Broadcast, fake.lastSend["to_lobe"], "empty recipient broadcasts")
}

func TestSendMessageFailureLeavesNoTrace(t *testing.T) {
	fake := &fakeBus{failSend: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(srv.URL, testLobeMap(), nil)
	ok := client.SendMessage(context.Background(), SendRequest{Content: "hello", From: "board"})
	assert.False(t, ok, "HTTP 500 yields false")

	msgs := client.FetchMessages(context.Background(), "", 10, false)
	assert.Empty(t, msgs, "failed send must not surface a new entry")
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	assert.False(t, client.SendMessage(context.Background(), SendRequest{Content: "   "}))
	assert.Zero(t, requests, "empty content is rejected before any network call")
}

func TestMarkRead(t *testing.T) {
	fake := &fakeBus{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	assert.True(t, client.MarkRead(context.Background(), []string{"m1", "m2"}))
	assert.True(t, client.MarkRead(context.Background(), nil), "no ids is a no-op success")
}

func TestCheckHealth(t *testing.T) {
	fake := &fakeBus{}
	srv := httptest.NewServer(fake.handler())
	assert.True(t, NewClient(srv.URL, nil, nil).CheckHealth(context.Background()))

	srv.Close()
	assert.False(t, NewClient(srv.URL, nil, nil).CheckHealth(context.Background()))
}

func TestLobeMapBidirectional(t *testing.T) {
	m := testLobeMap()

	assert.Equal(t, "dashboard_lobe", m.Wire("board"))
	assert.Equal(t, "board", m.Internal("dashboard_lobe"))
	assert.Equal(t, "unknown", m.Wire("unknown"), "unmapped ids pass through")
	assert.Equal(t, "unknown_lobe", m.Internal("unknown_lobe"))
}
