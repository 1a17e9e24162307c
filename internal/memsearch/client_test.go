package memsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyQuerySkipsNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	for _, q := range []string{"", "   ", "\t\n"} {
		result := client.Search(context.Background(), q, SearchOptions{})
		assert.NotNil(t, result.Records)
		assert.Empty(t, result.Records)
	}
	assert.Zero(t, requests.Load(), "blank queries never hit the backend")
}

func TestSearchDecodesLooseShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "drift", r.URL.Query().Get("q"))
		assert.Equal(t, "7", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"results": [
			{"id": "a1", "title": "first", "content": "body one", "score": 0.9},
			{"_id": "a2", "text": "body two", "category": "notes"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	result := client.Search(context.Background(), "drift", SearchOptions{Limit: 7})

	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "a1", result.Records[0].ID)
	assert.Equal(t, "body one", result.Records[0].Content)
	require.NotNil(t, result.Records[0].Score)
	assert.InDelta(t, 0.9, *result.Records[0].Score, 1e-9)

	assert.Equal(t, "a2", result.Records[1].ID, "_id accepted as id")
	assert.Equal(t, "body two", result.Records[1].Content, "text accepted as content")
	assert.Nil(t, result.Records[1].Score)
}

func TestSearchLastIssuedWins(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "slow" {
			once.Do(func() { close(firstStarted) })
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			w.Write([]byte(`[{"id": "stale", "content": "old"}]`))
			return
		}
		w.Write([]byte(`[{"id": "fresh", "content": "new"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	var slowResult SearchResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		slowResult = client.Search(context.Background(), "slow", SearchOptions{})
	}()

	<-firstStarted
	fresh := client.Search(context.Background(), "fast", SearchOptions{})
	close(release)
	<-done

	require.Len(t, fresh.Records, 1)
	assert.Equal(t, "fresh", fresh.Records[0].ID)
	assert.Empty(t, slowResult.Records, "superseded search delivers empty, never stale records")
}

func TestSearchFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	result := client.Search(context.Background(), "anything", SearchOptions{})
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.Equal(t, "anything", result.Query)
}

func TestCategoriesBothShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bare list", `[{"name": "work", "count": 3}, {"category": "personal"}]`},
		{"wrapped list", `{"categories": [{"name": "work", "count": 3}, {"category": "personal"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cats := NewClient(srv.URL, nil).Categories(context.Background())
			require.Len(t, cats, 2)
			assert.Equal(t, "work", cats[0].Name)
			assert.Equal(t, 3, cats[0].Count)
			assert.Equal(t, "personal", cats[1].Name, "category field accepted as name")
		})
	}
}

func TestCategoriesUnrecognizedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totally": "different"}`))
	}))
	defer srv.Close()

	assert.Empty(t, NewClient(srv.URL, nil).Categories(context.Background()))
}

func TestByCategoryFallsBackToSearch(t *testing.T) {
	var searchHit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/memories":
			w.WriteHeader(http.StatusNotFound)
		case "/api/search":
			searchHit.Store(true)
			assert.Equal(t, "notes", r.URL.Query().Get("category"))
			w.Write([]byte(`{"results": [{"id": "n1", "content": "kept"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	records := NewClient(srv.URL, nil).ByCategory(context.Background(), "notes", 5)
	require.Len(t, records, 1)
	assert.Equal(t, "n1", records[0].ID)
	assert.True(t, searchHit.Load())
}

func TestByCategoryPrefersMemoriesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/memories", r.URL.Path)
		w.Write([]byte(`{"memories": [{"id": "m1"}]}`))
	}))
	defer srv.Close()

	records := NewClient(srv.URL, nil).ByCategory(context.Background(), "notes", 0)
	require.Len(t, records, 1)
	assert.Equal(t, "m1", records[0].ID)
}

func TestByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/conversations/c42" {
			w.Write([]byte(`{"id": "c42", "title": "standup", "content": "notes", "score": 0.5}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	rec, ok := client.ByID(context.Background(), "c42")
	require.True(t, ok)
	assert.Equal(t, "standup", rec.Title)
	assert.Nil(t, rec.Score, "relevance score stripped outside search context")

	_, ok = client.ByID(context.Background(), "missing")
	assert.False(t, ok)
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.True(t, NewClient(srv.URL, nil).CheckHealth(context.Background()))

	srv.Close()
	assert.False(t, NewClient(srv.URL, nil).CheckHealth(context.Background()))
}

func TestSearchHonorsCallerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result := NewClient(srv.URL, nil).Search(ctx, "slow", SearchOptions{})
	assert.Empty(t, result.Records)
}
