// Package memsearch is the client for the memory-search backend.
package memsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/logging"
)

const healthTimeout = 3 * time.Second

// Client talks to the memory-search backend. Every method catches
// transport errors internally and returns a well-defined empty result;
// the dashboard stays usable when this backend is degraded.
type Client struct {
	base string
	http *http.Client
	log  *logging.Logger

	// Search cancellation state. A new search cancels the previous
	// in-flight request and bumps the generation so a slow stale
	// response can never be delivered after a fresher one.
	searchMu     sync.Mutex
	searchCancel context.CancelFunc
	searchGen    uint64
}

// NewClient creates a search client for the given base URL.
func NewClient(base string, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log.Sub("memsearch"),
	}
}

// SearchOptions tune a search request.
type SearchOptions struct {
	Limit    int
	Category string
}

// SearchResult is the outcome of one search.
type SearchResult struct {
	Records []domain.MemoryRecord `json:"records"`
	Total   int                   `json:"total"`
	Query   string                `json:"query"`
}

// Search runs a query. An empty or whitespace-only query short-circuits
// to an empty result without any network call. Issuing a new search
// cancels any still-pending prior search; only the latest issued query's
// result is ever delivered (a superseded search returns empty).
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) SearchResult {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return SearchResult{Records: []domain.MemoryRecord{}, Query: ""}
	}

	c.searchMu.Lock()
	if c.searchCancel != nil {
		c.searchCancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.searchCancel = cancel
	c.searchGen++
	gen := c.searchGen
	c.searchMu.Unlock()

	q := url.Values{}
	q.Set("q", trimmed)
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}

	body, ok := c.get(reqCtx, "/api/search?"+q.Encode())

	c.searchMu.Lock()
	superseded := gen != c.searchGen
	if !superseded {
		cancel()
		c.searchCancel = nil
	}
	c.searchMu.Unlock()

	if superseded || !ok {
		return SearchResult{Records: []domain.MemoryRecord{}, Query: query}
	}

	raw, ok := decodeList(body, "results")
	if !ok {
		c.log.Warn().Str("query", trimmed).Msg("unrecognized search response shape")
		return SearchResult{Records: []domain.MemoryRecord{}, Query: query}
	}

	records := decodeRecords(raw)
	return SearchResult{Records: records, Total: len(records), Query: query}
}

// Categories lists memory categories. The backend has shipped both a bare
// list and an object wrapping one; both are tolerated, anything else
// degrades to empty.
func (c *Client) Categories(ctx context.Context) []domain.Category {
	body, ok := c.get(ctx, "/api/categories")
	if !ok {
		return nil
	}

	raw, ok := decodeList(body, "categories")
	if !ok {
		c.log.Warn().Msg("unrecognized categories response shape")
		return nil
	}

	cats := make([]domain.Category, 0, len(raw))
	for _, item := range raw {
		var wc wireCategory
		if err := json.Unmarshal(item, &wc); err != nil {
			continue
		}
		cats = append(cats, wc.toDomain())
	}
	return cats
}

// ByCategory lists records in a category. The dedicated memories endpoint
// is tried first; on failure the search endpoint filtered by category is
// the fallback. Exhausting both yields an empty list.
func (c *Client) ByCategory(ctx context.Context, category string, limit int) []domain.MemoryRecord {
	q := url.Values{}
	q.Set("category", category)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	if body, ok := c.get(ctx, "/api/memories?"+q.Encode()); ok {
		if raw, ok := decodeList(body, "memories"); ok {
			return decodeRecords(raw)
		}
	}

	c.log.Debug().Str("category", category).Msg("memories endpoint failed, falling back to search")
	fq := url.Values{}
	fq.Set("q", "")
	fq.Set("category", category)
	if limit > 0 {
		fq.Set("limit", strconv.Itoa(limit))
	}
	if body, ok := c.get(ctx, "/api/search?"+fq.Encode()); ok {
		if raw, ok := decodeList(body, "results"); ok {
			return decodeRecords(raw)
		}
	}
	return nil
}

// ByID fetches a single record. The second return is false when the
// record is absent or the backend failed.
func (c *Client) ByID(ctx context.Context, id string) (domain.MemoryRecord, bool) {
	body, ok := c.get(ctx, "/api/conversations/"+url.PathEscape(id))
	if !ok {
		return domain.MemoryRecord{}, false
	}
	var wr wireRecord
	if err := json.Unmarshal(body, &wr); err != nil {
		return domain.MemoryRecord{}, false
	}
	rec := wr.toDomain()
	rec.Score = nil // relevance is search-context only
	return rec, true
}

// CheckHealth probes /health with a short bounded timeout.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (c *Client) get(ctx context.Context, path string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("memsearch request failed")
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("memsearch returned error status")
		return nil, false
	}
	return body, true
}
