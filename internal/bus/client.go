// Package bus is the client for the corpus-callosum message bus.
package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
	"github.com/soyeahso/lobeboard/internal/logging"
)

// healthTimeout bounds the independent health probe; message operations
// use the client's own timeout.
const healthTimeout = 3 * time.Second

// Client talks to the message-bus backend. Transport and backend failures
// never cross the public contract as errors: fetches return empty, writes
// return false, and the caller consults connectivity state separately.
type Client struct {
	base  string
	http  *http.Client
	lobes *LobeMap
	log   *logging.Logger
}

// NewClient creates a bus client for the given base URL. A nil lobe map
// means identifiers pass through unchanged.
func NewClient(base string, lobes *LobeMap, log *logging.Logger) *Client {
	if lobes == nil {
		lobes = NewLobeMap(nil)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: 10 * time.Second},
		lobes: lobes,
		log:   log.Sub("bus"),
	}
}

// wireMessage is the loose record shape the bus returns.
type wireMessage struct {
	ID        string `json:"id"`
	FromLobe  string `json:"from_lobe"`
	ToLobe    string `json:"to_lobe"`
	Message   string `json:"message"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// FetchMessages queries a channel and returns messages sorted ascending
// by timestamp regardless of delivery order. Any failure yields an empty
// slice; empty means "no new data", not a hard error.
func (c *Client) FetchMessages(ctx context.Context, channel string, limit int, unreadOnly bool) []domain.Message {
	q := url.Values{}
	if channel != "" {
		q.Set("channel", channel)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if unreadOnly {
		q.Set("unread_only", "true")
	}

	body, ok := c.get(ctx, "/corpus-callosum/messages?"+q.Encode())
	if !ok {
		return nil
	}

	raw, ok := decodeList(body, "messages")
	if !ok {
		c.log.Warn().Str("channel", channel).Msg("unrecognized message list shape")
		return nil
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var wm wireMessage
		if err := json.Unmarshal(item, &wm); err != nil {
			continue
		}
		msgs = append(msgs, c.toDomain(wm))
	}
	domain.SortByTimestamp(msgs)
	return msgs
}

// SendRequest describes an outbound message. ToAgent and Channel are
// optional; an empty ToAgent broadcasts.
type SendRequest struct {
	Content string
	From    string
	ToAgent string
	Channel string
}

// SendMessage posts to the bus. Non-2xx or transport failure yields false
// with no partial side effect visible here; callers re-fetch to observe
// the sent message rather than injecting it locally.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) bool {
	if strings.TrimSpace(req.Content) == "" {
		return false
	}
	to := req.ToAgent
	if to == "" {
		to = domain.Broadcast
	}
	payload := map[string]string{
		"from_lobe": c.lobes.Wire(req.From),
		"to_lobe":   c.lobes.Wire(to),
		"message":   req.Content,
		"channel":   req.Channel,
	}
	return c.post(ctx, "/corpus-callosum/messages", payload)
}

// MarkRead flags messages as read on the bus.
func (c *Client) MarkRead(ctx context.Context, messageIDs []string) bool {
	if len(messageIDs) == 0 {
		return true
	}
	payload := map[string][]string{"message_ids": messageIDs}
	return c.post(ctx, "/corpus-callosum/messages/read", payload)
}

// CheckHealth probes the bus /health endpoint with a short bounded
// timeout, independent of message fetch latency.
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

func (c *Client) toDomain(wm wireMessage) domain.Message {
	ts := time.Now()
	if wm.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, wm.Timestamp); err == nil {
			ts = parsed
		}
	}
	return domain.Message{
		ID:        wm.ID,
		From:      c.lobes.Internal(wm.FromLobe),
		To:        c.lobes.Internal(wm.ToLobe),
		Body:      wm.Message,
		Timestamp: ts,
		Channel:   wm.Channel,
		Read:      wm.Read,
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("bus request failed")
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("bus returned error status")
		return nil, false
	}
	return body, true
}

func (c *Client) post(ctx context.Context, path string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("bus post failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("bus rejected post")
		return false
	}
	return true
}

// decodeList accepts either a bare JSON array or an object wrapping the
// array under the given field name.
func decodeList(body []byte, field string) ([]json.RawMessage, bool) {
	var bare []json.RawMessage
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, true
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, false
	}
	inner, ok := wrapped[field]
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(inner, &bare); err != nil {
		return nil, false
	}
	return bare, true
}
