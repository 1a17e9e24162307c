package domain

import (
	"sort"
	"time"
)

// Broadcast is the recipient marker for messages addressed to every agent.
const Broadcast = "all"

// Message is an inter-agent communication unit. Messages are immutable
// once received; only the Read flag may change afterwards, via an
// explicit mark-as-read operation against the bus.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Read      bool      `json:"read"`
}

// SortByTimestamp orders messages ascending by timestamp. Within a
// channel messages are always presented in this order regardless of
// backend delivery order.
func SortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
