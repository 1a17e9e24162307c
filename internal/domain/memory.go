package domain

import "time"

// MemoryRecord is a searchable content unit owned by the memory-search
// backend. Score is only present in search results, never on a direct
// fetch by ID.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Tags      []string  `json:"tags,omitempty"`
	Score     *float64  `json:"score,omitempty"`
}

// Category is a grouping of memory records, possibly nested.
type Category struct {
	Name     string     `json:"name"`
	Count    int        `json:"count"`
	Children []Category `json:"children,omitempty"`
}
