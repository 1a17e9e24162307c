package memsearch

import (
	"encoding/json"
	"time"

	"github.com/soyeahso/lobeboard/internal/domain"
)

// wireRecord is the loose item shape the search backend returns. Several
// fields have shipped under two names; both are accepted.
type wireRecord struct {
	ID        string   `json:"id"`
	AltID     string   `json:"_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Text      string   `json:"text"`
	Category  string   `json:"category"`
	Timestamp string   `json:"timestamp"`
	Tags      []string `json:"tags"`
	Score     *float64 `json:"score"`
}

func (w wireRecord) toDomain() domain.MemoryRecord {
	rec := domain.MemoryRecord{
		ID:       w.ID,
		Title:    w.Title,
		Content:  w.Content,
		Category: w.Category,
		Tags:     w.Tags,
		Score:    w.Score,
	}
	if rec.ID == "" {
		rec.ID = w.AltID
	}
	if rec.Content == "" {
		rec.Content = w.Text
	}
	if w.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec
}

// wireCategory accepts the name under either "name" or "category".
type wireCategory struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Count    int            `json:"count"`
	Children []wireCategory `json:"children"`
}

func (w wireCategory) toDomain() domain.Category {
	c := domain.Category{Name: w.Name, Count: w.Count}
	if c.Name == "" {
		c.Name = w.Category
	}
	for _, child := range w.Children {
		c.Children = append(c.Children, child.toDomain())
	}
	return c
}

func decodeRecords(raw []json.RawMessage) []domain.MemoryRecord {
	records := make([]domain.MemoryRecord, 0, len(raw))
	for _, item := range raw {
		var wr wireRecord
		if err := json.Unmarshal(item, &wr); err != nil {
			continue
		}
		records = append(records, wr.toDomain())
	}
	return records
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
