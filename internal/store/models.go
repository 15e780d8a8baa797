package store

import "time"

// Article is a feed entry persisted by the fetcher. Link is unique across the store.
type Article struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary,omitempty"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Tags        []Tag      `json:"tags"`
}

// TagNames returns the article's tag names in association order.
func (a Article) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		names = append(names, t.Name)
	}
	return names
}

// NewArticle carries the fields written on insert.
type NewArticle struct {
	Title       string
	Link        string
	Summary     string
	Source      string
	PublishedAt *time.Time
}

// Tag is a topical label shared across articles. Name is unique (case-sensitive).
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Idea is a synthesized business idea. The source titles are snapshots taken at creation.
type Idea struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	SourceTitle1 string    `json:"news_source_1"`
	SourceTitle2 string    `json:"news_source_2"`
	DevilAudit   *string   `json:"devil_audit"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasAudit reports whether a devil audit has been stored for the idea.
func (i Idea) HasAudit() bool {
	return i.DevilAudit != nil
}
