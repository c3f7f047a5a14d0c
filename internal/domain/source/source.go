package source

import (
	"context"
	"time"
)

// SearchResult is one hit returned by a web search provider before its
// content has been fetched.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Source is a fetched and persisted document used as citation material.
type Source struct {
	ID        uint
	URL       string
	Title     string
	Content   string
	CreatedAt time.Time
}

// Repository persists sources. Upsert is idempotent on URL: inserting a URL
// that already exists refreshes title and content and returns the existing
// row id.
type Repository interface {
	Upsert(ctx context.Context, src *Source) (*Source, error)
	SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]Source, error)
	Recent(ctx context.Context, limit int) ([]Source, error)
}
