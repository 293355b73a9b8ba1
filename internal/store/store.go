// Package store persists searches, AI verdicts and the enrichment cache.
package store

import (
	"context"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Search is one recorded search session.
type Search struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Location  string    `json:"location,omitempty"`
	NicheID   string    `json:"niche_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for prospect searches.
type Store interface {
	// Searches
	CreateSearch(ctx context.Context, id, query, location, nicheID string) (*Search, error)
	ListSearches(ctx context.Context, limit int) ([]Search, error)
	SaveListings(ctx context.Context, searchID string, offset int, listings []model.Listing) error
	SaveVerdicts(ctx context.Context, searchID string, verdicts map[string]model.AIVerdict) error

	// Enrichment cache, keyed by listing key. Get returns nil when missing
	// or expired.
	GetEnrichment(ctx context.Context, key string) (*model.EnrichmentRecord, error)
	SaveEnrichment(ctx context.Context, key string, rec model.EnrichmentRecord, ttl time.Duration) error
	DeleteExpiredEnrichment(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
