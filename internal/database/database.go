// Package database defines the interface for persisting SEO analysis results
// and provides the PostgreSQL and SQLite implementations behind it.
// By using an interface, we decouple the application from a specific database
// implementation, allowing for easier testing and backend selection at runtime.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/rankwatch/seo-checker/internal/seo"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// AnalysisRecord is one aggregated snapshot of a target domain, merging the
// Ahrefs and SimilarWeb views at analysis time.
type AnalysisRecord struct {
	ID               string    `db:"id" json:"id"`
	Target           string    `db:"target" json:"target"`
	DomainRating     float64   `db:"domain_rating" json:"domain_rating"`
	AhrefsRank       int64     `db:"ahrefs_rank" json:"ahrefs_rank"`
	OrganicTraffic   int64     `db:"organic_traffic" json:"organic_traffic"`
	OrganicKeywords  int64     `db:"organic_keywords" json:"organic_keywords"`
	BacklinkCount    int64     `db:"backlink_count" json:"backlink_count"`
	RefDomains       int64     `db:"ref_domains" json:"ref_domains"`
	MonthlyVisits    float64   `db:"monthly_visits" json:"monthly_visits"`
	BounceRate       float64   `db:"bounce_rate" json:"bounce_rate"`
	PagesPerVisit    float64   `db:"pages_per_visit" json:"pages_per_visit"`
	AvgVisitDuration float64   `db:"avg_visit_duration" json:"avg_visit_duration"`
	Category         string    `db:"category" json:"category"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// BacklinkRecord is a stored backlink edge tied to an analysis.
type BacklinkRecord struct {
	AnalysisID   string            `db:"analysis_id" json:"analysis_id"`
	SourceURL    string            `db:"source_url" json:"source_url"`
	TargetURL    string            `db:"target_url" json:"target_url"`
	SourceDomain string            `db:"source_domain" json:"source_domain"`
	Direction    seo.LinkDirection `db:"direction" json:"direction"`
	FirstSeen    time.Time         `db:"first_seen" json:"first_seen"`
}

// BatchEntry is one categorized domain under a batch target id.
type BatchEntry struct {
	TargetID       string    `db:"target_id" json:"target_id"`
	Domain         string    `db:"domain" json:"domain"`
	DomainCategory string    `db:"domain_category" json:"domain_category"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Store is the common persistence interface for analysis results.
// Production code uses the Postgres or SQLite implementation depending on
// DB_TYPE; tests use the in-memory implementation.
type Store interface {
	// SaveAnalysis persists one aggregated analysis snapshot.
	SaveAnalysis(ctx context.Context, rec AnalysisRecord) error

	// GetAnalysis fetches a snapshot by id, returning ErrNotFound when absent.
	GetAnalysis(ctx context.Context, id string) (AnalysisRecord, error)

	// ListAnalyses returns the most recent snapshots for a target, newest first.
	ListAnalyses(ctx context.Context, target string, limit int) ([]AnalysisRecord, error)

	// SaveBacklinks stores backlink edges under an analysis id.
	SaveBacklinks(ctx context.Context, analysisID string, links []seo.Backlink) error

	// ListBacklinks returns stored edges for an analysis filtered by direction.
	ListBacklinks(ctx context.Context, analysisID string, direction seo.LinkDirection) ([]BacklinkRecord, error)

	// UpsertBatchCategory records or refreshes the category of one domain
	// under a batch target id.
	UpsertBatchCategory(ctx context.Context, targetID, domain, category string, updatedAt time.Time) error

	// ListBatch returns all categorized domains for a batch target id.
	ListBatch(ctx context.Context, targetID string) ([]BatchEntry, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close terminates the connection and releases any resources.
	Close() error
}
