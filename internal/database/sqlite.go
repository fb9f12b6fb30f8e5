package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/rankwatch/seo-checker/internal/seo"
)

// SQLiteStore implements Store on a local SQLite file via sqlx.
type SQLiteStore struct {
	db *sqlx.DB
}

// SQLiteDSN renders a file path as a mattn/go-sqlite3 DSN with foreign keys
// enabled and a busy timeout suitable for a single-writer service.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a second connection would just contend.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an existing connection (primarily for testing).
func NewSQLiteStoreWithDB(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// SaveAnalysis inserts one analysis snapshot.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	query := `
INSERT INTO analyses (
	id, target, domain_rating, ahrefs_rank,
	organic_traffic, organic_keywords, backlink_count, ref_domains,
	monthly_visits, bounce_rate, pages_per_visit, avg_visit_duration,
	category, created_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Target, rec.DomainRating, rec.AhrefsRank,
		rec.OrganicTraffic, rec.OrganicKeywords, rec.BacklinkCount, rec.RefDomains,
		rec.MonthlyVisits, rec.BounceRate, rec.PagesPerVisit, rec.AvgVisitDuration,
		rec.Category, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetAnalysis fetches a snapshot by id.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (AnalysisRecord, error) {
	var rec AnalysisRecord
	err := s.db.GetContext(ctx, &rec, `SELECT * FROM analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("select analysis: %w", err)
	}
	return rec, nil
}

// ListAnalyses returns the most recent snapshots for a target.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, target string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []AnalysisRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM analyses WHERE target = ? ORDER BY created_at DESC LIMIT ?`,
		target, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select analyses: %w", err)
	}
	return out, nil
}

// SaveBacklinks stores backlink edges under an analysis id in one transaction.
func (s *SQLiteStore) SaveBacklinks(ctx context.Context, analysisID string, links []seo.Backlink) error {
	if analysisID == "" {
		return fmt.Errorf("analysis id is required")
	}
	if len(links) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin backlinks tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
INSERT INTO backlinks (analysis_id, source_url, target_url, source_domain, direction, first_seen)
VALUES (?,?,?,?,?,?)`
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, query,
			analysisID, l.SourceURL, l.TargetURL, l.SourceDomain, string(l.Direction), l.FirstSeen.UTC(),
		); err != nil {
			return fmt.Errorf("insert backlink: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit backlinks: %w", err)
	}
	return nil
}

// ListBacklinks returns stored edges for an analysis filtered by direction.
func (s *SQLiteStore) ListBacklinks(ctx context.Context, analysisID string, direction seo.LinkDirection) ([]BacklinkRecord, error) {
	var out []BacklinkRecord
	err := s.db.SelectContext(ctx, &out, `
SELECT analysis_id, source_url, target_url, source_domain, direction, first_seen
FROM backlinks WHERE analysis_id = ? AND direction = ? ORDER BY first_seen DESC`,
		analysisID, string(direction),
	)
	if err != nil {
		return nil, fmt.Errorf("select backlinks: %w", err)
	}
	return out, nil
}

// UpsertBatchCategory records or refreshes one categorized domain.
func (s *SQLiteStore) UpsertBatchCategory(ctx context.Context, targetID, domain, category string, updatedAt time.Time) error {
	query := `
INSERT INTO batch_analysis (target_id, domain, domain_category, updated_at)
VALUES (?,?,?,?)
ON CONFLICT (target_id, domain)
DO UPDATE SET domain_category = excluded.domain_category, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, targetID, domain, category, updatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert batch category: %w", err)
	}
	return nil
}

// ListBatch returns all categorized domains for a batch target id.
func (s *SQLiteStore) ListBatch(ctx context.Context, targetID string) ([]BatchEntry, error) {
	var out []BatchEntry
	err := s.db.SelectContext(ctx, &out, `
SELECT target_id, domain, domain_category, updated_at
FROM batch_analysis WHERE target_id = ? ORDER BY domain`,
		targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("select batch entries: %w", err)
	}
	return out, nil
}

// Ping verifies the database file is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close shuts down the connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
