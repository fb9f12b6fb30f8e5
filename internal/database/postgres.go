package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankwatch/seo-checker/internal/seo"
)

// PostgresConfig controls the pgx connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it for tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore connects a pool using the provided config and pings it to
// ensure the backend is alive.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

// SaveAnalysis inserts one analysis snapshot.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	query := `
INSERT INTO analyses (
	id, target, domain_rating, ahrefs_rank,
	organic_traffic, organic_keywords, backlink_count, ref_domains,
	monthly_visits, bounce_rate, pages_per_visit, avg_visit_duration,
	category, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Target, rec.DomainRating, rec.AhrefsRank,
		rec.OrganicTraffic, rec.OrganicKeywords, rec.BacklinkCount, rec.RefDomains,
		rec.MonthlyVisits, rec.BounceRate, rec.PagesPerVisit, rec.AvgVisitDuration,
		rec.Category, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const analysisColumns = `
	id, target, domain_rating, ahrefs_rank,
	organic_traffic, organic_keywords, backlink_count, ref_domains,
	monthly_visits, bounce_rate, pages_per_visit, avg_visit_duration,
	category, created_at`

// GetAnalysis fetches a snapshot by id.
func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (AnalysisRecord, error) {
	query := `SELECT` + analysisColumns + ` FROM analyses WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)

	var rec AnalysisRecord
	err := row.Scan(
		&rec.ID, &rec.Target, &rec.DomainRating, &rec.AhrefsRank,
		&rec.OrganicTraffic, &rec.OrganicKeywords, &rec.BacklinkCount, &rec.RefDomains,
		&rec.MonthlyVisits, &rec.BounceRate, &rec.PagesPerVisit, &rec.AvgVisitDuration,
		&rec.Category, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("select analysis: %w", err)
	}
	return rec, nil
}

// ListAnalyses returns the most recent snapshots for a target.
func (s *PostgresStore) ListAnalyses(ctx context.Context, target string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT` + analysisColumns + `
 FROM analyses WHERE target = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, target, limit)
	if err != nil {
		return nil, fmt.Errorf("select analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(
			&rec.ID, &rec.Target, &rec.DomainRating, &rec.AhrefsRank,
			&rec.OrganicTraffic, &rec.OrganicKeywords, &rec.BacklinkCount, &rec.RefDomains,
			&rec.MonthlyVisits, &rec.BounceRate, &rec.PagesPerVisit, &rec.AvgVisitDuration,
			&rec.Category, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

// SaveBacklinks stores backlink edges under an analysis id.
func (s *PostgresStore) SaveBacklinks(ctx context.Context, analysisID string, links []seo.Backlink) error {
	if analysisID == "" {
		return fmt.Errorf("analysis id is required")
	}
	query := `
INSERT INTO backlinks (analysis_id, source_url, target_url, source_domain, direction, first_seen)
VALUES ($1,$2,$3,$4,$5,$6)`
	for _, l := range links {
		if _, err := s.pool.Exec(ctx, query,
			analysisID, l.SourceURL, l.TargetURL, l.SourceDomain, string(l.Direction), l.FirstSeen,
		); err != nil {
			return fmt.Errorf("insert backlink: %w", err)
		}
	}
	return nil
}

// ListBacklinks returns stored edges for an analysis filtered by direction.
func (s *PostgresStore) ListBacklinks(ctx context.Context, analysisID string, direction seo.LinkDirection) ([]BacklinkRecord, error) {
	query := `
SELECT analysis_id, source_url, target_url, source_domain, direction, first_seen
FROM backlinks WHERE analysis_id = $1 AND direction = $2 ORDER BY first_seen DESC`
	rows, err := s.pool.Query(ctx, query, analysisID, string(direction))
	if err != nil {
		return nil, fmt.Errorf("select backlinks: %w", err)
	}
	defer rows.Close()

	var out []BacklinkRecord
	for rows.Next() {
		var rec BacklinkRecord
		var dir string
		if err := rows.Scan(
			&rec.AnalysisID, &rec.SourceURL, &rec.TargetURL, &rec.SourceDomain, &dir, &rec.FirstSeen,
		); err != nil {
			return nil, fmt.Errorf("scan backlink: %w", err)
		}
		rec.Direction = seo.LinkDirection(dir)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backlinks: %w", err)
	}
	return out, nil
}

// UpsertBatchCategory records or refreshes one categorized domain.
func (s *PostgresStore) UpsertBatchCategory(ctx context.Context, targetID, domain, category string, updatedAt time.Time) error {
	query := `
INSERT INTO batch_analysis (target_id, domain, domain_category, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (target_id, domain)
DO UPDATE SET domain_category = EXCLUDED.domain_category, updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, targetID, domain, category, updatedAt); err != nil {
		return fmt.Errorf("upsert batch category: %w", err)
	}
	return nil
}

// ListBatch returns all categorized domains for a batch target id.
func (s *PostgresStore) ListBatch(ctx context.Context, targetID string) ([]BatchEntry, error) {
	query := `
SELECT target_id, domain, domain_category, updated_at
FROM batch_analysis WHERE target_id = $1 ORDER BY domain`
	rows, err := s.pool.Query(ctx, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("select batch entries: %w", err)
	}
	defer rows.Close()

	var out []BatchEntry
	for rows.Next() {
		var e BatchEntry
		if err := rows.Scan(&e.TargetID, &e.Domain, &e.DomainCategory, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan batch entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch entries: %w", err)
	}
	return out, nil
}

// Ping verifies the pool can reach the server.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
