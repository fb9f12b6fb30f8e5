package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankwatch/seo-checker/internal/seo"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewPostgresStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func sampleAnalysis() AnalysisRecord {
	return AnalysisRecord{
		ID:               "0190b7a0-0000-7000-8000-000000000001",
		Target:           "example.com",
		DomainRating:     71.5,
		AhrefsRank:       1420,
		OrganicTraffic:   52000,
		OrganicKeywords:  3100,
		BacklinkCount:    88000,
		RefDomains:       950,
		MonthlyVisits:    125500,
		BounceRate:       0.42,
		PagesPerVisit:    3.1,
		AvgVisitDuration: 185.4,
		Category:         "Computers_Electronics_and_Technology",
		CreatedAt:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresSaveAnalysis(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rec := sampleAnalysis()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analyses")).
		WithArgs(
			rec.ID, rec.Target, rec.DomainRating, rec.AhrefsRank,
			rec.OrganicTraffic, rec.OrganicKeywords, rec.BacklinkCount, rec.RefDomains,
			rec.MonthlyVisits, rec.BounceRate, rec.PagesPerVisit, rec.AvgVisitDuration,
			rec.Category, rec.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveAnalysis(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAnalysisRequiresID(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	err := store.SaveAnalysis(context.Background(), AnalysisRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis id")
}

func TestPostgresGetAnalysis(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	rec := sampleAnalysis()

	rows := pgxmock.NewRows([]string{
		"id", "target", "domain_rating", "ahrefs_rank",
		"organic_traffic", "organic_keywords", "backlink_count", "ref_domains",
		"monthly_visits", "bounce_rate", "pages_per_visit", "avg_visit_duration",
		"category", "created_at",
	}).AddRow(
		rec.ID, rec.Target, rec.DomainRating, rec.AhrefsRank,
		rec.OrganicTraffic, rec.OrganicKeywords, rec.BacklinkCount, rec.RefDomains,
		rec.MonthlyVisits, rec.BounceRate, rec.PagesPerVisit, rec.AvgVisitDuration,
		rec.Category, rec.CreatedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta("FROM analyses WHERE id = $1")).
		WithArgs(rec.ID).
		WillReturnRows(rows)

	got, err := store.GetAnalysis(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetAnalysisNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM analyses WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetAnalysis(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveBacklinks(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	firstSeen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backlinks")).
		WithArgs("an-1", "https://a.example/post", "https://example.com/", "a.example", "in", firstSeen).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backlinks")).
		WithArgs("an-1", "https://b.example/", "https://example.com/x", "b.example", "out", firstSeen).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveBacklinks(context.Background(), "an-1", []seo.Backlink{
		{SourceURL: "https://a.example/post", TargetURL: "https://example.com/", SourceDomain: "a.example", Direction: seo.LinkDirectionIn, FirstSeen: firstSeen},
		{SourceURL: "https://b.example/", TargetURL: "https://example.com/x", SourceDomain: "b.example", Direction: seo.LinkDirectionOut, FirstSeen: firstSeen},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListBacklinks(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	firstSeen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"analysis_id", "source_url", "target_url", "source_domain", "direction", "first_seen",
	}).AddRow("an-1", "https://a.example/post", "https://example.com/", "a.example", "in", firstSeen)

	mock.ExpectQuery(regexp.QuoteMeta("FROM backlinks WHERE analysis_id = $1 AND direction = $2")).
		WithArgs("an-1", "in").
		WillReturnRows(rows)

	got, err := store.ListBacklinks(context.Background(), "an-1", seo.LinkDirectionIn)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, seo.LinkDirectionIn, got[0].Direction)
	assert.Equal(t, "a.example", got[0].SourceDomain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertBatchCategory(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO batch_analysis")).
		WithArgs("batch-1", "a.example", "News_and_Media", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertBatchCategory(context.Background(), "batch-1", "a.example", "News_and_Media", now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListBatch(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"target_id", "domain", "domain_category", "updated_at"}).
		AddRow("batch-1", "a.example", "News_and_Media", now).
		AddRow("batch-1", "b.example", "E-commerce_and_Shopping", now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_analysis WHERE target_id = $1")).
		WithArgs("batch-1").
		WillReturnRows(rows)

	got, err := store.ListBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.example", got[0].Domain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectPing()

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
