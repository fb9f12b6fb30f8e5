package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankwatch/seo-checker/internal/seo"
)

// newSQLiteTestStore opens an in-memory database and applies the embedded
// sqlite schema.
func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := migrationsFS.ReadFile("migrations/sqlite/000001_initial_schema.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return NewSQLiteStoreWithDB(db)
}

func TestSQLiteAnalysisRoundTrip(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	ctx := context.Background()
	rec := sampleAnalysis()

	require.NoError(t, store.SaveAnalysis(ctx, rec))

	got, err := store.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Target, got.Target)
	assert.Equal(t, rec.DomainRating, got.DomainRating)
	assert.Equal(t, rec.BacklinkCount, got.BacklinkCount)
	assert.Equal(t, rec.Category, got.Category)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt), "created_at: want %v, got %v", rec.CreatedAt, got.CreatedAt)
}

func TestSQLiteGetAnalysisNotFound(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	_, err := store.GetAnalysis(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListAnalysesNewestFirst(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	ctx := context.Background()

	older := sampleAnalysis()
	older.ID = "an-older"
	older.CreatedAt = time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	newer := sampleAnalysis()
	newer.ID = "an-newer"
	newer.CreatedAt = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	other := sampleAnalysis()
	other.ID = "an-other"
	other.Target = "other.org"

	for _, rec := range []AnalysisRecord{older, newer, other} {
		require.NoError(t, store.SaveAnalysis(ctx, rec))
	}

	got, err := store.ListAnalyses(ctx, "example.com", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "an-newer", got[0].ID)
	assert.Equal(t, "an-older", got[1].ID)

	limited, err := store.ListAnalyses(ctx, "example.com", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "an-newer", limited[0].ID)
}

func TestSQLiteBacklinksRoundTrip(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	ctx := context.Background()
	rec := sampleAnalysis()
	require.NoError(t, store.SaveAnalysis(ctx, rec))

	firstSeen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	links := []seo.Backlink{
		{SourceURL: "https://a.example/post", TargetURL: "https://example.com/", SourceDomain: "a.example", Direction: seo.LinkDirectionIn, FirstSeen: firstSeen},
		{SourceURL: "https://example.com/about", TargetURL: "https://b.example/", SourceDomain: "example.com", Direction: seo.LinkDirectionOut, FirstSeen: firstSeen},
	}
	require.NoError(t, store.SaveBacklinks(ctx, rec.ID, links))

	inbound, err := store.ListBacklinks(ctx, rec.ID, seo.LinkDirectionIn)
	require.NoError(t, err)
	require.Len(t, inbound, 1)
	assert.Equal(t, "a.example", inbound[0].SourceDomain)

	outbound, err := store.ListBacklinks(ctx, rec.ID, seo.LinkDirectionOut)
	require.NoError(t, err)
	require.Len(t, outbound, 1)
	assert.Equal(t, seo.LinkDirectionOut, outbound[0].Direction)
}

func TestSQLiteSaveBacklinksEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	require.NoError(t, store.SaveBacklinks(context.Background(), "an-1", nil))
}

func TestSQLiteBatchUpsert(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertBatchCategory(ctx, "batch-1", "a.example", "News_and_Media", first))
	require.NoError(t, store.UpsertBatchCategory(ctx, "batch-1", "b.example", "Sports", first))
	// Re-categorizing an existing domain replaces, not duplicates.
	require.NoError(t, store.UpsertBatchCategory(ctx, "batch-1", "a.example", "E-commerce_and_Shopping", second))

	got, err := store.ListBatch(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.example", got[0].Domain)
	assert.Equal(t, "E-commerce_and_Shopping", got[0].DomainCategory)
	assert.True(t, second.Equal(got[0].UpdatedAt))
}

func TestSQLitePing(t *testing.T) {
	t.Parallel()

	store := newSQLiteTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
