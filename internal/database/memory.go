package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rankwatch/seo-checker/internal/seo"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	analyses  map[string]AnalysisRecord
	backlinks map[string][]BacklinkRecord
	batches   map[string]map[string]BatchEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses:  make(map[string]AnalysisRecord),
		backlinks: make(map[string][]BacklinkRecord),
		batches:   make(map[string]map[string]BatchEntry),
	}
}

// SaveAnalysis stores a snapshot keyed by id.
func (m *MemoryStore) SaveAnalysis(_ context.Context, rec AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[rec.ID] = rec
	return nil
}

// GetAnalysis fetches a snapshot by id.
func (m *MemoryStore) GetAnalysis(_ context.Context, id string) (AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.analyses[id]
	if !ok {
		return AnalysisRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListAnalyses returns snapshots for a target, newest first.
func (m *MemoryStore) ListAnalyses(_ context.Context, target string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AnalysisRecord
	for _, rec := range m.analyses {
		if rec.Target == target {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveBacklinks appends edges under an analysis id.
func (m *MemoryStore) SaveBacklinks(_ context.Context, analysisID string, links []seo.Backlink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range links {
		m.backlinks[analysisID] = append(m.backlinks[analysisID], BacklinkRecord{
			AnalysisID:   analysisID,
			SourceURL:    l.SourceURL,
			TargetURL:    l.TargetURL,
			SourceDomain: l.SourceDomain,
			Direction:    l.Direction,
			FirstSeen:    l.FirstSeen,
		})
	}
	return nil
}

// ListBacklinks filters stored edges by direction.
func (m *MemoryStore) ListBacklinks(_ context.Context, analysisID string, direction seo.LinkDirection) ([]BacklinkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []BacklinkRecord
	for _, rec := range m.backlinks[analysisID] {
		if rec.Direction == direction {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UpsertBatchCategory records or refreshes one categorized domain.
func (m *MemoryStore) UpsertBatchCategory(_ context.Context, targetID, domain, category string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batches[targetID] == nil {
		m.batches[targetID] = make(map[string]BatchEntry)
	}
	m.batches[targetID][domain] = BatchEntry{
		TargetID:       targetID,
		Domain:         domain,
		DomainCategory: category,
		UpdatedAt:      updatedAt,
	}
	return nil
}

// ListBatch returns categorized domains sorted by domain name.
func (m *MemoryStore) ListBatch(_ context.Context, targetID string) ([]BatchEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []BatchEntry
	for _, e := range m.batches[targetID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
