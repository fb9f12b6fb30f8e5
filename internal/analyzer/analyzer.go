// Package analyzer implements the aggregation service: it fans out to the
// Ahrefs and SimilarWeb clients, merges their views of a target into one
// analysis snapshot, and persists the result.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rankwatch/seo-checker/internal/database"
	"github.com/rankwatch/seo-checker/internal/metrics"
	"github.com/rankwatch/seo-checker/internal/seo"
)

// ErrInvalidInput marks caller mistakes (malformed target, empty batch) so
// the HTTP layer can answer 400 without inspecting error strings.
var ErrInvalidInput = errors.New("invalid input")

// AhrefsClient is the slice of the Ahrefs API the analyzer needs.
type AhrefsClient interface {
	SiteMetrics(ctx context.Context, target string) (seo.TargetMetrics, error)
	Backlinks(ctx context.Context, target string, limit int) ([]seo.Backlink, error)
}

// SimilarWebClient is the slice of the SimilarWeb API the analyzer needs.
type SimilarWebClient interface {
	Traffic(ctx context.Context, domain string) (seo.TrafficMetrics, error)
	Category(ctx context.Context, domain string) (string, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces analysis record ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Config tunes analyzer behavior.
type Config struct {
	BacklinkLimit int // backlinks fetched per analysis
	BatchWorkers  int // concurrent category lookups in batch runs
}

// Analyzer aggregates provider metrics and persists them.
type Analyzer struct {
	store      database.Store
	ahrefs     AhrefsClient
	similarweb SimilarWebClient
	clock      Clock
	ids        IDGenerator
	logger     *zap.Logger
	cfg        Config
}

// New constructs an Analyzer.
func New(
	store database.Store,
	ahrefs AhrefsClient,
	similarweb SimilarWebClient,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
	cfg Config,
) *Analyzer {
	if cfg.BacklinkLimit <= 0 {
		cfg.BacklinkLimit = 100
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}
	return &Analyzer{
		store:      store,
		ahrefs:     ahrefs,
		similarweb: similarweb,
		clock:      clock,
		ids:        ids,
		logger:     logger,
		cfg:        cfg,
	}
}

// AnalyzeTarget runs one full aggregation for a target domain: Ahrefs site
// metrics, Ahrefs backlinks, and SimilarWeb traffic are fetched concurrently,
// merged into a single snapshot, and stored. A failure from either provider
// fails the whole run; a partial snapshot is never persisted.
func (a *Analyzer) AnalyzeTarget(ctx context.Context, target string) (database.AnalysisRecord, error) {
	domain, err := NormalizeTarget(target)
	if err != nil {
		return database.AnalysisRecord{}, err
	}

	var (
		wg sync.WaitGroup

		targetMetrics  seo.TargetMetrics
		targetErr      error
		trafficMetrics seo.TrafficMetrics
		trafficErr     error
		links          []seo.Backlink
		linksErr       error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		targetMetrics, targetErr = a.ahrefs.SiteMetrics(ctx, domain)
	}()
	go func() {
		defer wg.Done()
		trafficMetrics, trafficErr = a.similarweb.Traffic(ctx, domain)
	}()
	go func() {
		defer wg.Done()
		links, linksErr = a.ahrefs.Backlinks(ctx, domain, a.cfg.BacklinkLimit)
	}()
	wg.Wait()

	for _, fetchErr := range []error{targetErr, trafficErr, linksErr} {
		if fetchErr != nil {
			metrics.ObserveAnalysis("failed")
			return database.AnalysisRecord{}, fmt.Errorf("analyze %q: %w", domain, fetchErr)
		}
	}

	id, err := a.ids.NewID()
	if err != nil {
		metrics.ObserveAnalysis("failed")
		return database.AnalysisRecord{}, fmt.Errorf("generate analysis id: %w", err)
	}

	rec := database.AnalysisRecord{
		ID:               id,
		Target:           domain,
		DomainRating:     targetMetrics.DomainRating,
		AhrefsRank:       targetMetrics.AhrefsRank,
		OrganicTraffic:   targetMetrics.OrganicTraffic,
		OrganicKeywords:  targetMetrics.OrganicKeywords,
		BacklinkCount:    targetMetrics.Backlinks,
		RefDomains:       targetMetrics.RefDomains,
		MonthlyVisits:    trafficMetrics.MonthlyVisits,
		BounceRate:       trafficMetrics.BounceRate,
		PagesPerVisit:    trafficMetrics.PagesPerVisit,
		AvgVisitDuration: trafficMetrics.AvgVisitDuration,
		Category:         trafficMetrics.Category,
		CreatedAt:        a.clock.Now(),
	}

	if err := a.store.SaveAnalysis(ctx, rec); err != nil {
		metrics.ObserveAnalysis("failed")
		return database.AnalysisRecord{}, fmt.Errorf("persist analysis: %w", err)
	}
	if err := a.store.SaveBacklinks(ctx, rec.ID, links); err != nil {
		metrics.ObserveAnalysis("failed")
		return database.AnalysisRecord{}, fmt.Errorf("persist backlinks: %w", err)
	}

	metrics.ObserveAnalysis("succeeded")
	a.logger.Info("analysis completed",
		zap.String("analysis_id", rec.ID),
		zap.String("target", domain),
		zap.Int("backlinks", len(links)),
	)
	return rec, nil
}

// CategorizeBatch looks up the SimilarWeb category for each domain and
// upserts the result under the batch target id. Lookups run with bounded
// concurrency; individual failures are logged and skipped, but a batch where
// every lookup failed is an error.
func (a *Analyzer) CategorizeBatch(ctx context.Context, targetID string, domains []string) (int, error) {
	if targetID == "" {
		return 0, fmt.Errorf("%w: target id is required", ErrInvalidInput)
	}

	unique := dedupeDomains(domains)
	if len(unique) == 0 {
		return 0, fmt.Errorf("%w: at least one valid domain is required", ErrInvalidInput)
	}

	var (
		mu       sync.Mutex
		done     int
		firstErr error
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < a.cfg.BatchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for domain := range jobs {
				category, err := a.similarweb.Category(ctx, domain)
				if err != nil {
					a.logger.Warn("category lookup failed",
						zap.String("target_id", targetID),
						zap.String("domain", domain),
						zap.Error(err),
					)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				if err := a.store.UpsertBatchCategory(ctx, targetID, domain, category, a.clock.Now()); err != nil {
					a.logger.Warn("category upsert failed",
						zap.String("domain", domain),
						zap.Error(err),
					)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				mu.Lock()
				done++
				mu.Unlock()
			}
		}()
	}

	for _, domain := range unique {
		select {
		case <-ctx.Done():
			// Stop feeding; workers drain and exit.
			close(jobs)
			wg.Wait()
			return done, fmt.Errorf("batch canceled: %w", ctx.Err())
		case jobs <- domain:
		}
	}
	close(jobs)
	wg.Wait()

	metrics.ObserveBatchDomains(done)
	if done == 0 && firstErr != nil {
		return 0, fmt.Errorf("categorize batch %q: %w", targetID, firstErr)
	}
	a.logger.Info("batch categorization completed",
		zap.String("target_id", targetID),
		zap.Int("categorized", done),
		zap.Int("requested", len(unique)),
	)
	return done, nil
}

// NormalizeTarget reduces a user-supplied target to a bare lowercase domain.
// Full URLs are accepted; the host is extracted.
func NormalizeTarget(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: target is required", ErrInvalidInput)
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Hostname() == "" {
			return "", fmt.Errorf("%w: target %q", ErrInvalidInput, raw)
		}
		return strings.ToLower(u.Hostname()), nil
	}
	s = strings.ToLower(strings.TrimSuffix(s, "/"))
	if strings.ContainsAny(s, " /?#") {
		return "", fmt.Errorf("%w: target %q", ErrInvalidInput, raw)
	}
	return s, nil
}

func dedupeDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		normalized, err := NormalizeTarget(d)
		if err != nil {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
