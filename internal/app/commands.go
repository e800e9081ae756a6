package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/domain"
)

// IngestionService mirrors a normalized batch into the property catalog.
type IngestionService struct {
	catalog domain.Catalog
	cache   domain.Cache
	workers int64
}

func NewIngestionService(c domain.Catalog, cache domain.Cache, workers int) *IngestionService {
	if workers < 1 {
		workers = 1
	}
	return &IngestionService{catalog: c, cache: cache, workers: int64(workers)}
}

type IngestStats struct {
	Upserted int
	Failed   int
	Skipped  int
}

// Ingest upserts every property on up to workers goroutines and records every
// skip. Failed upserts are logged and counted, and the batch still completes;
// the returned error then summarizes them. Cancellation stops early.
func (s *IngestionService) Ingest(ctx context.Context, res NormalizeResult) (IngestStats, error) {
	var (
		stats IngestStats
		mu    sync.Mutex
		wg    sync.WaitGroup
	)
	sem := semaphore.NewWeighted(s.workers)

	for _, p := range res.Properties {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return stats, err
		}
		wg.Add(1)
		go func(p domain.Property) {
			defer wg.Done()
			defer sem.Release(1)

			err := s.catalog.UpsertProperty(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				log.Warn().Err(err).Str("reference", p.Reference).Msg("catalog upsert failed")
				return
			}
			stats.Upserted++
			s.invalidateProperty(ctx, p)
		}(p)
	}
	wg.Wait()

	for _, sk := range res.Skipped {
		// best effort: the skip log is diagnostic only
		if err := s.catalog.LogSkip(ctx, sk.Reference, sk.Source, sk.Err.Error()); err != nil {
			log.Warn().Err(err).Str("reference", sk.Reference).Msg("skip log failed")
		}
		stats.Skipped++
	}
	observability.ObserveFeed("catalog", "upserted", stats.Upserted)
	observability.ObserveFeed("catalog", "failed", stats.Failed)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d catalog upserts failed", stats.Failed, len(res.Properties))
	}
	return stats, nil
}

// invalidateProperty evicts the property view and the list pages its town
// and the unfiltered listing may appear in.
func (s *IngestionService) invalidateProperty(ctx context.Context, p domain.Property) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, propertyKey(p.Reference))
	for _, town := range []string{"", strings.ToLower(p.Town)} {
		for _, lim := range []int{DefaultListLimit, 100, 200} {
			_ = s.cache.Del(ctx, listingsKey(town, lim))
		}
	}
}
