package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"costa_listings/internal/domain"
)

// FetchFunc returns the raw records of one acquisition attempt.
type FetchFunc func(ctx context.Context) ([]domain.RawRecord, error)

// Pipeline is one generator run: acquire, normalize, classify, optionally
// mirror into the catalog, then generate each requested kind in order.
type Pipeline struct {
	Fetch      FetchFunc
	Normalizer *Normalizer
	Classifier *Classifier
	Ingest     *IngestionService // nil when no catalog is configured
	Batch      *BatchService
}

type PipelineOptions struct {
	Kinds  []domain.EntityKind
	Select SelectOptions
}

// Report is what a run did: record counts from normalization and the stats
// of every kind that ran.
type Report struct {
	Fetched int
	Valid   int
	Dropped int // records the normalizer rejected or deduplicated
	Runs    []RunStats
}

// Run returns the report of everything that ran. An acquisition failure or a
// cancelled context stops the run; per-entity failures never do.
func (p *Pipeline) Run(ctx context.Context, opts PipelineOptions) (Report, error) {
	var rep Report
	recs, err := p.Fetch(ctx)
	if err != nil {
		return rep, err
	}

	res := p.Normalizer.NormalizeAll(recs)
	rep.Fetched, rep.Valid, rep.Dropped = len(recs), len(res.Properties), len(res.Skipped)
	p.Classifier.ClassifyAll(res.Properties)
	log.Info().Int("raw", len(recs)).Int("valid", len(res.Properties)).Int("skipped", len(res.Skipped)).
		Msg("listings normalized")
	for _, sk := range res.Skipped {
		log.Debug().Str("reference", sk.Reference).Str("source", sk.Source).Str("reason", sk.Err.Error()).
			Msg("record skipped")
	}

	if p.Ingest != nil {
		st, err := p.Ingest.Ingest(ctx, res)
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if err != nil {
			log.Warn().Err(err).Msg("catalog ingest incomplete")
		}
		log.Info().Int("upserted", st.Upserted).Int("failed", st.Failed).Int("skips", st.Skipped).
			Msg("catalog updated")
	}

	rep.Runs = make([]RunStats, 0, len(opts.Kinds))
	for _, kind := range opts.Kinds {
		entities, err := BuildEntities(kind, res.Properties)
		if err != nil {
			return rep, err
		}
		stats, err := p.Batch.Run(ctx, kind, entities, opts.Select)
		rep.Runs = append(rep.Runs, stats)
		if err != nil {
			return rep, fmt.Errorf("%s batch: %w", kind, err)
		}
	}
	return rep, nil
}
