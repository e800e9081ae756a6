package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"costa_listings/internal/domain"
)

// Attempt records why a source was passed over.
type Attempt struct {
	Source string
	Err    error
}

type Result struct {
	Source   string
	Records  []domain.RawRecord
	Stats    domain.FetchStats
	Attempts []Attempt // failed sources tried before Source
}

// Acquire tries sources in order and returns the records of the first one that
// yields at least one record. When every source fails the error wraps
// ErrAllSourcesFailed together with each source's error.
func Acquire(ctx context.Context, sources ...domain.FeedSource) (Result, error) {
	var res Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recs, stats, err := src.Fetch(ctx)
		if err == nil && len(recs) == 0 {
			err = ErrEmpty
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn().Err(err).Str("source", src.Name()).Msg("feed source failed, trying next")
			res.Attempts = append(res.Attempts, Attempt{Source: src.Name(), Err: err})
			continue
		}
		if stats.Malformed > 0 {
			log.Warn().Str("source", src.Name()).Int("malformed", stats.Malformed).Msg("skipped malformed feed entries")
		}
		log.Info().Str("source", src.Name()).Int("records", len(recs)).Msg("feed acquired")
		res.Source = src.Name()
		res.Records = recs
		res.Stats = stats
		return res, nil
	}

	errs := []error{ErrAllSourcesFailed}
	for _, a := range res.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Source, a.Err))
	}
	return res, errors.Join(errs...)
}
