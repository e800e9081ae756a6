package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/domain"
)

// RatePolicy bounds generator calls to Calls per Per. A zero policy is unlimited.
type RatePolicy struct {
	Calls int
	Per   time.Duration
}

// Limiter spaces calls evenly: one token every Per/Calls, no burst.
func (p RatePolicy) Limiter() *rate.Limiter {
	if p.Calls <= 0 || p.Per <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(p.Per/time.Duration(p.Calls)), 1)
}

// Pricing is USD per million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

var DefaultPricing = Pricing{InputPerMTok: 3, OutputPerMTok: 15}

func (p Pricing) Cost(input, output int) float64 {
	return float64(input)/1e6*p.InputPerMTok + float64(output)/1e6*p.OutputPerMTok
}

type SelectOptions struct {
	Area         string // case-insensitive substring of a town; empty keeps all
	Limit        int    // <= 0 means no cap
	Regenerate   bool
	PriorityOnly bool // without Area, keep only priority-area entities
}

type Selection struct {
	Pending  []domain.Entity
	Matched  int // after the area filter
	Existing int // dropped because content is already on disk
	Failed   []*EntityError
}

// Select applies, in order: area filter, limit, existing-content skip.
// The limit counts filtered entities, including ones later skipped as existing.
// An entity whose existence cannot be checked is reported in Failed.
func Select(entities []domain.Entity, opts SelectOptions, exists func(domain.EntityKind, string) (bool, error)) Selection {
	var sel Selection
	area := strings.ToLower(strings.TrimSpace(opts.Area))

	matched := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		switch {
		case area != "":
			if !townMatches(e, area) {
				continue
			}
		case opts.PriorityOnly:
			if !isPriorityEntity(e) {
				continue
			}
		}
		matched = append(matched, e)
	}
	sel.Matched = len(matched)

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	for _, e := range matched {
		if !opts.Regenerate {
			ok, err := exists(e.Kind, e.Slug)
			if err != nil {
				sel.Failed = append(sel.Failed, &EntityError{Kind: e.Kind, Slug: e.Slug, Stage: StageLookup, Err: err})
				continue
			}
			if ok {
				sel.Existing++
				continue
			}
		}
		sel.Pending = append(sel.Pending, e)
	}
	return sel
}

func townMatches(e domain.Entity, area string) bool {
	for _, t := range e.Towns() {
		if strings.Contains(strings.ToLower(t), area) {
			return true
		}
	}
	return false
}

type RunStats struct {
	Kind         domain.EntityKind
	Total        int
	Matched      int
	Generated    int
	Failed       int
	Skipped      int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Manifest     int
	Errors       []*EntityError
	Duration     time.Duration
}

type BatchService struct {
	synth   *Synthesizer
	store   domain.ContentStore
	limiter *rate.Limiter
	pricing Pricing
}

func NewBatchService(s *Synthesizer, store domain.ContentStore, rp RatePolicy, pr Pricing) *BatchService {
	return &BatchService{synth: s, store: store, limiter: rp.Limiter(), pricing: pr}
}

// Run generates content for entities of one kind, strictly one at a time.
// Per-entity failures are counted and logged; the returned error is reserved
// for cancellation and storage failures that affect the whole kind.
func (b *BatchService) Run(ctx context.Context, kind domain.EntityKind, entities []domain.Entity, opts SelectOptions) (RunStats, error) {
	start := time.Now()
	stats := RunStats{Kind: kind, Total: len(entities)}

	sel := Select(entities, opts, b.store.Exists)
	stats.Matched = sel.Matched
	stats.Skipped = sel.Existing
	if sel.Existing > 0 {
		observability.GenerationResults.WithLabelValues(string(kind), "skipped").Add(float64(sel.Existing))
	}
	log.Info().Str("kind", string(kind)).Int("matched", sel.Matched).Int("pending", len(sel.Pending)).
		Int("existing", sel.Existing).Msg("batch selected")
	for _, ee := range sel.Failed {
		b.fail(&stats, ee)
	}

	for i, e := range sel.Pending {
		if err := b.limiter.Wait(ctx); err != nil {
			return b.finish(stats, start), err
		}
		log.Info().Str("kind", string(kind)).Str("slug", e.Slug).
			Str("progress", fmt.Sprintf("%d/%d", i+1, len(sel.Pending))).Msg("generating")

		content, usage, err := b.synth.Generate(ctx, e)
		stats.InputTokens += usage.InputTokens
		stats.OutputTokens += usage.OutputTokens
		observability.ObserveTokens(usage.InputTokens, usage.OutputTokens)
		if err == nil {
			if serr := b.store.Save(content); serr != nil {
				err = &EntityError{Kind: kind, Slug: e.Slug, Stage: StagePersist, Err: serr}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return b.finish(stats, start), ctx.Err()
			}
			var ee *EntityError
			if !errors.As(err, &ee) {
				ee = &EntityError{Kind: kind, Slug: e.Slug, Stage: StageGenerate, Err: err}
			}
			b.fail(&stats, ee)
			continue
		}
		stats.Generated++
		observability.ObserveGeneration(string(kind), "generated")
		log.Info().Str("kind", string(kind)).Str("slug", e.Slug).Int("input_tokens", usage.InputTokens).
			Int("output_tokens", usage.OutputTokens).Msg("entity generated")
	}

	entries, err := b.store.WriteManifest(kind)
	stats = b.finish(stats, start)
	if err != nil {
		return stats, fmt.Errorf("write %s manifest: %w", kind, err)
	}
	stats.Manifest = len(entries)
	return stats, nil
}

func (b *BatchService) fail(stats *RunStats, ee *EntityError) {
	stats.Failed++
	stats.Errors = append(stats.Errors, ee)
	observability.ObserveGeneration(string(ee.Kind), "failed")
	log.Warn().Err(ee.Err).Str("kind", string(ee.Kind)).Str("slug", ee.Slug).Str("stage", ee.Stage).
		Msg("entity failed")
}

func (b *BatchService) finish(stats RunStats, start time.Time) RunStats {
	stats.CostUSD = b.pricing.Cost(stats.InputTokens, stats.OutputTokens)
	stats.Duration = time.Since(start)
	return stats
}

// WriteSummary prints the record counts, one row per kind and a total line.
func WriteSummary(w io.Writer, rep Report) error {
	runs := rep.Runs
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RECORDS\tfetched %d\tvalid %d\tdropped %d\n\n", rep.Fetched, rep.Valid, rep.Dropped)
	fmt.Fprintln(tw, "KIND\tMATCHED\tGENERATED\tSKIPPED\tFAILED\tIN TOKENS\tOUT TOKENS\tCOST USD\tDURATION")
	var total RunStats
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.4f\t%s\n", r.Kind, r.Matched, r.Generated, r.Skipped,
			r.Failed, r.InputTokens, r.OutputTokens, r.CostUSD, r.Duration.Round(time.Millisecond))
		total.Matched += r.Matched
		total.Generated += r.Generated
		total.Skipped += r.Skipped
		total.Failed += r.Failed
		total.InputTokens += r.InputTokens
		total.OutputTokens += r.OutputTokens
		total.CostUSD += r.CostUSD
		total.Duration += r.Duration
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t%d\t%d\t%.4f\t%s\n", total.Matched, total.Generated, total.Skipped,
		total.Failed, total.InputTokens, total.OutputTokens, total.CostUSD, total.Duration.Round(time.Millisecond))
	for _, r := range runs {
		for _, e := range r.Errors {
			fmt.Fprintf(tw, "  failed\t%s\n", e.Error())
		}
	}
	return tw.Flush()
}
