package app_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"costa_listings/internal/app"
	"costa_listings/internal/domain"
	"costa_listings/internal/storage/files"
)

// listings builds classified property entities, one per town, with
// references R1, R2, ... and slugs r1, r2, ...
func listings(t *testing.T, towns ...string) []domain.Entity {
	t.Helper()
	props := make([]domain.Property, 0, len(towns))
	for i, town := range towns {
		p := villa()
		p.Reference = "R" + string(rune('1'+i))
		p.Town = town
		p.ProjectName = "Villa " + p.Reference
		props = append(props, p)
	}
	app.AssignSlugs(props)
	es, err := app.BuildEntities(domain.KindProperty, props)
	require.NoError(t, err)
	return es
}

func noneExist(domain.EntityKind, string) (bool, error) { return false, nil }

func slugs(es []domain.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Slug)
	}
	return out
}

func TestSelect_FilterBeforeLimit(t *testing.T) {
	es := listings(t, "Benidorm", "Torrevieja", "Calpe", "Torrevieja Playa", "Torrevieja")
	sel := app.Select(es, app.SelectOptions{Area: "TORRE", Limit: 2}, noneExist)
	assert.Equal(t, 3, sel.Matched)
	assert.Equal(t, []string{"r2", "r4"}, slugs(sel.Pending))
}

func TestSelect_LimitCountsExisting(t *testing.T) {
	es := listings(t, "Altea", "Altea", "Altea")
	exists := func(_ domain.EntityKind, slug string) (bool, error) { return slug == "r1", nil }

	sel := app.Select(es, app.SelectOptions{Limit: 2}, exists)
	assert.Equal(t, 1, sel.Existing)
	assert.Equal(t, []string{"r2"}, slugs(sel.Pending))

	sel = app.Select(es, app.SelectOptions{Limit: 2, Regenerate: true}, exists)
	assert.Equal(t, 0, sel.Existing)
	assert.Equal(t, []string{"r1", "r2"}, slugs(sel.Pending))
}

func TestSelect_LookupErrorIsPerEntity(t *testing.T) {
	es := listings(t, "Altea", "Calpe", "Denia")
	exists := func(_ domain.EntityKind, slug string) (bool, error) {
		if slug == "r2" {
			return false, errBoom
		}
		return false, nil
	}

	sel := app.Select(es, app.SelectOptions{}, exists)
	assert.Equal(t, []string{"r1", "r3"}, slugs(sel.Pending))
	require.Len(t, sel.Failed, 1)
	assert.Equal(t, "r2", sel.Failed[0].Slug)
	assert.Equal(t, app.StageLookup, sel.Failed[0].Stage)
	assert.True(t, errors.Is(sel.Failed[0], errBoom))
}

func TestSelect_PriorityOnly(t *testing.T) {
	es := listings(t, "Altea", "Murcia")
	es[0].Property.IsPriority = true

	sel := app.Select(es, app.SelectOptions{PriorityOnly: true}, noneExist)
	assert.Equal(t, []string{"r1"}, slugs(sel.Pending))

	// an explicit area wins over the priority filter
	sel = app.Select(es, app.SelectOptions{PriorityOnly: true, Area: "murcia"}, noneExist)
	assert.Equal(t, []string{"r2"}, slugs(sel.Pending))
}

func TestBatch_SkipsExistingWithoutCalls(t *testing.T) {
	store := newMemStore()
	store.put(domain.KindProperty, "r1")
	store.put(domain.KindProperty, "r3")
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), store, app.RatePolicy{}, app.DefaultPricing)

	stats, err := b.Run(context.Background(), domain.KindProperty, listings(t, "Altea", "Calpe", "Denia"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls())
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 3, stats.Manifest)
	assert.Equal(t, 1, store.manifests[domain.KindProperty])

	// second run: everything exists, no generator calls at all
	stats, err = b.Run(context.Background(), domain.KindProperty, listings(t, "Altea", "Calpe", "Denia"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls())
	assert.Equal(t, 0, stats.Generated)
	assert.Equal(t, 3, stats.Skipped)
}

func TestBatch_PerEntityFailuresContinue(t *testing.T) {
	store := newMemStore()
	store.saveErr["r3"] = errBoom
	gen := &fakeGen{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Reference: R2") {
			return "no json, sorry", nil
		}
		return validAnswer(domain.KindProperty, 5), nil
	}}
	b := app.NewBatchService(newSynth(gen), store, app.RatePolicy{}, app.DefaultPricing)

	stats, err := b.Run(context.Background(), domain.KindProperty, listings(t, "Altea", "Calpe", "Denia", "Javea"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, gen.calls())
	assert.Equal(t, 2, stats.Generated)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 400, stats.InputTokens)
	assert.Equal(t, 200, stats.OutputTokens)
	assert.InDelta(t, 400.0/1e6*3+200.0/1e6*15, stats.CostUSD, 1e-12)

	require.Len(t, stats.Errors, 2)
	assert.Equal(t, "r2", stats.Errors[0].Slug)
	assert.Equal(t, app.StageParse, stats.Errors[0].Stage)
	assert.Equal(t, "r3", stats.Errors[1].Slug)
	assert.Equal(t, app.StagePersist, stats.Errors[1].Stage)
	assert.True(t, errors.Is(stats.Errors[1], errBoom))

	ok, _ := store.Exists(domain.KindProperty, "r2")
	assert.False(t, ok, "rejected answers are not persisted")
}

// feedEntities runs raw records with the given references through the
// normalizer and returns their property entities.
func feedEntities(t *testing.T, refs ...string) []domain.Entity {
	t.Helper()
	recs := make([]domain.RawRecord, 0, len(refs))
	for _, ref := range refs {
		recs = append(recs, domain.RawRecord{Source: "json", Fields: map[string]any{
			"ref": ref, "town": "Torrevieja", "price": 250000.0, "type": "Villa",
		}})
	}
	res := app.NewNormalizer(nil).NormalizeAll(recs)
	require.Len(t, res.Properties, len(refs))
	es, err := app.BuildEntities(domain.KindProperty, res.Properties)
	require.NoError(t, err)
	return es
}

func TestBatch_UnsluggableReferencesStillGenerate(t *testing.T) {
	store := files.New(t.TempDir())
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), store, app.RatePolicy{}, app.DefaultPricing)

	es := feedEntities(t, "GOOD-1", "###", "参考-?", "index", "GOOD-2")
	got := slugs(es)
	assert.Equal(t, "good-1", got[0])
	assert.Regexp(t, `^villa-[0-9a-f]{8}$`, got[1])
	assert.Regexp(t, `^villa-[0-9a-f]{8}$`, got[2])
	assert.NotEqual(t, got[1], got[2])
	assert.Regexp(t, `^villa-[0-9a-f]{8}$`, got[3])
	assert.Equal(t, "good-2", got[4])

	stats, err := b.Run(context.Background(), domain.KindProperty, es, app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, gen.calls())
	assert.Equal(t, 5, stats.Generated)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 5, stats.Manifest)

	// the fallback slugs are stable, so a rerun finds every file
	stats, err = b.Run(context.Background(), domain.KindProperty, feedEntities(t, "GOOD-1", "###", "参考-?", "index", "GOOD-2"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, gen.calls())
	assert.Equal(t, 5, stats.Skipped)
}

func TestBatch_CollidingReferenceSlugsStayApart(t *testing.T) {
	store := files.New(t.TempDir())
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), store, app.RatePolicy{}, app.DefaultPricing)

	es := feedEntities(t, "A/1", "A-1", "a 1")
	assert.Equal(t, []string{"a-1", "a-1-2", "a-1-3"}, slugs(es))

	stats, err := b.Run(context.Background(), domain.KindProperty, es, app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Generated)
	assert.Equal(t, 3, stats.Manifest)

	entries, err := store.Manifest(domain.KindProperty)
	require.NoError(t, err)
	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		c, err := store.Load(domain.KindProperty, e.Slug)
		require.NoError(t, err)
		refs = append(refs, c.Reference)
	}
	assert.ElementsMatch(t, []string{"A/1", "A-1", "a 1"}, refs)
}

func TestBatch_LookupFailureDoesNotStopKind(t *testing.T) {
	store := &lookupFailStore{memStore: newMemStore(), bad: "r2"}
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), store, app.RatePolicy{}, app.DefaultPricing)

	stats, err := b.Run(context.Background(), domain.KindProperty, listings(t, "Altea", "Calpe", "Denia"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls())
	assert.Equal(t, 2, stats.Generated)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, app.StageLookup, stats.Errors[0].Stage)
}

type lookupFailStore struct {
	*memStore
	bad string
}

func (s *lookupFailStore) Exists(kind domain.EntityKind, slug string) (bool, error) {
	if slug == s.bad {
		return false, errBoom
	}
	return s.memStore.Exists(kind, slug)
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), newMemStore(), app.RatePolicy{}, app.DefaultPricing)

	_, err := b.Run(ctx, domain.KindProperty, listings(t, "Altea"), app.SelectOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, gen.calls())
}

func TestBatch_RateLimited(t *testing.T) {
	gen := &fakeGen{}
	b := app.NewBatchService(newSynth(gen), newMemStore(), app.RatePolicy{Calls: 1, Per: 40 * time.Millisecond}, app.DefaultPricing)

	start := time.Now()
	stats, err := b.Run(context.Background(), domain.KindProperty, listings(t, "Altea", "Calpe", "Denia"), app.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Generated)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestRatePolicy_Limiter(t *testing.T) {
	assert.Equal(t, rate.Inf, app.RatePolicy{}.Limiter().Limit())
	l := app.RatePolicy{Calls: 2, Per: time.Second}.Limiter()
	assert.InDelta(t, 2.0, float64(l.Limit()), 1e-9)
	assert.Equal(t, 1, l.Burst())
}

func TestPricing_Cost(t *testing.T) {
	assert.InDelta(t, 18.0, app.DefaultPricing.Cost(1_000_000, 1_000_000), 1e-9)
	assert.Zero(t, app.Pricing{}.Cost(5000, 5000))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	rep := app.Report{Fetched: 6, Valid: 4, Dropped: 2, Runs: []app.RunStats{
		{Kind: domain.KindProperty, Matched: 3, Generated: 2, Failed: 1, InputTokens: 10, OutputTokens: 5,
			Errors: []*app.EntityError{{Kind: domain.KindProperty, Slug: "r2", Stage: app.StageParse, Err: app.ErrNoJSON}}},
		{Kind: domain.KindArea, Matched: 1, Skipped: 1},
	}}
	require.NoError(t, app.WriteSummary(&buf, rep))
	out := buf.String()
	assert.Regexp(t, `RECORDS\s+fetched 6\s+valid 4\s+dropped 2`, out)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "property")
	assert.Contains(t, out, "area")
	assert.Regexp(t, `TOTAL\s+4\s+2\s+1\s+1\s+10\s+5`, out)
	assert.Contains(t, out, "property r2: parse: no JSON object in response")
}
