package app

import (
	"context"
	"time"

	"costa_listings/internal/domain"
	"costa_listings/internal/schema"
	"costa_listings/internal/shared"
)

// Synthesizer turns one entity into validated content through a single
// blocking call to the text generator.
type Synthesizer struct {
	gen      domain.TextGenerator
	cls      *Classifier
	campaign shared.Campaign
	now      func() time.Time
}

func NewSynthesizer(gen domain.TextGenerator, cls *Classifier, c shared.Campaign) *Synthesizer {
	return &Synthesizer{gen: gen, cls: cls, campaign: c, now: func() time.Time { return time.Now().UTC() }}
}

// Generate returns the content and the token usage of the call. Usage is
// reported even when the answer is rejected, since the tokens were spent.
// Failures are *EntityError.
func (s *Synthesizer) Generate(ctx context.Context, e domain.Entity) (domain.GeneratedContent, domain.Completion, error) {
	fail := func(stage string, err error) error {
		return &EntityError{Kind: e.Kind, Slug: e.Slug, Stage: stage, Err: err}
	}

	prompt, err := BuildPrompt(e, s.cls, s.campaign)
	if err != nil {
		return domain.GeneratedContent{}, domain.Completion{}, fail(StageGenerate, err)
	}
	comp, err := s.gen.Generate(ctx, prompt, contracts[e.Kind].MaxTokens)
	if err != nil {
		return domain.GeneratedContent{}, domain.Completion{}, fail(StageGenerate, err)
	}

	raw, err := ExtractJSON(comp.Text)
	if err != nil {
		return domain.GeneratedContent{}, comp, fail(StageParse, err)
	}
	v, err := Validate(e.Kind, raw)
	if err != nil {
		return domain.GeneratedContent{}, comp, fail(StageValidate, err)
	}

	out := domain.GeneratedContent{
		Slug:            e.Slug,
		Kind:            e.Kind,
		Name:            e.Name,
		Town:            e.Town,
		Price:           e.Price(),
		MetaTitle:       v.MetaTitle,
		MetaDescription: v.MetaDescription,
		Sections:        v.Sections,
		FAQs:            v.FAQs,
		ImageAlts:       PairImageAlts(e.Property, e.Name, s.campaign.Coast, v.ImageAlts),
		Model:           comp.Model,
		GeneratedAt:     s.now(),
	}
	if e.Property != nil {
		out.Reference = e.Property.Reference
	}
	out.Schema = schema.ForEntity(s.campaign, e, out)
	return out, comp, nil
}
