package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"costa_listings/internal/domain"
)

// ---- counting text generator ----

type fakeGen struct {
	mu      sync.Mutex
	prompts []string
	// reply replaces the canned answer when set.
	reply func(prompt string) (string, error)
	kind  domain.EntityKind
}

func (g *fakeGen) Generate(ctx context.Context, prompt string, maxTokens int) (domain.Completion, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.reply != nil {
		text, err := g.reply(prompt)
		if err != nil {
			return domain.Completion{}, err
		}
		return domain.Completion{Text: text, Model: "fake", InputTokens: 100, OutputTokens: 50}, nil
	}
	return domain.Completion{Text: "```json\n" + validAnswer(g.kind, 6) + "\n```", Model: "fake", InputTokens: 1000, OutputTokens: 500}, nil
}

func (g *fakeGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// validAnswer builds a contract-satisfying answer with n FAQs.
func validAnswer(kind domain.EntityKind, n int) string {
	obj := map[string]any{
		"metaTitle":       "New build villa in Torrevieja with private pool",
		"metaDescription": "Discover this new build villa close to the beach. Contact us today.",
		"heroIntro":       "An introduction.",
		"conclusion":      "Get in touch.",
	}
	switch kind {
	case domain.KindProperty, "":
		obj["h1Title"] = "Villa with pool"
		obj["propertyDescription"] = "A description."
		obj["locationSection"] = map[string]any{"title": "Location", "content": "x", "highlights": []string{"beach"}}
		obj["featuresSection"] = map[string]any{"intro": "x", "highlights": []string{"pool"}}
		obj["imageAlts"] = []string{"3 bedroom villa with pool Torrevieja Spain"}
		obj["whyBuyReasons"] = []string{"price"}
	case domain.KindDevelopment:
		obj["locationSection"] = map[string]any{"intro": "x", "highlights": []string{"beach"}}
		obj["propertyFeatures"] = map[string]any{"intro": "x", "features": []string{"pool"}}
		obj["investmentSection"] = "Good yields."
		obj["whyBuySection"] = []string{"price"}
	case domain.KindArea:
		obj["lifestyleSection"] = map[string]any{"intro": "x"}
		obj["amenitiesSection"] = map[string]any{"beaches": "x"}
		obj["propertyMarketSection"] = "Rising."
		obj["whyLiveHereSection"] = []string{"sun"}
	case domain.KindBuilder:
		obj["aboutSection"] = "Since 1990."
		obj["qualitySection"] = map[string]any{"intro": "x"}
		obj["whyChooseSection"] = []string{"quality"}
	}
	faqs := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		faqs = append(faqs, map[string]string{"question": fmt.Sprintf("Question %d?", i+1), "answer": "Answer."})
	}
	obj["faqs"] = faqs
	b, _ := json.Marshal(obj)
	return string(b)
}

// ---- in-memory content store ----

type memStore struct {
	mu        sync.Mutex
	items     map[string]domain.GeneratedContent
	saveErr   map[string]error
	manifests map[domain.EntityKind]int
}

func newMemStore() *memStore {
	return &memStore{
		items:     map[string]domain.GeneratedContent{},
		saveErr:   map[string]error{},
		manifests: map[domain.EntityKind]int{},
	}
}

func storeKey(kind domain.EntityKind, slug string) string { return string(kind) + "/" + slug }

func (s *memStore) put(kind domain.EntityKind, slug string) {
	s.items[storeKey(kind, slug)] = domain.GeneratedContent{Kind: kind, Slug: slug, Name: slug}
}

func (s *memStore) Exists(kind domain.EntityKind, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[storeKey(kind, slug)]
	return ok, nil
}

func (s *memStore) Save(c domain.GeneratedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[c.Slug]; err != nil {
		return err
	}
	s.items[storeKey(c.Kind, c.Slug)] = c
	return nil
}

func (s *memStore) Load(kind domain.EntityKind, slug string) (domain.GeneratedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[storeKey(kind, slug)]
	if !ok {
		return domain.GeneratedContent{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *memStore) Manifest(kind domain.EntityKind) ([]domain.ManifestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ManifestEntry
	for k, c := range s.items {
		if strings.HasPrefix(k, string(kind)+"/") {
			out = append(out, domain.ManifestEntry{Slug: c.Slug, Name: c.Name, Town: c.Town, Price: c.Price})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *memStore) WriteManifest(kind domain.EntityKind) ([]domain.ManifestEntry, error) {
	m, err := s.Manifest(kind)
	s.mu.Lock()
	s.manifests[kind]++
	s.mu.Unlock()
	return m, err
}

var errBoom = errors.New("boom")
