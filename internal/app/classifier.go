package app

import (
	"strings"

	"costa_listings/internal/domain"
	"costa_listings/internal/shared"
)

// Classifier derives Region, IsGolf and IsPriority from curated allowlists.
// It is pure: identical input always yields identical flags.
type Classifier struct {
	south      []string
	golf       []string
	priority   []string
	southLabel string
	northLabel string
}

func NewClassifier(c shared.Campaign) *Classifier {
	return &Classifier{
		south:      lowerAll(c.SouthTowns),
		golf:       lowerAll(c.GolfAreas),
		priority:   lowerAll(c.PriorityAreas),
		southLabel: c.Regions.South,
		northLabel: c.Regions.North,
	}
}

// Classify returns p with derived fields set.
func (c *Classifier) Classify(p domain.Property) domain.Property {
	p.Region = c.Region(p.Town)
	p.IsGolf = c.IsGolf(p)
	p.IsPriority = c.IsPriority(p.Town)
	return p
}

func (c *Classifier) ClassifyAll(props []domain.Property) {
	for i := range props {
		props[i] = c.Classify(props[i])
	}
}

func (c *Classifier) Region(town string) string {
	if _, ok := MatchArea(town, c.south); ok {
		return c.southLabel
	}
	return c.northLabel
}

func (c *Classifier) IsPriority(town string) bool {
	_, ok := MatchArea(town, c.priority)
	return ok
}

func (c *Classifier) IsGolf(p domain.Property) bool {
	if p.HasGolfview {
		return true
	}
	if _, ok := MatchArea(p.Town, c.golf); ok {
		return true
	}
	if _, ok := MatchArea(p.LocationDetail, c.golf); ok {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description("en")), "golf") {
		return true
	}
	for _, f := range p.Features {
		if strings.Contains(f, "golf") {
			return true
		}
	}
	return false
}

// MatchArea reports the first allowlist term that contains name or is
// contained by it, case-insensitively. An empty name never matches.
// Containment runs both ways so "Orihuela Costa" and "orihuela" meet; short
// names can therefore over-match.
func MatchArea(name string, terms []string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, t := range terms {
		lt := strings.ToLower(strings.TrimSpace(t))
		if lt == "" {
			continue
		}
		if strings.Contains(n, lt) || strings.Contains(lt, n) {
			return t, true
		}
	}
	return "", false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
