package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EntityKind string

const (
	KindProperty    EntityKind = "property"
	KindDevelopment EntityKind = "development"
	KindArea        EntityKind = "area"
	KindBuilder     EntityKind = "builder"
)

var AllKinds = []EntityKind{KindProperty, KindDevelopment, KindArea, KindBuilder}

func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Dir is the content sub-directory holding entities of this kind.
func (k EntityKind) Dir() string {
	switch k {
	case KindProperty:
		return "properties"
	case KindDevelopment:
		return "developments"
	case KindArea:
		return "areas"
	case KindBuilder:
		return "builders"
	}
	return string(k)
}

// Entity is one unit of generation work. Property-backed kinds carry Property;
// area and builder aggregates carry Group.
type Entity struct {
	Kind     EntityKind
	Slug     string
	Name     string
	Town     string
	Property *Property
	Group    *Group
}

// Group aggregates properties sharing a town (area) or developer (builder).
type Group struct {
	Name          string
	Towns         []string
	PropertyTypes []string
	Members       []Property
	MinPrice      float64
	MaxPrice      float64
}

// Towns returns every town the entity is located in.
func (e Entity) Towns() []string {
	if e.Group != nil && len(e.Group.Towns) > 0 {
		return e.Group.Towns
	}
	if e.Town != "" {
		return []string{e.Town}
	}
	return nil
}

// Price is the listing price, or the lowest member price for aggregates.
func (e Entity) Price() float64 {
	if e.Property != nil {
		return e.Property.Price
	}
	if e.Group != nil {
		return e.Group.MinPrice
	}
	return 0
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ImageAlt struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// GeneratedContent is the persisted result for one entity, keyed by Slug.
type GeneratedContent struct {
	Slug            string          `json:"slug"`
	Kind            EntityKind      `json:"kind"`
	Name            string          `json:"name"`
	Reference       string          `json:"reference,omitempty"`
	Town            string          `json:"town,omitempty"`
	Price           float64         `json:"price,omitempty"`
	MetaTitle       string          `json:"metaTitle"`
	MetaDescription string          `json:"metaDescription"`
	Sections        json.RawMessage `json:"sections"` // full model object, contract-checked
	FAQs            []FAQ           `json:"faqs"`
	ImageAlts       []ImageAlt      `json:"imageAlts,omitempty"`
	Schema          SchemaSet       `json:"schema"`
	Model           string          `json:"model,omitempty"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

// SchemaSet holds the structured-markup views derived for one entity.
// Objects are typed in the schema package; here they are opaque.
type SchemaSet struct {
	Product      any `json:"product,omitempty"`
	FAQPage      any `json:"faqPage,omitempty"`
	Breadcrumbs  any `json:"breadcrumbs,omitempty"`
	Organization any `json:"organization,omitempty"`
	Place        any `json:"place,omitempty"`
}

// ManifestEntry summarizes one generated entity for downstream consumers.
type ManifestEntry struct {
	Slug      string  `json:"slug"`
	Name      string  `json:"name"`
	MetaTitle string  `json:"metaTitle,omitempty"`
	Town      string  `json:"town,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// Completion is the text answer of the generative API plus its token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
