package domain

// RawRecord is one listing as scraped by a feed adapter, before normalization.
// Fields keeps provider key spellings; nested layouts stay as nested maps/slices.
type RawRecord struct {
	Source string
	Fields map[string]any
}

type Property struct {
	Reference      string            `json:"reference"`
	Source         string            `json:"source,omitempty"`
	PropertyType   string            `json:"propertyType"`
	Bedrooms       int               `json:"bedrooms"`
	Bathrooms      int               `json:"bathrooms"`
	Price          float64           `json:"price"`
	Currency       string            `json:"currency"`
	Town           string            `json:"town"`
	LocationDetail string            `json:"locationDetail,omitempty"`
	Province       string            `json:"province,omitempty"`
	Region         string            `json:"region,omitempty"` // derived
	Lat            float64           `json:"latitude,omitempty"`
	Lng            float64           `json:"longitude,omitempty"`
	BuiltArea      float64           `json:"builtArea,omitempty"`
	PlotArea       float64           `json:"plotArea,omitempty"`
	Features       []string          `json:"features,omitempty"` // lowercase tokens
	HasPool        bool              `json:"hasPool"`
	HasTerrace     bool              `json:"hasTerrace"`
	HasParking     bool              `json:"hasParking"`
	HasSeaview     bool              `json:"hasSeaview"`
	HasGolfview    bool              `json:"hasGolfview"`
	IsGolf         bool              `json:"isGolfProperty"` // derived
	IsPriority     bool              `json:"isPriorityArea"` // derived
	Descriptions   map[string]string `json:"descriptions,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Developer      string            `json:"developer,omitempty"`
	ProjectName    string            `json:"projectName"`
	Slug           string            `json:"slug"` // derived, unique per batch
}

// Description returns the text for lang, falling back to English and then any language.
func (p Property) Description(lang string) string {
	if d := p.Descriptions[lang]; d != "" {
		return d
	}
	if d := p.Descriptions["en"]; d != "" {
		return d
	}
	for _, d := range p.Descriptions {
		if d != "" {
			return d
		}
	}
	return ""
}

// FetchStats counts what an adapter saw while decoding one payload.
type FetchStats struct {
	Entries   int // entries found in the payload
	Malformed int // entries skipped because they could not be decoded
}
