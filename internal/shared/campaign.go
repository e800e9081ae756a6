package shared

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Campaign validation errors.
var (
	ErrMissingSiteURL     = errors.New("campaign.site_url is required")
	ErrMissingCompanyName = errors.New("campaign.company.name is required")
	ErrMissingSouthTowns  = errors.New("campaign.south_towns must not be empty")
	ErrMissingRegionLabel = errors.New("campaign.regions.south and campaign.regions.north are required")
)

// Campaign carries the site, contact and allowlist data injected into the
// synthesizer, the classifier and the schema builder.
type Campaign struct {
	SiteURL       string        `yaml:"site_url"`
	Company       Company       `yaml:"company"`
	Regions       RegionLabels  `yaml:"regions"`
	Coast         string        `yaml:"coast"`    // marketing name of the coastline, e.g. "Costa Blanca"
	Province      string        `yaml:"province"` // used when a listing carries none
	Country       string        `yaml:"country"`  // ISO 3166-1 alpha-2
	Currency      string        `yaml:"currency"` // ISO 4217, used when a listing carries none
	SouthTowns    []string      `yaml:"south_towns"`
	GolfAreas     []string      `yaml:"golf_areas"`
	PriorityAreas []string      `yaml:"priority_areas"`
	PriorityOnly  bool          `yaml:"priority_only"`
	Feeds         FeedEndpoints `yaml:"feeds"`
}

type Company struct {
	Name        string `yaml:"name"`
	Parent      string `yaml:"parent"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	WhatsApp    string `yaml:"whatsapp"`
	MortgageURL string `yaml:"mortgage_url"`
}

type RegionLabels struct {
	South string `yaml:"south"`
	North string `yaml:"north"`
}

type FeedEndpoints struct {
	JSON    string `yaml:"json"`
	XML     string `yaml:"xml"`
	SiteAPI string `yaml:"site_api"`
}

// DefaultCampaign is used when no campaign file is configured.
func DefaultCampaign() Campaign {
	return Campaign{
		SiteURL: "https://www.newbuildhomescostablanca.com",
		Company: Company{
			Name:        "New Build Homes Costa Blanca",
			Parent:      "Hansson & Hertzell",
			Phone:       "+34 634 044 970",
			Email:       "info@newbuildhomescostablanca.com",
			WhatsApp:    "https://api.whatsapp.com/message/TISVZ2WXY7ERN1?autoload=1&app_absent=0",
			MortgageURL: "https://habeno.com/form?hypido=1&partnerId=9f927d6f-7293-4f06-0de0-08dabb4ac15e",
		},
		Regions: RegionLabels{South: "Costa Blanca South", North: "Costa Blanca North"},
		Coast:    "Costa Blanca",
		Province: "Alicante",
		Country:  "ES",
		Currency: "EUR",
		SouthTowns: []string{
			"torrevieja", "orihuela", "villamartin", "guardamar", "algorfa",
			"rojales", "quesada", "pilar", "san miguel", "los dolses",
			"playa flamenca", "la zenia", "cabo roig", "campoamor",
		},
		GolfAreas: []string{
			"villamartin", "las ramblas", "campoamor", "las colinas", "la finca",
			"la marquesa", "vistabella", "lo romero", "la torre golf", "hacienda del alamo",
			"roda golf", "mar menor golf", "altorreal", "mosa trajectum", "el valle",
			"algorfa", "quesada", "ciudad quesada", "don cayo", "javea golf",
			"ifach golf", "oliva nova", "el saler", "alicante golf", "bonalba",
			"villaitana", "puig campana", "alenda golf",
		},
		PriorityAreas: []string{
			"torrevieja", "orihuela costa", "villamartin", "los dolses", "guardamar",
			"algorfa", "san miguel de salinas", "ciudad quesada", "rojales",
			"pilar de la horadada", "la zenia", "playa flamenca", "cabo roig",
			"javea", "moraira", "calpe", "altea", "denia", "benidorm", "finestrat",
			"benitachell", "albir", "alfas del pi",
		},
		Feeds: FeedEndpoints{
			JSON:    "https://backgroundproperties.com/wp-load.php?security_token=23f0185aeb5102e7&export_id=19&action=get_data",
			XML:     "https://xml.redsp.net/file/450/23a140q0551/general-zone-1-kyero.xml",
			SiteAPI: "https://www.newbuildhomescostablanca.com/api/properties",
		},
	}
}

// LoadCampaign reads a YAML campaign file on top of the defaults.
// An empty path returns the defaults.
func LoadCampaign(path string) (Campaign, error) {
	c := DefaultCampaign()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Campaign{}, fmt.Errorf("failed to read campaign file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Campaign{}, fmt.Errorf("failed to parse campaign YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Campaign{}, fmt.Errorf("campaign validation failed: %w", err)
	}
	return c, nil
}

func (c Campaign) Validate() error {
	if strings.TrimSpace(c.SiteURL) == "" {
		return ErrMissingSiteURL
	}
	if strings.TrimSpace(c.Company.Name) == "" {
		return ErrMissingCompanyName
	}
	if len(c.SouthTowns) == 0 {
		return ErrMissingSouthTowns
	}
	if c.Regions.South == "" || c.Regions.North == "" {
		return ErrMissingRegionLabel
	}
	return nil
}

// URL joins a site-relative path onto SiteURL.
func (c Campaign) URL(path string) string {
	return strings.TrimRight(c.SiteURL, "/") + "/" + strings.TrimLeft(path, "/")
}
