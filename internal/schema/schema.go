// Package schema derives schema.org objects for generated content. Every
// function here is pure: the same entity and content always produce the same
// bytes once marshaled.
package schema

import (
	"strconv"
	"strings"

	"costa_listings/internal/domain"
	"costa_listings/internal/shared"
)

const (
	contextOrg   = "https://schema.org"
	contextSlash = "https://schema.org/"
	inStock      = "https://schema.org/InStock"
)

type Product struct {
	Context     string         `json:"@context"`
	Type        string         `json:"@type"`
	Name        string         `json:"name"`
	Image       []string       `json:"image,omitempty"`
	Description string         `json:"description,omitempty"`
	Brand       *Brand         `json:"brand,omitempty"`
	Offers      *Offer         `json:"offers,omitempty"`
	Address     *PostalAddress `json:"address,omitempty"`
}

type Brand struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

type Offer struct {
	Type          string  `json:"@type"`
	URL           string  `json:"url"`
	PriceCurrency string  `json:"priceCurrency"`
	Price         float64 `json:"price,omitempty"`
	Availability  string  `json:"availability"`
	Seller        *Seller `json:"seller,omitempty"`
}

type Seller struct {
	Type      string `json:"@type"`
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	Telephone string `json:"telephone,omitempty"`
}

type PostalAddress struct {
	Type            string `json:"@type"`
	AddressLocality string `json:"addressLocality,omitempty"`
	AddressRegion   string `json:"addressRegion,omitempty"`
	AddressCountry  string `json:"addressCountry"`
}

type FAQPage struct {
	Context    string     `json:"@context"`
	Type       string     `json:"@type"`
	MainEntity []Question `json:"mainEntity"`
}

type Question struct {
	Type           string `json:"@type"`
	Name           string `json:"name"`
	AcceptedAnswer Answer `json:"acceptedAnswer"`
}

type Answer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type BreadcrumbList struct {
	Context         string     `json:"@context"`
	Type            string     `json:"@type"`
	ItemListElement []ListItem `json:"itemListElement"`
}

type ListItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item"`
}

type Organization struct {
	Context     string         `json:"@context"`
	Type        string         `json:"@type"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description,omitempty"`
	Address     *PostalAddress `json:"address,omitempty"`
}

type Place struct {
	Context     string          `json:"@context"`
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Address     *PostalAddress  `json:"address,omitempty"`
	Geo         *GeoCoordinates `json:"geo,omitempty"`
}

type GeoCoordinates struct {
	Type      string  `json:"@type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var sectionNames = map[domain.EntityKind]string{
	domain.KindProperty:    "Properties",
	domain.KindDevelopment: "Developments",
	domain.KindArea:        "Areas",
	domain.KindBuilder:     "Builders",
}

// PageURL is the canonical page of an entity on the site.
func PageURL(c shared.Campaign, kind domain.EntityKind, slug string) string {
	return c.URL(kind.Dir() + "/" + slug + "/")
}

// ForEntity returns the objects that apply to e's kind. Objects that do not
// apply stay nil so they are omitted from the content file.
func ForEntity(c shared.Campaign, e domain.Entity, content domain.GeneratedContent) domain.SchemaSet {
	var set domain.SchemaSet
	if fp := NewFAQPage(content.FAQs); fp != nil {
		set.FAQPage = fp
	}
	set.Breadcrumbs = Breadcrumbs(c, e)
	switch e.Kind {
	case domain.KindProperty, domain.KindDevelopment:
		if p := NewProduct(c, e); p != nil {
			set.Product = p
		}
	case domain.KindArea:
		set.Place = NewPlace(c, e, content)
	case domain.KindBuilder:
		set.Organization = NewOrganization(c, e, content)
	}
	return set
}

// NewProduct describes a listing. Nil when e carries no property.
func NewProduct(c shared.Campaign, e domain.Entity) *Product {
	p := e.Property
	if p == nil {
		return nil
	}
	out := &Product{
		Context:     contextSlash,
		Type:        "Product",
		Name:        e.Name,
		Description: productDescription(c, *p),
		Offers: &Offer{
			Type:          "Offer",
			URL:           PageURL(c, e.Kind, e.Slug),
			PriceCurrency: currency(c, p.Currency),
			Price:         p.Price,
			Availability:  inStock,
			Seller: &Seller{
				Type:      "RealEstateAgent",
				Name:      c.Company.Name,
				URL:       c.URL(""),
				Telephone: c.Company.Phone,
			},
		},
		Address: address(c, p.Town, firstNonEmpty(p.Province, c.Province)),
	}
	if len(p.Images) > 0 {
		out.Image = append([]string(nil), p.Images[:min(3, len(p.Images))]...)
	}
	if p.Developer != "" {
		out.Brand = &Brand{Type: "Brand", Name: p.Developer}
	}
	return out
}

func productDescription(c shared.Campaign, p domain.Property) string {
	where := p.Town
	if c.Coast != "" {
		where += ", " + c.Coast
	}
	parts := []string{"New build " + strings.ToLower(p.PropertyType) + " in " + where + "."}
	var specs []string
	if p.Bedrooms > 0 {
		specs = append(specs, strconv.Itoa(p.Bedrooms)+" bedrooms")
	}
	if p.Bathrooms > 0 {
		specs = append(specs, strconv.Itoa(p.Bathrooms)+" bathrooms")
	}
	if p.BuiltArea > 0 {
		specs = append(specs, strconv.FormatFloat(p.BuiltArea, 'f', -1, 64)+" m² built size")
	}
	if len(specs) > 0 {
		parts = append(parts, strings.Join(specs, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// NewFAQPage is nil for an empty list.
func NewFAQPage(faqs []domain.FAQ) *FAQPage {
	if len(faqs) == 0 {
		return nil
	}
	out := &FAQPage{Context: contextOrg, Type: "FAQPage", MainEntity: make([]Question, 0, len(faqs))}
	for _, f := range faqs {
		out.MainEntity = append(out.MainEntity, Question{
			Type:           "Question",
			Name:           f.Question,
			AcceptedAnswer: Answer{Type: "Answer", Text: f.Answer},
		})
	}
	return out
}

// Breadcrumbs is Home / section / entity.
func Breadcrumbs(c shared.Campaign, e domain.Entity) *BreadcrumbList {
	section := sectionNames[e.Kind]
	return &BreadcrumbList{
		Context: contextOrg,
		Type:    "BreadcrumbList",
		ItemListElement: []ListItem{
			{Type: "ListItem", Position: 1, Name: "Home", Item: c.URL("")},
			{Type: "ListItem", Position: 2, Name: section, Item: c.URL(e.Kind.Dir() + "/")},
			{Type: "ListItem", Position: 3, Name: e.Name, Item: PageURL(c, e.Kind, e.Slug)},
		},
	}
}

// NewOrganization describes a builder.
func NewOrganization(c shared.Campaign, e domain.Entity, content domain.GeneratedContent) *Organization {
	out := &Organization{
		Context:     contextOrg,
		Type:        "Organization",
		Name:        e.Name,
		URL:         PageURL(c, e.Kind, e.Slug),
		Description: content.MetaDescription,
	}
	if towns := e.Towns(); len(towns) > 0 {
		out.Address = address(c, towns[0], groupProvince(c, e))
	}
	return out
}

// NewPlace describes an area guide.
func NewPlace(c shared.Campaign, e domain.Entity, content domain.GeneratedContent) *Place {
	out := &Place{
		Context:     contextOrg,
		Type:        "Place",
		Name:        e.Name,
		Description: content.MetaDescription,
		Address:     address(c, e.Name, groupProvince(c, e)),
	}
	if g := e.Group; g != nil {
		if lat, lng, ok := centroid(g.Members); ok {
			out.Geo = &GeoCoordinates{Type: "GeoCoordinates", Latitude: lat, Longitude: lng}
		}
	}
	return out
}

// groupProvince is the first member province, else the campaign's.
func groupProvince(c shared.Campaign, e domain.Entity) string {
	if e.Group != nil {
		for _, m := range e.Group.Members {
			if m.Province != "" {
				return m.Province
			}
		}
	}
	return c.Province
}

// centroid averages member coordinates that are set, rounded to 5 decimals.
func centroid(members []domain.Property) (float64, float64, bool) {
	var lat, lng float64
	n := 0
	for _, m := range members {
		if m.Lat == 0 && m.Lng == 0 {
			continue
		}
		lat += m.Lat
		lng += m.Lng
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return round5(lat / float64(n)), round5(lng / float64(n)), true
}

func round5(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 5, 64), 64)
	return v
}

func address(c shared.Campaign, locality, region string) *PostalAddress {
	if locality == "" && region == "" {
		return nil
	}
	return &PostalAddress{Type: "PostalAddress", AddressLocality: locality, AddressRegion: region, AddressCountry: c.Country}
}

func currency(c shared.Campaign, code string) string {
	return strings.ToUpper(firstNonEmpty(code, c.Currency))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
