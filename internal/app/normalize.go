package app

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"costa_listings/internal/domain"
)

// Routine skip reasons. A skipped record is not an error.
var (
	ErrMissingReference = errors.New("missing reference")
	ErrMissingTown      = errors.New("missing town")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrDuplicate        = errors.New("duplicate reference")
)

/********** alias registries (single source of truth) **********/

var propertyAliases = map[string][]string{
	"reference": {"reference", "ref", "id", "property_id", "propertyId"},
	"town":      {"town", "location.town", "city", "location", "address.city", "municipality"},
	"detail":    {"location_detail", "locationDetail", "location.zone", "zone", "urbanisation", "urbanization"},
	"province":  {"province", "location.province", "address.province"},
	"type":      {"type", "property_type", "propertyType", "type.en", "category"},
	"currency":  {"currency", "price.currency", "price.@currency"},
	"developer": {"developer", "developer.name", "builder", "promoter", "builder_name"},
	"project":   {"project_name", "projectName", "development_name", "development", "promotion"},
}

var numberAliases = map[string][]string{
	"price": {"price", "price.amount", "price_eur", "sale_price"},
	"beds":  {"beds", "bedrooms", "rooms"},
	"baths": {"baths", "bathrooms"},
	"built": {"surface_area.built", "built", "built_area", "builtArea", "size", "surface_area"},
	"plot":  {"surface_area.plot", "plot", "plot_area", "plotArea", "plot_size"},
	"lat":   {"latitude", "lat", "location.latitude", "location.lat"},
	"lng":   {"longitude", "lng", "lon", "location.longitude", "location.lng"},
}

var (
	imagePaths       = []string{"images", "photos", "gallery", "pictures"}
	featurePaths     = []string{"features", "amenities", "extras", "characteristics"}
	descriptionPaths = []string{"desc", "descriptions", "description"}
)

// flagRules: explicit provider keys first, then keywords in features or description.
var flagRules = map[string]struct {
	keys     []string
	keywords []string
}{
	"pool":     {[]string{"pool", "has_pool", "hasPool", "private_pool", "swimming_pool"}, []string{"pool", "piscina"}},
	"terrace":  {[]string{"terrace", "has_terrace", "hasTerrace"}, []string{"terrace", "terraza"}},
	"parking":  {[]string{"parking", "has_parking", "hasParking", "garage"}, []string{"parking", "garage", "garaje"}},
	"seaview":  {[]string{"sea_view", "seaview", "has_seaview", "hasSeaview", "views.sea"}, []string{"sea view", "seaview", "vista mar", "vistas al mar"}},
	"golfview": {[]string{"golf_view", "golfview", "has_golfview", "hasGolfview", "views.golf"}, []string{"golf view", "golf views", "vistas al golf", "frontline golf"}},
}

// typeMapping is ordered: more specific spellings come first.
var typeMapping = []struct{ key, value string }{
	{"semi-detached", "Semi-Detached"},
	{"semi detached", "Semi-Detached"},
	{"townhouse", "Townhouse"},
	{"town house", "Townhouse"},
	{"penthouse", "Penthouse"},
	{"bungalow", "Bungalow"},
	{"duplex", "Duplex"},
	{"apartment", "Apartment"},
	{"flat", "Apartment"},
	{"villa", "Villa"},
	{"detached", "Villa"},
	{"finca", "Country House"},
	{"country house", "Country House"},
}

var refMarker = regexp.MustCompile(`(?i)#\s*ref:?\s*\S+`)

// Skip is one raw record excluded during normalization.
type Skip struct {
	Reference string
	Source    string
	Err       error
}

type NormalizeResult struct {
	Properties []domain.Property
	Skipped    []Skip
}

// Normalizer maps provider records onto domain.Property.
type Normalizer struct {
	Namer           ProjectNamer
	DefaultProvince string
	DefaultCurrency string
}

func NewNormalizer(namer ProjectNamer) *Normalizer {
	if namer == nil {
		namer = DefaultProjectName
	}
	return &Normalizer{Namer: namer, DefaultProvince: "Alicante", DefaultCurrency: "EUR"}
}

// Normalize maps one record. The returned error is one of the skip reasons.
func (n *Normalizer) Normalize(rec domain.RawRecord) (domain.Property, error) {
	f := rec.Fields
	ref := firstNonEmptyAlias(f, propertyAliases, "reference")
	if ref == "" {
		return domain.Property{}, ErrMissingReference
	}
	town := firstNonEmptyAlias(f, propertyAliases, "town")
	if town == "" {
		return domain.Property{}, ErrMissingTown
	}
	price := getFloatFlexible(f, numberAliases["price"]...)
	if price <= 0 {
		return domain.Property{}, ErrInvalidPrice
	}

	p := domain.Property{
		Reference:      ref,
		Source:         rec.Source,
		PropertyType:   MapPropertyType(firstNonEmptyAlias(f, propertyAliases, "type")),
		Bedrooms:       int(getFloatFlexible(f, numberAliases["beds"]...)),
		Bathrooms:      int(getFloatFlexible(f, numberAliases["baths"]...)),
		Price:          price,
		Currency:       firstNonEmptyAlias(f, propertyAliases, "currency"),
		Town:           town,
		LocationDetail: firstNonEmptyAlias(f, propertyAliases, "detail"),
		Province:       firstNonEmptyAlias(f, propertyAliases, "province"),
		Lat:            getFloatFlexible(f, numberAliases["lat"]...),
		Lng:            getFloatFlexible(f, numberAliases["lng"]...),
		BuiltArea:      getFloatFlexible(f, numberAliases["built"]...),
		PlotArea:       getFloatFlexible(f, numberAliases["plot"]...),
		Features:       extractFeatures(f),
		Descriptions:   extractDescriptions(f),
		Images:         firstSliceStrings(f, imagePaths, "image", "photo", "url"),
		Developer:      firstNonEmptyAlias(f, propertyAliases, "developer"),
	}
	if p.Currency == "" {
		p.Currency = n.DefaultCurrency
	}
	if p.Province == "" {
		p.Province = n.DefaultProvince
	}

	haystack := strings.ToLower(strings.Join(p.Features, " | ") + " | " + p.Description("en"))
	flag := func(name string) bool {
		rule := flagRules[name]
		if anyTruthy(f, rule.keys...) {
			return true
		}
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return true
			}
		}
		return false
	}
	p.HasPool = flag("pool")
	p.HasTerrace = flag("terrace")
	p.HasParking = flag("parking")
	p.HasSeaview = flag("seaview")
	p.HasGolfview = flag("golfview")

	p.ProjectName = firstNonEmptyAlias(f, propertyAliases, "project")
	if p.ProjectName == "" {
		p.ProjectName = n.Namer(p.Description("en"), p.PropertyType, p.Reference)
	}
	return p, nil
}

// NormalizeAll maps every record, dropping invalid ones and later duplicates
// of a reference already seen. Slugs are assigned afterwards.
func (n *Normalizer) NormalizeAll(recs []domain.RawRecord) NormalizeResult {
	var res NormalizeResult
	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		p, err := n.Normalize(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{
				Reference: firstNonEmptyAlias(rec.Fields, propertyAliases, "reference"),
				Source:    rec.Source,
				Err:       err,
			})
			continue
		}
		key := strings.ToLower(p.Reference)
		if _, dup := seen[key]; dup {
			res.Skipped = append(res.Skipped, Skip{Reference: p.Reference, Source: rec.Source, Err: ErrDuplicate})
			continue
		}
		seen[key] = struct{}{}
		res.Properties = append(res.Properties, p)
	}
	AssignSlugs(res.Properties)
	return res
}

// MapPropertyType maps provider spellings onto the site's type labels.
// Unknown non-empty types are kept as given; empty becomes "Property".
func MapPropertyType(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "Property"
	}
	lower := strings.ToLower(t)
	for _, m := range typeMapping {
		if strings.Contains(lower, m.key) {
			return m.value
		}
	}
	return t
}

func extractFeatures(f map[string]any) []string {
	var raw []string
	for _, path := range featurePaths {
		v := lookupAny(f, path)
		if v == nil {
			continue
		}
		raw = featureTokens(v)
		if len(raw) > 0 {
			break
		}
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tok := strings.ToLower(r)
		tok = strings.NewReplacer("_", " ", "-", " ").Replace(tok)
		tok = strings.Join(strings.Fields(tok), " ")
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// featureTokens reads arrays of strings or {name} objects, Kyero
// {feature: [...]} wrappers, comma lists and boolean-keyed maps.
func featureTokens(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Split(t, ",")
	case []any:
		var out []string
		for _, it := range t {
			out = append(out, featureTokens(it)...)
		}
		return out
	case map[string]any:
		if inner, ok := t["feature"]; ok {
			return featureTokens(inner)
		}
		for _, k := range []string{"name", "title", "#text"} {
			if s := asText(t[k]); s != "" {
				return []string{s}
			}
		}
		var out []string
		for _, k := range sortedKeys(t) {
			if truthy(t[k]) {
				out = append(out, k)
			}
		}
		return out
	}
	return nil
}

func extractDescriptions(f map[string]any) map[string]string {
	out := map[string]string{}
	for _, path := range descriptionPaths {
		collectDescriptions(lookupAny(f, path), out)
		if len(out) > 0 {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectDescriptions(v any, out map[string]string) {
	switch t := v.(type) {
	case string:
		if s := CleanText(t); s != "" {
			out["en"] = s
		}
	case []any:
		for _, it := range t {
			collectDescriptions(it, out)
		}
	case map[string]any:
		// <desc language="en">...</desc>
		if lang, ok := t["@language"].(string); ok {
			if s := CleanText(asText(t["#text"])); s != "" {
				out[strings.ToLower(lang)] = s
			}
			return
		}
		for _, lang := range sortedKeys(t) {
			if strings.HasPrefix(lang, "@") || lang == "#text" {
				continue
			}
			if s := CleanText(asText(t[lang])); s != "" {
				out[normalizeLang(lang)] = s
			}
		}
	}
}

func normalizeLang(k string) string {
	switch strings.ToLower(k) {
	case "english":
		return "en"
	case "spanish", "espanol", "español":
		return "es"
	}
	return strings.ToLower(k)
}

// CleanText turns feed HTML into plain text: tags stripped, entities decoded,
// paragraph breaks kept and "#ref:" markers removed.
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	text := s
	if strings.ContainsRune(s, '<') {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("br").ReplaceWithHtml("\n")
			doc.Find("p, li, div, h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
				sel.AppendHtml("\n")
			})
			text = doc.Text()
		}
	} else {
		text = html.UnescapeString(s)
	}
	text = refMarker.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func (s Skip) String() string {
	return fmt.Sprintf("%s/%s: %v", s.Source, s.Reference, s.Err)
}
