package app

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"costa_listings/internal/domain"
	"costa_listings/internal/shared"
)

// promptData is everything a prompt template may reference.
type promptData struct {
	Kind        domain.EntityKind
	Name        string
	Property    *domain.Property
	Group       *domain.Group
	Region      string
	Golf        bool
	Description string
	Campaign    shared.Campaign
	Contract    contract
}

var promptFuncs = template.FuncMap{
	"join":  strings.Join,
	"euro":  FormatEuro,
	"lower": strings.ToLower,
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
	"orNA": func(v float64, unit string) string {
		if v <= 0 {
			return "Not specified"
		}
		return strconv.FormatFloat(v, 'f', -1, 64) + unit
	},
}

const contactBlock = `
CONTACT INFO TO USE:
- Company: {{.Campaign.Company.Name}}
- WhatsApp: {{.Campaign.Company.WhatsApp}}
- Phone: {{.Campaign.Company.Phone}}
- Email: {{.Campaign.Company.Email}}
- Mortgage link: {{.Campaign.Company.MortgageURL}}
`

const faqRule = `Generate between {{.Contract.FAQMin}} and {{.Contract.FAQMax}} FAQs.
Respond ONLY with one valid JSON object, no commentary.`

var propertyPrompt = `You are an expert real estate SEO copywriter specializing in Spanish {{.Campaign.Coast}} properties. Generate comprehensive, unique, SEO-optimized content for this property listing.

PROPERTY DATA:
{{- with .Property}}
- Reference: {{.Reference}}
- Type: {{.PropertyType}}
- Bedrooms: {{.Bedrooms}}
- Bathrooms: {{.Bathrooms}}
- Built Area: {{orNA .BuiltArea " m2"}}
- Plot Area: {{orNA .PlotArea " m2"}}
- Price: {{euro .Price}}
- Location: {{if .LocationDetail}}{{.LocationDetail}}, {{end}}{{.Town}}
{{- end}}
- Region: {{.Region}}
- Features: {{if .Property.Features}}{{join .Property.Features ", "}}{{else}}Standard features{{end}}
- Has Pool: {{yesno .Property.HasPool}}
- Has Sea View: {{yesno .Property.HasSeaview}}
- Has Terrace: {{yesno .Property.HasTerrace}}
- Golf Property: {{if .Golf}}Yes - near golf courses{{else}}No{{end}}
- Original Description: {{if .Description}}{{.Description}}{{else}}No description available{{end}}
- Number of images: {{len .Property.Images}}
` + contactBlock + `
Generate the following JSON:
{
  "metaTitle": "SEO title under 60 chars including location and property type",
  "metaDescription": "Compelling meta description 150-160 chars with call-to-action",
  "h1Title": "Unique, keyword-rich H1 title",
  "heroIntro": "Engaging introduction to the property (150-200 words)",
  "propertyDescription": "Detailed description of features, layout and quality (250-350 words)",
  "locationSection": {"title": "...", "content": "About {{.Property.Town}} (200-300 words)", "highlights": ["6 nearby amenities"]},
  "featuresSection": {"intro": "...", "highlights": ["8-10 features as benefit statements"]},
  "faqs": [{"question": "...", "answer": "..."}],
  "imageAlts": ["one search-query style alt per image, each including {{.Property.Town}} and Spain or {{.Campaign.Coast}}"],
  "whyBuyReasons": ["8 reasons to buy this specific property"]
}

` + faqRule

var developmentPrompt = `You are an expert real estate copywriter specializing in {{.Campaign.Coast}} new build properties. Generate comprehensive, SEO-optimized content for a development page.

PROPERTY DATA:
- Project Name: {{.Name}}
{{- with .Property}}
- Property Type: {{.PropertyType}}
- Location: {{if .LocationDetail}}{{.LocationDetail}}, {{end}}{{.Town}}, {{.Province}}
- Price: {{euro .Price}}
- Bedrooms: {{.Bedrooms}}
- Bathrooms: {{.Bathrooms}}
- Built Size: {{orNA .BuiltArea " m2"}}
- Plot Size: {{orNA .PlotArea " m2"}}
- Developer: {{if .Developer}}{{.Developer}}{{else}}Not specified{{end}}
- Reference: {{.Reference}}
{{- end}}

ORIGINAL DESCRIPTION FROM DEVELOPER:
{{.Description}}
` + contactBlock + `
Generate the following JSON:
{
  "metaTitle": "55-60 character SEO title",
  "metaDescription": "150-160 character meta description",
  "heroIntro": "2-3 paragraphs introducing the property",
  "locationSection": {"intro": "Why {{.Property.Town}} is special", "highlights": ["5 location highlights"]},
  "propertyFeatures": {"intro": "...", "features": ["8-10 key features"]},
  "investmentSection": "2 paragraphs about investment potential and rental yields in {{.Property.Town}}",
  "whyBuySection": ["5-7 reasons to buy"],
  "faqs": [{"question": "...", "answer": "2-3 sentences"}],
  "conclusion": "1 paragraph with a call to action"
}

` + faqRule

var areaPrompt = `You are an expert {{.Campaign.Coast}} real estate writer. Generate a comprehensive area guide for property buyers.

AREA DATA:
- Area: {{.Name}}, {{.Campaign.Coast}}, Spain
- Region: {{.Region}}
- Number of New Build Properties: {{len .Group.Members}}
- Property Types Available: {{join .Group.PropertyTypes ", "}}
- Price Range: {{euro .Group.MinPrice}} - {{euro .Group.MaxPrice}}

CURRENT DEVELOPMENTS IN AREA:
{{- range .Group.Members}}
- {{.ProjectName}}: {{.PropertyType}}, {{.Bedrooms}} bed
{{- end}}
` + contactBlock + `
Generate the following JSON:
{
  "metaTitle": "55-60 character SEO title for the area guide",
  "metaDescription": "150-160 character meta description",
  "heroIntro": "2-3 paragraphs introducing {{.Name}}",
  "lifestyleSection": {"intro": "...", "highlights": ["6-8 lifestyle highlights"]},
  "amenitiesSection": {"beaches": "...", "dining": "...", "shopping": "...", "healthcare": "...", "transport": "..."},
  "propertyMarketSection": "2 paragraphs about prices and trends",
  "whyLiveHereSection": ["6-8 reasons to live in {{.Name}}"],
  "faqs": [{"question": "...", "answer": "..."}],
  "conclusion": "1 paragraph encouraging buyers to explore properties"
}

Be specific about {{.Name}}: mention actual beaches, landmarks and distances.
` + faqRule

var builderPrompt = `You are an expert real estate copywriter. Generate a builder profile page for a Spanish property developer.

BUILDER DATA:
- Name: {{.Name}}
- Location: {{join .Group.Towns ", "}}, {{.Campaign.Coast}}, Spain
- Property Types: {{join .Group.PropertyTypes ", "}}
- Number of Current Projects: {{len .Group.Members}}
- Price Range: {{euro .Group.MinPrice}} - {{euro .Group.MaxPrice}}

PROJECT LIST:
{{- range .Group.Members}}
- {{.ProjectName}}: {{.PropertyType}} in {{.Town}}, {{.Bedrooms}} bed, {{euro .Price}}
{{- end}}
` + contactBlock + `
Generate the following JSON:
{
  "metaTitle": "55-60 character SEO title for the builder page",
  "metaDescription": "150-160 character meta description",
  "heroIntro": "2 paragraphs introducing the builder",
  "aboutSection": "2-3 paragraphs about the company and its quality standards",
  "qualitySection": {"intro": "...", "standards": ["5-6 quality standards"]},
  "whyChooseSection": ["5-6 reasons to choose this builder"],
  "faqs": [{"question": "...", "answer": "..."}],
  "conclusion": "1 paragraph with a call to action"
}

` + faqRule

var promptTemplates = map[domain.EntityKind]*template.Template{
	domain.KindProperty:    template.Must(template.New("property").Funcs(promptFuncs).Parse(propertyPrompt)),
	domain.KindDevelopment: template.Must(template.New("development").Funcs(promptFuncs).Parse(developmentPrompt)),
	domain.KindArea:        template.Must(template.New("area").Funcs(promptFuncs).Parse(areaPrompt)),
	domain.KindBuilder:     template.Must(template.New("builder").Funcs(promptFuncs).Parse(builderPrompt)),
}

// maxDescriptionRunes bounds the feed text pasted into a prompt.
const maxDescriptionRunes = 1500

// BuildPrompt renders the fixed template for e.Kind. Output depends only on
// the entity, the classifier and the campaign.
func BuildPrompt(e domain.Entity, cls *Classifier, c shared.Campaign) (string, error) {
	tpl, ok := promptTemplates[e.Kind]
	if !ok {
		return "", fmt.Errorf("no prompt template for kind %q", e.Kind)
	}
	con := contracts[e.Kind]
	data := promptData{Kind: e.Kind, Name: e.Name, Property: e.Property, Group: e.Group, Campaign: c, Contract: con}

	switch {
	case e.Property != nil:
		data.Region = e.Property.Region
		if data.Region == "" {
			data.Region = cls.Region(e.Property.Town)
		}
		data.Golf = e.Property.IsGolf || cls.IsGolf(*e.Property)
		data.Description = truncateRunes(e.Property.Description("en"), maxDescriptionRunes)
	case e.Group != nil:
		data.Region = cls.Region(e.Town)
	default:
		return "", fmt.Errorf("entity %s/%s has no data", e.Kind, e.Slug)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", e.Kind, err)
	}
	return buf.String(), nil
}

// FormatEuro renders 289000 as "€289,000"; zero means price on request.
func FormatEuro(v float64) string {
	if v <= 0 {
		return "Price on request"
	}
	s := strconv.FormatInt(int64(math.Round(v)), 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "€" + b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
