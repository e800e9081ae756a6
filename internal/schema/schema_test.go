package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costa_listings/internal/domain"
	"costa_listings/internal/schema"
	"costa_listings/internal/shared"
)

func villa() domain.Property {
	return domain.Property{
		Reference: "N7001", PropertyType: "Villa", Bedrooms: 3, Bathrooms: 2, BuiltArea: 120,
		Price: 289000, Currency: "EUR", Town: "Torrevieja", Province: "Alicante",
		Images:    []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg", "https://img/4.jpg"},
		Developer: "Miralbo Urbana", ProjectName: "Villa Luna", Slug: "villa-luna",
	}
}

func content() domain.GeneratedContent {
	return domain.GeneratedContent{
		MetaDescription: "Three bedroom villa in Torrevieja.",
		FAQs: []domain.FAQ{
			{Question: "Is there a pool?", Answer: "Yes, a private pool."},
			{Question: "How far is the beach?", Answer: "Ten minutes by car."},
		},
	}
}

func TestForEntity_Deterministic(t *testing.T) {
	c := shared.DefaultCampaign()
	p := villa()
	e := domain.Entity{Kind: domain.KindDevelopment, Slug: p.Slug, Name: p.ProjectName, Town: p.Town, Property: &p}

	a, err := json.Marshal(schema.ForEntity(c, e, content()))
	require.NoError(t, err)
	b, err := json.Marshal(schema.ForEntity(c, e, content()))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestNewProduct_Shape(t *testing.T) {
	c := shared.DefaultCampaign()
	p := villa()
	e := domain.Entity{Kind: domain.KindDevelopment, Slug: p.Slug, Name: p.ProjectName, Property: &p}

	prod := schema.NewProduct(c, e)
	require.NotNil(t, prod)
	assert.Equal(t, "https://schema.org/", prod.Context)
	assert.Len(t, prod.Image, 3)
	assert.Equal(t, "Miralbo Urbana", prod.Brand.Name)
	assert.Equal(t, "https://www.newbuildhomescostablanca.com/developments/villa-luna/", prod.Offers.URL)
	assert.Equal(t, "RealEstateAgent", prod.Offers.Seller.Type)
	assert.Equal(t, "New build villa in Torrevieja, Costa Blanca. 3 bedrooms, 2 bathrooms, 120 m² built size.", prod.Description)
}

func TestNewProduct_OmitsMissingOptionalFields(t *testing.T) {
	c := shared.DefaultCampaign()
	p := domain.Property{Reference: "R1", PropertyType: "Apartment", Price: 150000, Town: "Calpe"}
	e := domain.Entity{Kind: domain.KindProperty, Slug: "r1", Name: "Apartment R1", Property: &p}

	b, err := json.Marshal(schema.NewProduct(c, e))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "brand")
	assert.NotContains(t, m, "image")
	assert.Equal(t, "New build apartment in Calpe, Costa Blanca.", m["description"])
}

func TestForEntity_KindsAndEmptyFAQs(t *testing.T) {
	c := shared.DefaultCampaign()
	p := villa()
	area := domain.Entity{Kind: domain.KindArea, Slug: "torrevieja", Name: "Torrevieja", Town: "Torrevieja",
		Group: &domain.Group{Name: "Torrevieja", Towns: []string{"Torrevieja"}, Members: []domain.Property{p}}}

	set := schema.ForEntity(c, area, domain.GeneratedContent{})
	assert.Nil(t, set.Product)
	assert.Nil(t, set.FAQPage)
	assert.NotNil(t, set.Place)
	assert.NotNil(t, set.Breadcrumbs)

	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "faqPage")
	assert.NotContains(t, string(b), "null")

	builder := domain.Entity{Kind: domain.KindBuilder, Slug: "miralbo-urbana", Name: "Miralbo Urbana",
		Group: &domain.Group{Name: "Miralbo Urbana", Towns: []string{"Javea"}}}
	org := schema.ForEntity(c, builder, content()).Organization.(*schema.Organization)
	assert.Equal(t, "https://www.newbuildhomescostablanca.com/builders/miralbo-urbana/", org.URL)
	assert.Equal(t, "Javea", org.Address.AddressLocality)
}

func TestBreadcrumbs(t *testing.T) {
	c := shared.DefaultCampaign()
	bc := schema.Breadcrumbs(c, domain.Entity{Kind: domain.KindDevelopment, Slug: "villa-luna", Name: "Villa Luna"})
	require.Len(t, bc.ItemListElement, 3)
	assert.Equal(t, "https://www.newbuildhomescostablanca.com/", bc.ItemListElement[0].Item)
	assert.Equal(t, "Developments", bc.ItemListElement[1].Name)
	assert.Equal(t, 3, bc.ItemListElement[2].Position)
}

func TestRegionalValuesComeFromCampaign(t *testing.T) {
	c := shared.DefaultCampaign()
	c.Coast, c.Province, c.Currency = "Costa Calida", "Murcia", "gbp"
	p := domain.Property{Reference: "M1", PropertyType: "Villa", Price: 310000, Town: "Los Alcazares"}
	e := domain.Entity{Kind: domain.KindProperty, Slug: "m1", Name: "Villa M1", Property: &p}

	prod := schema.NewProduct(c, e)
	assert.Equal(t, "New build villa in Los Alcazares, Costa Calida.", prod.Description)
	assert.Equal(t, "GBP", prod.Offers.PriceCurrency)
	assert.Equal(t, "Murcia", prod.Address.AddressRegion)
	assert.Equal(t, "ES", prod.Address.AddressCountry)

	builder := domain.Entity{Kind: domain.KindBuilder, Slug: "b", Name: "B",
		Group: &domain.Group{Name: "B", Towns: []string{"Cartagena"}}}
	org := schema.ForEntity(c, builder, content()).Organization.(*schema.Organization)
	assert.Equal(t, "Murcia", org.Address.AddressRegion)

	// nothing configured: omitted rather than guessed
	c.Coast, c.Province = "", ""
	assert.Equal(t, "New build villa in Los Alcazares.", schema.NewProduct(c, e).Description)
	org = schema.ForEntity(c, builder, content()).Organization.(*schema.Organization)
	b, err := json.Marshal(org)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "addressRegion")
}
