package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"costa_listings/internal/app"
	"costa_listings/internal/domain"
	"costa_listings/internal/shared"
)

func TestClassifier_Region(t *testing.T) {
	c := app.NewClassifier(shared.DefaultCampaign())
	assert.Equal(t, "Costa Blanca South", c.Region("Torrevieja"))
	assert.Equal(t, "Costa Blanca South", c.Region("Orihuela Costa"))
	assert.Equal(t, "Costa Blanca North", c.Region("Jávea"))
	assert.Equal(t, "Costa Blanca North", c.Region(""))
}

func TestClassifier_Priority(t *testing.T) {
	c := app.NewClassifier(shared.DefaultCampaign())
	// term contains town and town contains term
	assert.True(t, c.IsPriority("Quesada"))
	assert.True(t, c.IsPriority("Torrevieja Centro"))
	assert.False(t, c.IsPriority("Murcia"))
	assert.False(t, c.IsPriority("   "))
}

func TestClassifier_Golf(t *testing.T) {
	c := app.NewClassifier(shared.DefaultCampaign())
	assert.True(t, c.IsGolf(domain.Property{Town: "Benidorm", HasGolfview: true}))
	assert.True(t, c.IsGolf(domain.Property{Town: "Orihuela", LocationDetail: "Las Colinas Golf"}))
	assert.True(t, c.IsGolf(domain.Property{Town: "Altea", Descriptions: map[string]string{"en": "Next to the Golf course"}}))
	assert.True(t, c.IsGolf(domain.Property{Town: "Altea", Features: []string{"golf views"}}))
	assert.False(t, c.IsGolf(domain.Property{Town: "Altea"}))
}

func TestClassify_Deterministic(t *testing.T) {
	c := app.NewClassifier(shared.DefaultCampaign())
	p := domain.Property{Town: "Villamartin"}
	a, b := c.Classify(p), c.Classify(p)
	assert.Equal(t, a, b)
	assert.True(t, a.IsGolf)
	assert.True(t, a.IsPriority)
	assert.Equal(t, "Costa Blanca South", a.Region)

	props := []domain.Property{{Town: "Calpe"}, {Town: "Guardamar del Segura"}}
	c.ClassifyAll(props)
	assert.Equal(t, "Costa Blanca North", props[0].Region)
	assert.True(t, props[0].IsPriority)
	assert.Equal(t, "Costa Blanca South", props[1].Region)
}

func TestMatchArea(t *testing.T) {
	term, ok := app.MatchArea("Ciudad Quesada", []string{"torrevieja", "quesada"})
	assert.True(t, ok)
	assert.Equal(t, "quesada", term)

	_, ok = app.MatchArea("", []string{"torrevieja"})
	assert.False(t, ok)
	_, ok = app.MatchArea("Alicante", []string{"", "elche"})
	assert.False(t, ok)
}
