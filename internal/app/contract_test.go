package app_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costa_listings/internal/app"
	"costa_listings/internal/domain"
)

func answerMap(t *testing.T, kind domain.EntityKind, faqs int) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(validAnswer(kind, faqs)), &m))
	return m
}

func marshal(t *testing.T, m map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestValidate_AllKindsAccepted(t *testing.T) {
	for _, k := range domain.AllKinds {
		_, err := app.Validate(k, json.RawMessage(validAnswer(k, 6)))
		assert.NoErrorf(t, err, "kind %s", k)
	}
}

func TestValidate_MissingKeys(t *testing.T) {
	m := answerMap(t, domain.KindArea, 6)
	delete(m, "lifestyleSection")
	m["conclusion"] = "   "
	_, err := app.Validate(domain.KindArea, marshal(t, m))
	require.Error(t, err)
	assert.True(t, errors.Is(err, app.ErrContract))
	assert.Contains(t, err.Error(), "lifestyleSection")
	assert.Contains(t, err.Error(), "conclusion")
}

func TestValidate_FAQBounds(t *testing.T) {
	// property needs 5..10
	_, err := app.Validate(domain.KindProperty, json.RawMessage(validAnswer(domain.KindProperty, 4)))
	assert.True(t, errors.Is(err, app.ErrContract))

	v, err := app.Validate(domain.KindProperty, json.RawMessage(validAnswer(domain.KindProperty, 14)))
	require.NoError(t, err)
	assert.Len(t, v.FAQs, 10)
	assert.Equal(t, "Question 1?", v.FAQs[0].Question)

	m := answerMap(t, domain.KindBuilder, 4)
	faqs := m["faqs"].([]any)
	faqs[0].(map[string]any)["answer"] = ""
	_, err = app.Validate(domain.KindBuilder, marshal(t, m))
	assert.True(t, errors.Is(err, app.ErrContract), "blank answers do not count")
}

func TestValidate_NotAnObject(t *testing.T) {
	_, err := app.Validate(domain.KindProperty, json.RawMessage(`[1,2]`))
	assert.True(t, errors.Is(err, app.ErrContract))
	_, err = app.Validate("villa", json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, app.ErrContract))

	m := answerMap(t, domain.KindProperty, 5)
	m["metaTitle"] = map[string]any{"text": "x"}
	_, err = app.Validate(domain.KindProperty, marshal(t, m))
	assert.True(t, errors.Is(err, app.ErrContract))
}

func TestValidate_TrimsAndLiftsFields(t *testing.T) {
	m := answerMap(t, domain.KindDevelopment, 12)
	m["metaTitle"] = "Luxury new build villas with private pools and sea views in Orihuela Costa"
	m["metaDescription"] = strings.Repeat("sunny terrace ", 20)
	raw := marshal(t, m)

	got, err := app.Validate(domain.KindDevelopment, raw)
	require.NoError(t, err)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.MetaTitle), 60)
	assert.False(t, strings.HasSuffix(got.MetaTitle, " "))
	assert.Equal(t, "Luxury new build villas with private pools and sea views in", got.MetaTitle)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.MetaDescription), 160)
	assert.Len(t, got.FAQs, 12)

	var sections map[string]any
	require.NoError(t, json.Unmarshal(got.Sections, &sections))
	assert.Contains(t, sections, "heroIntro")
	assert.Contains(t, sections, "investmentSection")
	for _, k := range []string{"metaTitle", "metaDescription", "faqs", "imageAlts"} {
		assert.NotContains(t, sections, k)
	}
}

func TestTrimToWord(t *testing.T) {
	assert.Equal(t, "short", app.TrimToWord("  short ", 60))
	assert.Equal(t, "alpha beta", app.TrimToWord("alpha beta gamma", 12))
	assert.Equal(t, "abcdefghij", app.TrimToWord("abcdefghijklmnop", 10))
	assert.Equal(t, "Málaga ñandú", app.TrimToWord("Málaga ñandú çedilla", 14))
}
