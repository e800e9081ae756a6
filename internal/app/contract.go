package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"costa_listings/internal/domain"
)

var ErrContract = errors.New("response violates content contract")

const (
	maxMetaTitle       = 60
	maxMetaDescription = 160
)

type contract struct {
	Required  []string
	FAQMin    int
	FAQMax    int
	MaxTokens int
}

var contracts = map[domain.EntityKind]contract{
	domain.KindProperty: {
		Required: []string{"metaTitle", "metaDescription", "h1Title", "heroIntro", "propertyDescription",
			"locationSection", "featuresSection", "faqs", "imageAlts", "whyBuyReasons"},
		FAQMin: 5, FAQMax: 10, MaxTokens: 4000,
	},
	domain.KindDevelopment: {
		Required: []string{"metaTitle", "metaDescription", "heroIntro", "locationSection", "propertyFeatures",
			"investmentSection", "whyBuySection", "faqs", "conclusion"},
		FAQMin: 6, FAQMax: 12, MaxTokens: 4000,
	},
	domain.KindArea: {
		Required: []string{"metaTitle", "metaDescription", "heroIntro", "lifestyleSection", "amenitiesSection",
			"propertyMarketSection", "whyLiveHereSection", "faqs", "conclusion"},
		FAQMin: 6, FAQMax: 12, MaxTokens: 4000,
	},
	domain.KindBuilder: {
		Required: []string{"metaTitle", "metaDescription", "heroIntro", "aboutSection", "qualitySection",
			"whyChooseSection", "faqs", "conclusion"},
		FAQMin: 4, FAQMax: 10, MaxTokens: 3000,
	},
}

// validated is a contract-checked model answer.
type validated struct {
	MetaTitle       string
	MetaDescription string
	FAQs            []domain.FAQ
	ImageAlts       []string
	Sections        json.RawMessage
}

// lifted keys live on GeneratedContent itself rather than in Sections.
var lifted = map[string]bool{"metaTitle": true, "metaDescription": true, "faqs": true, "imageAlts": true}

// Validate checks raw against the contract of kind: every required key present
// and non-empty, meta fields are strings, FAQ count within bounds. Long meta
// fields and surplus FAQs are trimmed rather than rejected.
func Validate(kind domain.EntityKind, raw json.RawMessage) (validated, error) {
	con, ok := contracts[kind]
	if !ok {
		return validated{}, fmt.Errorf("%w: unknown kind %q", ErrContract, kind)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return validated{}, fmt.Errorf("%w: top level is not an object", ErrContract)
	}

	var missing []string
	for _, k := range con.Required {
		if isBlank(obj[k]) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return validated{}, fmt.Errorf("%w: missing %s", ErrContract, strings.Join(missing, ", "))
	}

	var v validated
	if err := json.Unmarshal(obj["metaTitle"], &v.MetaTitle); err != nil {
		return validated{}, fmt.Errorf("%w: metaTitle must be a string", ErrContract)
	}
	if err := json.Unmarshal(obj["metaDescription"], &v.MetaDescription); err != nil {
		return validated{}, fmt.Errorf("%w: metaDescription must be a string", ErrContract)
	}
	v.MetaTitle = TrimToWord(v.MetaTitle, maxMetaTitle)
	v.MetaDescription = TrimToWord(v.MetaDescription, maxMetaDescription)

	var faqs []domain.FAQ
	if err := json.Unmarshal(obj["faqs"], &faqs); err != nil {
		return validated{}, fmt.Errorf("%w: faqs must be a list of question/answer objects", ErrContract)
	}
	for _, f := range faqs {
		f.Question, f.Answer = strings.TrimSpace(f.Question), strings.TrimSpace(f.Answer)
		if f.Question != "" && f.Answer != "" {
			v.FAQs = append(v.FAQs, f)
		}
	}
	if len(v.FAQs) < con.FAQMin {
		return validated{}, fmt.Errorf("%w: %d usable faqs, need at least %d", ErrContract, len(v.FAQs), con.FAQMin)
	}
	if len(v.FAQs) > con.FAQMax {
		v.FAQs = v.FAQs[:con.FAQMax]
	}

	if alts, ok := obj["imageAlts"]; ok {
		v.ImageAlts = decodeAlts(alts)
	}

	sections := make(map[string]json.RawMessage, len(obj))
	for k, val := range obj {
		if !lifted[k] {
			sections[k] = val
		}
	}
	b, err := json.Marshal(sections)
	if err != nil {
		return validated{}, err
	}
	v.Sections = b
	return v, nil
}

// decodeAlts accepts ["alt", ...] or [{"alt": "..."}, ...]; anything else yields nil.
func decodeAlts(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if json.Unmarshal(it, &s) == nil {
			out = append(out, strings.TrimSpace(s))
			continue
		}
		var obj struct {
			Alt string `json:"alt"`
		}
		if json.Unmarshal(it, &obj) == nil {
			out = append(out, strings.TrimSpace(obj.Alt))
			continue
		}
		out = append(out, "")
	}
	return out
}

func isBlank(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	switch string(t) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	if t[0] == '"' {
		var s string
		return json.Unmarshal(t, &s) == nil && strings.TrimSpace(s) == ""
	}
	return false
}

// TrimToWord shortens s to at most n runes, cutting at the last space when
// one exists in the second half.
func TrimToWord(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-|")
}
