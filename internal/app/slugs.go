package app

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"costa_listings/internal/domain"
)

// ProjectNamer derives a development name from free text. Implementations are
// best effort; callers rely on a non-empty result.
type ProjectNamer func(description, propertyType, reference string) string

var projectNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)present\s+(Villa\s+\w+)`),
	regexp.MustCompile(`(?i)presenting\s+(Villa\s+\w+)`),
	regexp.MustCompile(`(?i)(Villa\s+\w+),`),
	regexp.MustCompile(`(?i)(Villa\s+\w+)\s+is`),
	regexp.MustCompile(`(?i)(Villa\s+\w+)\s+offers`),
	regexp.MustCompile(`(?i)welcome\s+to\s+(Villa\s+\w+)`),
	regexp.MustCompile(`(?i)discover\s+(Villa\s+\w+)`),
}

// DefaultProjectName looks for a named villa in the description and falls back
// to "{propertyType} {reference}".
func DefaultProjectName(description, propertyType, reference string) string {
	for _, re := range projectNamePatterns {
		if m := re.FindStringSubmatch(description); len(m) > 1 {
			return strings.Join(strings.Fields(m[1]), " ")
		}
	}
	if propertyType == "" {
		propertyType = "Property"
	}
	return strings.TrimSpace(propertyType + " " + reference)
}

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
	accents = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ñ", "n", "ç", "c", "ø", "o", "å", "a", "æ", "ae", "ß", "ss",
	)
)

// reservedSlugs are file names the content store keeps for itself.
var reservedSlugs = map[string]bool{"index": true}

// Slugify lowercases, folds common Latin accents and joins words with '-'.
func Slugify(s string) string {
	s = accents.Replace(strings.ToLower(s))
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}

// UsableSlug reports whether s can name a content file.
func UsableSlug(s string) bool {
	return s != "" && !reservedSlugs[s]
}

// HashSlug names something whose own text slugifies to nothing usable:
// the slugified prefix and the first 8 hex digits of SHA-1(seed).
func HashSlug(prefix, seed string) string {
	p := Slugify(prefix)
	if !UsableSlug(p) {
		p = "item"
	}
	return p + "-" + shortHash(seed)
}

func shortHash(seed string) string {
	sum := sha1.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:8]
}

// slugSet hands out batch-unique, usable slugs.
type slugSet map[string]struct{}

func (u slugSet) free(s string) bool {
	_, taken := u[s]
	return UsableSlug(s) && !taken
}

// claim takes base if free, else base-suffix, else base-suffix-2, -3...
// An empty suffix goes straight to the counter.
func (u slugSet) claim(base, suffix string) string {
	stem := base
	if suffix != "" {
		stem = base + "-" + suffix
	}
	slug := base
	if !u.free(slug) {
		slug = stem
	}
	for n := 2; !u.free(slug); n++ {
		slug = stem + "-" + strconv.Itoa(n)
	}
	u[slug] = struct{}{}
	return slug
}

// AssignSlugs sets Slug from ProjectName. Colliding slugs get the reference
// appended, then a counter, so every slug in the batch is unique.
func AssignSlugs(props []domain.Property) {
	used := make(slugSet, len(props))
	for i := range props {
		p := &props[i]
		base := Slugify(p.ProjectName)
		if !UsableSlug(base) {
			base = Slugify(p.Reference)
		}
		if !UsableSlug(base) {
			base = HashSlug(p.PropertyType, p.Reference)
		}
		suffix := Slugify(p.Reference)
		if suffix == "" {
			suffix = shortHash(p.Reference)
		}
		p.Slug = used.claim(base, suffix)
	}
}

// PropertySlugs returns one file slug per property, derived from its
// reference and unique within props. References that slugify to nothing
// usable fall back to HashSlug; references that collide after slugifying
// get a counter in input order.
func PropertySlugs(props []domain.Property) []string {
	used := make(slugSet, len(props))
	out := make([]string, len(props))
	for i, p := range props {
		base := Slugify(p.Reference)
		if !UsableSlug(base) {
			base = HashSlug(p.PropertyType, p.Reference)
		}
		out[i] = used.claim(base, "")
	}
	return out
}
