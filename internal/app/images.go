package app

import (
	"fmt"
	"strings"

	"costa_listings/internal/domain"
)

// imageTypes are assigned by position when the listing gallery follows the
// usual exterior-first order.
var imageTypes = []string{"exterior view", "interior living area", "kitchen", "bedroom", "bathroom", "terrace", "pool area", "garden"}

var urlHints = []struct {
	keys  []string
	label string
}{
	{[]string{"aerial", "drone"}, "aerial view"},
	{[]string{"exterior", "facade", "building"}, "exterior view"},
	{[]string{"pool", "piscina"}, "pool area"},
	{[]string{"garden", "jardin", "outdoor"}, "garden"},
	{[]string{"living", "salon", "lounge"}, "interior living area"},
	{[]string{"kitchen", "cocina"}, "kitchen"},
	{[]string{"bedroom", "dormitorio", "habitacion"}, "bedroom"},
	{[]string{"bathroom", "bano", "bath"}, "bathroom"},
	{[]string{"terrace", "terraza", "balcon"}, "terrace"},
	{[]string{"view", "vista"}, "views"},
}

// ImageLabel names what an image probably shows, from URL hints first and
// gallery position second.
func ImageLabel(url string, i int) string {
	u := strings.ToLower(url)
	for _, h := range urlHints {
		for _, k := range h.keys {
			if strings.Contains(u, k) {
				return h.label
			}
		}
	}
	if i < len(imageTypes) {
		return imageTypes[i]
	}
	return fmt.Sprintf("view %d", i+1)
}

// FallbackAlt is the deterministic alt used when the model gives none.
// An empty coast drops the trailing location.
func FallbackAlt(name, town, propertyType, label, coast string) string {
	alt := fmt.Sprintf("%s %s - %s of this new build %s", name, town, label, strings.ToLower(propertyType))
	if coast != "" {
		alt += " in " + coast
	}
	return alt
}

// PairImageAlts pairs model alts with image URLs by position and fills gaps
// with FallbackAlt.
func PairImageAlts(p *domain.Property, name, coast string, alts []string) []domain.ImageAlt {
	if p == nil || len(p.Images) == 0 {
		return nil
	}
	out := make([]domain.ImageAlt, len(p.Images))
	for i, url := range p.Images {
		alt := ""
		if i < len(alts) {
			alt = TrimToWord(alts[i], 125)
		}
		if alt == "" {
			alt = FallbackAlt(name, p.Town, p.PropertyType, ImageLabel(url, i), coast)
		}
		out[i] = domain.ImageAlt{URL: url, Alt: alt}
	}
	return out
}
