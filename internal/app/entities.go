package app

import (
	"fmt"
	"strings"

	"costa_listings/internal/domain"
)

// BuildEntities turns a classified, slugged property batch into generation
// units of one kind. Order follows first appearance in props.
func BuildEntities(kind domain.EntityKind, props []domain.Property) ([]domain.Entity, error) {
	switch kind {
	case domain.KindProperty, domain.KindDevelopment:
		var refSlugs []string
		if kind == domain.KindProperty {
			refSlugs = PropertySlugs(props)
		}
		out := make([]domain.Entity, 0, len(props))
		for i := range props {
			p := props[i]
			slug := p.Slug
			if refSlugs != nil {
				slug = refSlugs[i]
			}
			out = append(out, domain.Entity{Kind: kind, Slug: slug, Name: p.ProjectName, Town: p.Town, Property: &p})
		}
		return out, nil
	case domain.KindArea:
		return groupEntities(kind, props, func(p domain.Property) string { return p.Town }), nil
	case domain.KindBuilder:
		return groupEntities(kind, props, func(p domain.Property) string { return p.Developer }), nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

func groupEntities(kind domain.EntityKind, props []domain.Property, keyOf func(domain.Property) string) []domain.Entity {
	index := map[string]int{}
	used := slugSet{}
	var groups []*domain.Group
	var groupSlugs []string
	for _, p := range props {
		name := strings.TrimSpace(keyOf(p))
		key := Slugify(name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &domain.Group{Name: name})
			base := key
			if !UsableSlug(base) {
				base = HashSlug(string(kind), name)
			}
			groupSlugs = append(groupSlugs, used.claim(base, ""))
		}
		g := groups[i]
		g.Members = append(g.Members, p)
		g.Towns = appendUnique(g.Towns, p.Town)
		g.PropertyTypes = appendUnique(g.PropertyTypes, p.PropertyType)
		if g.MinPrice == 0 || p.Price < g.MinPrice {
			g.MinPrice = p.Price
		}
		if p.Price > g.MaxPrice {
			g.MaxPrice = p.Price
		}
	}

	out := make([]domain.Entity, 0, len(groups))
	for i, g := range groups {
		town := ""
		if len(g.Towns) > 0 {
			town = g.Towns[0]
		}
		out = append(out, domain.Entity{
			Kind:  kind,
			Slug:  groupSlugs[i],
			Name:  g.Name,
			Town:  town,
			Group: g,
		})
	}
	return out
}

func appendUnique(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return list
		}
	}
	return append(list, s)
}

func isPriorityEntity(e domain.Entity) bool {
	if e.Property != nil {
		return e.Property.IsPriority
	}
	if e.Group != nil {
		for _, m := range e.Group.Members {
			if m.IsPriority {
				return true
			}
		}
	}
	return false
}
