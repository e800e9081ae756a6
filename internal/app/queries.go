package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"costa_listings/internal/domain"
)

// ErrCatalogDisabled is returned by catalog reads when no catalog is configured.
var ErrCatalogDisabled = errors.New("property catalog is not configured")

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type QueryService struct {
	catalog  domain.Catalog // optional
	content  domain.ContentStore
	cache    domain.Cache // optional
	cacheTTL time.Duration
	flight   singleflight.Group
}

func NewQueryService(cat domain.Catalog, content domain.ContentStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{catalog: cat, content: content, cache: c, cacheTTL: ttl}
}

func propertyKey(ref string) string { return "property:" + strings.ToLower(ref) }

func listingsKey(town string, limit int) string {
	return fmt.Sprintf("properties:%s:%d", strings.ToLower(town), limit)
}

func contentKey(kind domain.EntityKind, slug string) string {
	return fmt.Sprintf("content:%s:%s", kind, slug)
}

func manifestKey(kind domain.EntityKind) string { return "manifest:" + string(kind) }

func (s *QueryService) GetProperty(ctx context.Context, ref string) (domain.Property, error) {
	if s.catalog == nil {
		return domain.Property{}, ErrCatalogDisabled
	}
	var p domain.Property
	err := s.cached(ctx, propertyKey(ref), &p, func() (any, error) {
		return s.catalog.GetProperty(ctx, ref)
	})
	return p, err
}

func (s *QueryService) ListProperties(ctx context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	if s.catalog == nil {
		return nil, ErrCatalogDisabled
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	var out []domain.Property
	err := s.cached(ctx, listingsKey(q.Town, q.Limit), &out, func() (any, error) {
		ps, err := s.catalog.ListProperties(ctx, q)
		if err != nil {
			return nil, err
		}
		// copy to avoid aliasing the repo's backing array
		cp := make([]domain.Property, len(ps))
		copy(cp, ps)
		return cp, nil
	})
	return out, err
}

func (s *QueryService) GetContent(ctx context.Context, kind domain.EntityKind, slug string) (domain.GeneratedContent, error) {
	var c domain.GeneratedContent
	err := s.cached(ctx, contentKey(kind, slug), &c, func() (any, error) {
		return s.content.Load(kind, slug)
	})
	return c, err
}

func (s *QueryService) ListContent(ctx context.Context, kind domain.EntityKind) ([]domain.ManifestEntry, error) {
	var out []domain.ManifestEntry
	err := s.cached(ctx, manifestKey(kind), &out, func() (any, error) {
		return s.content.Manifest(kind)
	})
	return out, err
}

// cached reads key into dst, loading through load on a miss. Concurrent
// misses for one key share a single load. Errors are never cached.
func (s *QueryService) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, dst); ok {
			return nil
		}
	}
	v, err, _ := s.flight.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	return assign(dst, v)
}

func assign(dst, v any) error {
	switch d := dst.(type) {
	case *domain.Property:
		*d = v.(domain.Property)
	case *[]domain.Property:
		*d = v.([]domain.Property)
	case *domain.GeneratedContent:
		*d = v.(domain.GeneratedContent)
	case *[]domain.ManifestEntry:
		*d = v.([]domain.ManifestEntry)
	default:
		return fmt.Errorf("unsupported cache target %T", dst)
	}
	return nil
}
