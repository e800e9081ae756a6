package domain

import "context"

// FeedSource is one listing provider. Fetch returns at least one record or an error.
type FeedSource interface {
	Name() string
	Fetch(ctx context.Context) ([]RawRecord, FetchStats, error)
}

// TextGenerator is the generative text API.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (Completion, error)
}

type ContentStore interface {
	Exists(kind EntityKind, slug string) (bool, error)
	Save(c GeneratedContent) error
	Load(kind EntityKind, slug string) (GeneratedContent, error)
	Manifest(kind EntityKind) ([]ManifestEntry, error)
	WriteManifest(kind EntityKind) ([]ManifestEntry, error)
}

type Catalog interface {
	// Write paths
	UpsertProperty(ctx context.Context, p Property) error
	LogSkip(ctx context.Context, reference, source, reason string) error

	// Read paths
	GetProperty(ctx context.Context, reference string) (Property, error)
	ListProperties(ctx context.Context, q PropertyQuery) ([]Property, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PropertyQuery struct {
	Town  string
	Limit int
}
