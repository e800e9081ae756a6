package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"costa_listings/internal/adapters/observability"
	"costa_listings/internal/domain"
)

// JSONSource reads a JSON listing export: either a top-level array or an
// object wrapping the array under "properties".
type JSONSource struct {
	name string
	url  string
	tr   *Transport
}

func NewJSONSource(name, url string, tr *Transport) *JSONSource {
	return &JSONSource{name: name, url: url, tr: tr}
}

// NewSiteAPISource reads our own /api/properties endpoint, which serves the
// same array-or-wrapper shape.
func NewSiteAPISource(url string, tr *Transport) *JSONSource {
	return NewJSONSource("site-api", url, tr)
}

func (s *JSONSource) Name() string { return s.name }

func (s *JSONSource) Fetch(ctx context.Context) ([]domain.RawRecord, domain.FetchStats, error) {
	if s.url == "" {
		return nil, domain.FetchStats{}, fmt.Errorf("%s: no URL configured", s.name)
	}
	body, err := s.tr.get(ctx, s.name, s.url)
	if err != nil {
		return nil, domain.FetchStats{}, err
	}
	recs, stats, err := DecodeJSON(s.name, body)
	observability.ObserveFeed(s.name, "ok", len(recs))
	observability.ObserveFeed(s.name, "malformed", stats.Malformed)
	return recs, stats, err
}

// DecodeJSON splits a JSON payload into raw records. Entries that are not
// objects are counted as malformed and skipped.
func DecodeJSON(source string, body []byte) ([]domain.RawRecord, domain.FetchStats, error) {
	var stats domain.FetchStats
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, stats, ErrEmpty
	}
	// HTML error pages and login walls come back with 200
	if body[0] == '<' {
		return nil, stats, fmt.Errorf("%w: expected JSON, got markup", ErrUnparsable)
	}

	var entries []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, stats, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
	case '{':
		var wrapper struct {
			Properties []json.RawMessage `json:"properties"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, stats, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		entries = wrapper.Properties
	default:
		return nil, stats, fmt.Errorf("%w: unexpected leading byte %q", ErrUnparsable, body[0])
	}

	stats.Entries = len(entries)
	out := make([]domain.RawRecord, 0, len(entries))
	for _, e := range entries {
		var m map[string]any
		if err := json.Unmarshal(e, &m); err != nil || m == nil {
			stats.Malformed++
			continue
		}
		out = append(out, domain.RawRecord{Source: source, Fields: m})
	}
	if len(out) == 0 {
		return nil, stats, ErrEmpty
	}
	return out, stats, nil
}
