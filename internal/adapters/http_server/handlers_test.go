package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "costa_listings/internal/adapters/http_server"
	"costa_listings/internal/app"
	"costa_listings/internal/domain"
	"costa_listings/internal/storage/files"
)

type stubCatalog struct{ props []domain.Property }

func (s *stubCatalog) UpsertProperty(context.Context, domain.Property) error { return nil }
func (s *stubCatalog) LogSkip(context.Context, string, string, string) error { return nil }
func (s *stubCatalog) GetProperty(_ context.Context, ref string) (domain.Property, error) {
	for _, p := range s.props {
		if p.Reference == ref {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}
func (s *stubCatalog) ListProperties(_ context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	return s.props, nil
}

func newServer(t *testing.T, cat domain.Catalog) (*httptest.Server, *files.Store) {
	t.Helper()
	store := files.New(t.TempDir())
	q := app.NewQueryService(cat, store, nil, time.Minute)
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{Q: q})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, store
}

func get(t *testing.T, url string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestHealthz(t *testing.T) {
	ts, _ := newServer(t, nil)
	res := get(t, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestContent_GetWithETag(t *testing.T) {
	ts, store := newServer(t, nil)
	require.NoError(t, store.Save(domain.GeneratedContent{
		Slug: "torrevieja", Kind: domain.KindArea, Name: "Torrevieja", MetaTitle: "Living in Torrevieja",
		Sections: json.RawMessage(`{"heroIntro":"x"}`),
	}))

	res := get(t, ts.URL+"/v1/content/area/torrevieja", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)
	var c domain.GeneratedContent
	require.NoError(t, json.NewDecoder(res.Body).Decode(&c))
	assert.Equal(t, "Living in Torrevieja", c.MetaTitle)

	res = get(t, ts.URL+"/v1/content/area/torrevieja", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, res.StatusCode)
	assert.Equal(t, etag, res.Header.Get("ETag"))
}

func TestContent_Errors(t *testing.T) {
	ts, _ := newServer(t, nil)

	res := get(t, ts.URL+"/v1/content/villa/x", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))

	res = get(t, ts.URL+"/v1/content/area/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = get(t, ts.URL+"/v1/content/builder", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var idx struct {
		Kind  string                 `json:"kind"`
		Items []domain.ManifestEntry `json:"items"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&idx))
	assert.Equal(t, "builder", idx.Kind)
	assert.NotNil(t, idx.Items)
	assert.Empty(t, idx.Items)
}

func TestProperties(t *testing.T) {
	ts, _ := newServer(t, nil)
	res := get(t, ts.URL+"/api/properties", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	ts, _ = newServer(t, &stubCatalog{props: []domain.Property{{Reference: "N1", Town: "Altea", Price: 1}}})
	res = get(t, ts.URL+"/api/properties?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = get(t, ts.URL+"/api/properties?town=altea", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var feed struct {
		Properties []domain.Property `json:"properties"`
		Count      int               `json:"count"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&feed))
	assert.Equal(t, 1, feed.Count)
	assert.Equal(t, "N1", feed.Properties[0].Reference)

	res = get(t, ts.URL+"/api/properties/N1", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = get(t, ts.URL+"/api/properties/N2", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
