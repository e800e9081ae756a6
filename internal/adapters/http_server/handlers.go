package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"costa_listings/internal/app"
	"costa_listings/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// propertiesFeed is the site API shape read back by the site-api feed source.
type propertiesFeed struct {
	Properties []domain.Property `json:"properties"`
	Count      int               `json:"count"`
}

type contentIndex struct {
	Kind  domain.EntityKind      `json:"kind"`
	Items []domain.ManifestEntry `json:"items"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/properties", h.listProperties)
	s.mux.Get("/api/properties/{ref}", h.getProperty)
	s.mux.Get("/v1/content/{kind}", h.listContent)
	s.mux.Get("/v1/content/{kind}/{slug}", h.getContent)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
	case errors.Is(err, domain.ErrInvalidSlug):
		writeProblem(w, http.StatusBadRequest, "Invalid slug", err.Error())
	case errors.Is(err, app.ErrCatalogDisabled):
		writeProblem(w, http.StatusServiceUnavailable, "Catalog unavailable", err.Error())
	default:
		log.Error().Err(err).Str("resource", what).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 304 when the client already holds this version.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	limit := app.DefaultListLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > app.MaxListLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	ps, err := h.Q.ListProperties(r.Context(), domain.PropertyQuery{Town: r.URL.Query().Get("town"), Limit: limit})
	if err != nil {
		writeError(w, err, "properties")
		return
	}
	if ps == nil {
		ps = []domain.Property{}
	}
	writeJSON(w, r, propertiesFeed{Properties: ps, Count: len(ps)})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Q.GetProperty(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err, "property")
		return
	}
	writeJSON(w, r, p)
}

func (h *Handlers) listContent(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid kind", err.Error())
		return
	}
	items, err := h.Q.ListContent(r.Context(), kind)
	if err != nil {
		writeError(w, err, "content")
		return
	}
	if items == nil {
		items = []domain.ManifestEntry{}
	}
	writeJSON(w, r, contentIndex{Kind: kind, Items: items})
}

func (h *Handlers) getContent(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid kind", err.Error())
		return
	}
	c, err := h.Q.GetContent(r.Context(), kind, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err, "content")
		return
	}
	writeJSON(w, r, c)
}
