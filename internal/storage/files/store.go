package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"costa_listings/internal/domain"
)

// IndexFile is the manifest name inside every kind directory.
const IndexFile = "index.json"

// ErrInvalidSlug is domain.ErrInvalidSlug, re-exported for callers of this package.
var ErrInvalidSlug = domain.ErrInvalidSlug

// Store persists generated content as <root>/<kind-dir>/<slug>.json.
// One run owns the directory; there is no locking.
type Store struct {
	root string
}

func New(root string) *Store { return &Store{root: root} }

func (s *Store) Root() string { return s.root }

func (s *Store) dir(kind domain.EntityKind) string { return filepath.Join(s.root, kind.Dir()) }

func (s *Store) path(kind domain.EntityKind, slug string) (string, error) {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) ||
		slug+".json" == IndexFile {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return filepath.Join(s.dir(kind), slug+".json"), nil
}

func (s *Store) Exists(kind domain.EntityKind, slug string) (bool, error) {
	p, err := s.path(kind, slug)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Save writes c atomically: readers see either the old file or the new one.
func (s *Store) Save(c domain.GeneratedContent) error {
	p, err := s.path(c.Kind, c.Slug)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.Kind, c.Slug, err)
	}
	return writeAtomic(p, append(b, '\n'))
}

func (s *Store) Load(kind domain.EntityKind, slug string) (domain.GeneratedContent, error) {
	p, err := s.path(kind, slug)
	if err != nil {
		return domain.GeneratedContent{}, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.GeneratedContent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.GeneratedContent{}, err
	}
	var c domain.GeneratedContent
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("decode %s: %w", p, err)
	}
	return c, nil
}

// Manifest scans every content file of kind and returns a slug-sorted index.
// Unreadable files are logged and left out.
func (s *Store) Manifest(kind domain.EntityKind) ([]domain.ManifestEntry, error) {
	ents, err := os.ReadDir(s.dir(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ManifestEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.ManifestEntry, 0, len(ents))
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || name == IndexFile {
			continue
		}
		c, err := s.Load(kind, strings.TrimSuffix(name, ".json"))
		if err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Str("file", name).Msg("manifest: skipping unreadable file")
			continue
		}
		slug := c.Slug
		if slug == "" {
			slug = strings.TrimSuffix(name, ".json")
		}
		out = append(out, domain.ManifestEntry{Slug: slug, Name: c.Name, MetaTitle: c.MetaTitle, Town: c.Town, Price: c.Price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// WriteManifest rebuilds <kind-dir>/index.json from the files on disk.
func (s *Store) WriteManifest(kind domain.EntityKind) ([]domain.ManifestEntry, error) {
	entries, err := s.Manifest(kind)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(s.dir(kind), IndexFile), append(b, '\n')); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	// no-op once renamed
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
