package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

// CacheSource serves documents from a JSON snapshot written by SaveCache,
// letting the pipeline re-run without touching the real source.
type CacheSource struct {
	path string
}

// NewCacheSource returns a source reading the snapshot at path.
func NewCacheSource(path string) *CacheSource {
	return &CacheSource{path: path}
}

// List loads every document in the snapshot.
func (s *CacheSource) List(_ context.Context) ([]interfaces.SourceDocument, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("source: read cache %s: %w", s.path, err)
	}
	var docs []interfaces.SourceDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("source: decode cache %s: %w", s.path, err)
	}
	return docs, nil
}

// Get finds one cached document by id.
func (s *CacheSource) Get(ctx context.Context, id string) (interfaces.SourceDocument, bool, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return interfaces.SourceDocument{}, false, err
	}
	for _, doc := range docs {
		if doc.ID == id {
			return doc, true, nil
		}
	}
	return interfaces.SourceDocument{}, false, nil
}

// SaveCache writes docs as a JSON snapshot readable by CacheSource.
func SaveCache(path string, docs []interfaces.SourceDocument) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
