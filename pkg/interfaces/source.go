package interfaces

import (
	"context"
	"time"
)

// SourceDocument is the raw unit returned by a document source: a text blob
// plus the metadata the pipeline stamps onto extracted records.
type SourceDocument struct {
	// ID is the source's globally unique identifier for the document.
	ID string `json:"id"`
	// Title is the source-side document name (not the content title).
	Title string `json:"title"`
	// Link points back at the authoring location of the document.
	Link string `json:"link"`
	// Modified is the source's last-modified timestamp.
	Modified time.Time `json:"modified"`
	// Text is the raw markup body.
	Text string `json:"text"`
	// Meta carries optional structured metadata supplied by the source,
	// e.g. front matter on filesystem documents. Parsed document keys take
	// precedence over Meta keys during extraction.
	Meta map[string]any `json:"meta,omitempty"`
}

// DocumentSource lists and fetches raw documents from a folder hierarchy.
// Implementations decide what a folder is; the pipeline only filters by the
// configured published-filename and ignore-folder expressions.
type DocumentSource interface {
	// List returns every candidate document, already pruned by the source's
	// ignore rules. Order is not significant.
	List(ctx context.Context) ([]SourceDocument, error)
	// Get fetches one document by id. The second return reports existence.
	Get(ctx context.Context, id string) (SourceDocument, bool, error)
}

// WatchableSource is an optional extension for sources that support
// change-watch registration (e.g. a cloud drive webhook channel).
type WatchableSource interface {
	Watch(ctx context.Context, address string) error
	Unwatch(ctx context.Context) error
}
