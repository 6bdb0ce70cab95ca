package interfaces

import "context"

// ConfigDocumentID is the id under which the resolved run configuration is
// persisted, so the read facade can serve the schema it was loaded with.
const ConfigDocumentID = "config:api"

// StoredDocument is the persisted shape of a content record: a flat JSON
// object keyed by "{type}:{slug}" with an opaque revision that must be
// round-tripped unchanged for updates.
type StoredDocument struct {
	ID   string         `json:"_id"`
	Rev  string         `json:"_rev,omitempty"`
	Body map[string]any `json:"body"`
}

// UpsertResult reports the outcome of one document in a bulk write.
type UpsertResult struct {
	ID       string
	Rev      string
	Conflict bool
	Err      error
}

// DocumentStore is the key-value contract the pipeline persists into and the
// read facade queries from. Writes follow save-if-absent semantics: a write
// carrying a stale or missing revision for an existing id yields a conflict
// result rather than an error.
type DocumentStore interface {
	// Get returns the document for id. The second return reports existence.
	Get(ctx context.Context, id string) (StoredDocument, bool, error)
	// ListByType returns every document whose body carries the given type.
	ListByType(ctx context.Context, contentType string) ([]StoredDocument, error)
	// List returns every stored document.
	List(ctx context.Context) ([]StoredDocument, error)
	// BulkUpsert writes each document in order, reporting one result per
	// input. Conflicts are reported, never retried at this layer.
	BulkUpsert(ctx context.Context, docs []StoredDocument) ([]UpsertResult, error)
	// Reset drops all stored documents, used by full reloads.
	Reset(ctx context.Context) error
}
