package store

import (
	"context"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// Saver persists a batch of records through a DocumentStore, absorbing
// revision conflicts with exactly one refetch-and-retry per document. A
// conflict that survives the retry is reported in the results; the batch
// always continues for the other documents.
type Saver struct {
	store  interfaces.DocumentStore
	logger interfaces.Logger
}

// NewSaver returns a Saver. logger may be nil.
func NewSaver(store interfaces.DocumentStore, logger interfaces.Logger) *Saver {
	return &Saver{store: store, logger: logger}
}

// SaveRecords writes every record, returning one result per input in input
// order. Record revisions are updated in place from successful writes.
func (s *Saver) SaveRecords(ctx context.Context, records []*record.Record) ([]interfaces.UpsertResult, error) {
	docs := make([]interfaces.StoredDocument, len(records))
	for i, rec := range records {
		docs[i] = interfaces.StoredDocument{ID: rec.ID(), Rev: rec.Rev, Body: rec.Body()}
	}

	results, err := s.store.BulkUpsert(ctx, docs)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].Conflict {
			results[i] = s.retry(ctx, docs[i])
		}
		if results[i].Err != nil {
			s.log("document write failed", "id", results[i].ID, "error", results[i].Err)
			continue
		}
		if results[i].Conflict {
			s.log("document write conflicted after retry", "id", results[i].ID)
			continue
		}
		if i < len(records) {
			records[i].Rev = results[i].Rev
		}
	}
	return results, nil
}

// retry refetches the current revision and re-submits the write once.
func (s *Saver) retry(ctx context.Context, doc interfaces.StoredDocument) interfaces.UpsertResult {
	current, found, err := s.store.Get(ctx, doc.ID)
	if err != nil {
		return interfaces.UpsertResult{ID: doc.ID, Err: err}
	}
	if found {
		doc.Rev = current.Rev
	} else {
		doc.Rev = ""
	}
	results, err := s.store.BulkUpsert(ctx, []interfaces.StoredDocument{doc})
	if err != nil {
		return interfaces.UpsertResult{ID: doc.ID, Err: err}
	}
	return results[0]
}

func (s *Saver) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
