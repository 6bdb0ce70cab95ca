// Package store persists content records as revisioned JSON documents.
// Writes follow save-if-absent semantics: an update must present the
// revision it read, and a mismatch reports a conflict instead of silently
// overwriting a newer write.
package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

type documentModel struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID          string    `bun:"id,pk"`
	Rev         string    `bun:"rev,notnull"`
	ContentType string    `bun:"content_type"`
	Body        []byte    `bun:"body"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

// BunStore is a Bun-backed DocumentStore.
type BunStore struct {
	db *bun.DB
}

// NewBunStore constructs a Bun-backed document store.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// CreateSchema creates the documents table when missing.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	if s.db == nil {
		return errors.New("store: bun store requires a database")
	}
	_, err := s.db.NewCreateTable().
		Model((*documentModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get returns the document for id.
func (s *BunStore) Get(ctx context.Context, id string) (interfaces.StoredDocument, bool, error) {
	if s.db == nil {
		return interfaces.StoredDocument{}, false, errors.New("store: bun store requires a database")
	}
	var model documentModel
	err := s.db.NewSelect().Model(&model).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.StoredDocument{}, false, nil
	}
	if err != nil {
		return interfaces.StoredDocument{}, false, err
	}
	doc, err := modelToDocument(&model)
	return doc, err == nil, err
}

// ListByType returns every document of the given content type, ordered by id.
func (s *BunStore) ListByType(ctx context.Context, contentType string) ([]interfaces.StoredDocument, error) {
	return s.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("content_type = ?", contentType)
	})
}

// List returns every stored document, ordered by id.
func (s *BunStore) List(ctx context.Context) ([]interfaces.StoredDocument, error) {
	return s.list(ctx, nil)
}

func (s *BunStore) list(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) ([]interfaces.StoredDocument, error) {
	if s.db == nil {
		return nil, errors.New("store: bun store requires a database")
	}
	var models []documentModel
	q := s.db.NewSelect().Model(&models).Order("id ASC")
	if apply != nil {
		q = apply(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	docs := make([]interfaces.StoredDocument, 0, len(models))
	for i := range models {
		doc, err := modelToDocument(&models[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// BulkUpsert writes each document in order. A document whose revision does
// not match the stored one yields a conflict result carrying the current
// revision, so callers can refetch and retry.
func (s *BunStore) BulkUpsert(ctx context.Context, docs []interfaces.StoredDocument) ([]interfaces.UpsertResult, error) {
	if s.db == nil {
		return nil, errors.New("store: bun store requires a database")
	}
	results := make([]interfaces.UpsertResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, s.upsertOne(ctx, doc))
	}
	return results, nil
}

func (s *BunStore) upsertOne(ctx context.Context, doc interfaces.StoredDocument) interfaces.UpsertResult {
	result := interfaces.UpsertResult{ID: doc.ID}

	var current documentModel
	err := s.db.NewSelect().Model(&current).Where("id = ?", doc.ID).Scan(ctx)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		result.Err = err
		return result
	}

	if exists && current.Rev != doc.Rev {
		result.Conflict = true
		result.Rev = current.Rev
		return result
	}

	body, err := json.Marshal(doc.Body)
	if err != nil {
		result.Err = err
		return result
	}
	contentType, _ := doc.Body["type"].(string)
	model := documentModel{
		ID:          doc.ID,
		Rev:         nextRev(doc.Rev, body),
		ContentType: contentType,
		Body:        body,
		UpdatedAt:   time.Now().UTC(),
	}
	if exists {
		_, err = s.db.NewUpdate().
			Model(&model).
			Column("rev", "content_type", "body", "updated_at").
			WherePK().
			Exec(ctx)
	} else {
		_, err = s.db.NewInsert().Model(&model).Exec(ctx)
	}
	if err != nil {
		result.Err = err
		return result
	}
	result.Rev = model.Rev
	return result
}

// Reset drops every stored document.
func (s *BunStore) Reset(ctx context.Context) error {
	if s.db == nil {
		return errors.New("store: bun store requires a database")
	}
	_, err := s.db.NewDelete().
		Model((*documentModel)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}

func modelToDocument(model *documentModel) (interfaces.StoredDocument, error) {
	body := map[string]any{}
	if len(model.Body) > 0 {
		if err := json.Unmarshal(model.Body, &body); err != nil {
			return interfaces.StoredDocument{}, fmt.Errorf("store: decode body of %s: %w", model.ID, err)
		}
	}
	return interfaces.StoredDocument{ID: model.ID, Rev: model.Rev, Body: body}, nil
}

// nextRev derives the successor revision: a generation counter plus a body
// digest, in the style of revisioned document databases.
func nextRev(prev string, body []byte) string {
	generation := 0
	if idx := strings.IndexByte(prev, '-'); idx > 0 {
		if n, err := strconv.Atoi(prev[:idx]); err == nil {
			generation = n
		}
	}
	return fmt.Sprintf("%d-%x", generation+1, md5.Sum(body))
}
