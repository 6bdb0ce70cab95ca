package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

type memoryStore struct {
	docs map[string]interfaces.StoredDocument
}

func (m *memoryStore) Get(_ context.Context, id string) (interfaces.StoredDocument, bool, error) {
	doc, ok := m.docs[id]
	return doc, ok, nil
}

func (m *memoryStore) ListByType(_ context.Context, contentType string) ([]interfaces.StoredDocument, error) {
	var out []interfaces.StoredDocument
	for _, doc := range m.docs {
		if t, _ := doc.Body["type"].(string); t == contentType {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memoryStore) List(context.Context) ([]interfaces.StoredDocument, error) {
	return nil, nil
}

func (m *memoryStore) BulkUpsert(context.Context, []interfaces.StoredDocument) ([]interfaces.UpsertResult, error) {
	return nil, nil
}

func (m *memoryStore) Reset(context.Context) error { return nil }

func setupAPI(t *testing.T) *http.ServeMux {
	t.Helper()
	cfg, err := schema.Resolve(map[string]any{
		"language-default": "en",
		"types-tool": []any{
			map[string]any{"one": "tactic", "many": "tactics"},
		},
		"markdown": []any{"summary"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	store := &memoryStore{docs: map[string]interfaces.StoredDocument{
		"config:api": {ID: "config:api", Body: map[string]any{"language-default": "en"}},
		"tactic:boycott": {ID: "tactic:boycott", Rev: "1-a", Body: map[string]any{
			"type": "tactic", "slug": "boycott", "title": "Boycott",
			"summary": "Refuse to **buy**.",
		}},
		"tactic:strike": {ID: "tactic:strike", Rev: "1-b", Body: map[string]any{
			"type": "tactic", "slug": "strike", "title": "Strike",
		}},
	}}

	mux := http.NewServeMux()
	New(store, cfg).Register(mux)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, path string, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != wantStatus {
		t.Fatalf("GET %s: status %d, want %d (%s)", path, rec.Code, wantStatus, rec.Body.String())
	}
	return rec
}

func TestCollectionListsByPluralName(t *testing.T) {
	mux := setupAPI(t)
	rec := get(t, mux, "/api/v1/tactics", http.StatusOK)

	var bodies []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &bodies); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 tactics, got %d", len(bodies))
	}
}

func TestUnknownCollectionIs404(t *testing.T) {
	mux := setupAPI(t)
	get(t, mux, "/api/v1/recipes", http.StatusNotFound)
}

func TestSingleRecordBySingularTypeAndSlug(t *testing.T) {
	mux := setupAPI(t)
	rec := get(t, mux, "/api/v1/tactic/boycott", http.StatusOK)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["title"] != "Boycott" {
		t.Fatalf("body: %#v", body)
	}

	get(t, mux, "/api/v1/tactic/missing", http.StatusNotFound)
}

func TestMarkdownRendering(t *testing.T) {
	mux := setupAPI(t)
	rec := get(t, mux, "/api/v1/tactic/boycott?render=html", http.StatusOK)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	summary, _ := body["summary"].(string)
	if !strings.Contains(summary, "<strong>buy</strong>") {
		t.Fatalf("rendered summary: %q", summary)
	}

	plain := get(t, mux, "/api/v1/tactic/boycott", http.StatusOK)
	var raw map[string]any
	json.Unmarshal(plain.Body.Bytes(), &raw)
	if raw["summary"] != "Refuse to **buy**." {
		t.Fatalf("unrendered summary altered: %q", raw["summary"])
	}
}

func TestConfigEndpoint(t *testing.T) {
	mux := setupAPI(t)
	rec := get(t, mux, "/api/v1/config", http.StatusOK)
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["language-default"] != "en" {
		t.Fatalf("config body: %#v", body)
	}
}
