// Package httpapi exposes persisted content through a small read-only REST
// facade: collections by plural type name, single records by type and slug,
// and the resolved config document. Markdown fields can be rendered to HTML
// on demand.
package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/goliatone/go-content-pipeline/internal/logging"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// API serves the read facade over a DocumentStore.
type API struct {
	basePath string
	store    interfaces.DocumentStore
	cfg      *schema.Config
	markdown goldmark.Markdown
	logger   interfaces.Logger
}

// Option mutates the API configuration.
type Option func(*API)

// New constructs the read facade.
func New(store interfaces.DocumentStore, cfg *schema.Config, opts ...Option) *API {
	api := &API{
		basePath: "/api/v1",
		store:    store,
		cfg:      cfg,
		markdown: goldmark.New(),
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// WithBasePath overrides the base API path (defaults to "/api/v1").
func WithBasePath(path string) Option {
	return func(api *API) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = "/" + strings.Trim(trimmed, "/")
		}
	}
}

// WithLoggerProvider wires the logger namespace for request handling.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(api *API) {
		api.logger = logging.HTTPLogger(provider)
	}
}

// Register installs the facade routes on mux.
func (api *API) Register(mux *http.ServeMux) {
	base := api.basePath
	mux.HandleFunc("GET "+base+"/config", api.handleConfig)
	mux.HandleFunc("GET "+base+"/{collection}", api.handleCollection)
	mux.HandleFunc("GET "+base+"/{collection}/{slug}", api.handleOne)
}

func (api *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	doc, found, err := api.store.Get(r.Context(), interfaces.ConfigDocumentID)
	if err != nil {
		api.fail(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "config document not stored")
		return
	}
	writeJSON(w, http.StatusOK, doc.Body)
}

// handleCollection lists every record of a type, addressed by plural name.
func (api *API) handleCollection(w http.ResponseWriter, r *http.Request) {
	plural := r.PathValue("collection")
	singular, ok := api.cfg.SingularForType[plural]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection "+plural)
		return
	}
	docs, err := api.store.ListByType(r.Context(), singular)
	if err != nil {
		api.fail(w, err)
		return
	}
	bodies := make([]map[string]any, len(docs))
	for i, doc := range docs {
		bodies[i] = api.present(doc.Body, r)
	}
	writeJSON(w, http.StatusOK, bodies)
}

// handleOne returns one record, addressed by singular type and slug.
func (api *API) handleOne(w http.ResponseWriter, r *http.Request) {
	singular := r.PathValue("collection")
	if _, ok := api.cfg.PluralForType[singular]; !ok {
		writeError(w, http.StatusNotFound, "unknown type "+singular)
		return
	}
	id := singular + ":" + r.PathValue("slug")
	doc, found, err := api.store.Get(r.Context(), id)
	if err != nil {
		api.fail(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no content "+id)
		return
	}
	writeJSON(w, http.StatusOK, api.present(doc.Body, r))
}

// present optionally renders markdown fields to HTML when the request asks
// for it with ?render=html.
func (api *API) present(body map[string]any, r *http.Request) map[string]any {
	if r.URL.Query().Get("render") != "html" {
		return body
	}
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	for _, field := range api.cfg.MarkdownFields {
		if v, ok := out[field]; ok {
			out[field] = record.VisitStrings(v, api.render)
		}
	}
	if translations, ok := out[record.KeyTranslations].(map[string]any); ok {
		rendered := make(map[string]any, len(translations))
		for lang, sub := range translations {
			subMap, ok := sub.(map[string]any)
			if !ok {
				rendered[lang] = sub
				continue
			}
			subOut := make(map[string]any, len(subMap))
			for k, v := range subMap {
				subOut[k] = v
			}
			for _, field := range api.cfg.MarkdownFields {
				if v, ok := subOut[field]; ok {
					subOut[field] = record.VisitStrings(v, api.render)
				}
			}
			rendered[lang] = subOut
		}
		out[record.KeyTranslations] = rendered
	}
	return out
}

func (api *API) render(src string) string {
	var buf bytes.Buffer
	if err := api.markdown.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return strings.TrimSpace(buf.String())
}

func (api *API) fail(w http.ResponseWriter, err error) {
	api.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
