// Package extract turns one raw source document into a typed content
// record: type detection, title and slug derivation, key convention
// expansion, and provenance stamping. Malformed documents are skipped with
// a warning, never an error, so one bad document cannot abort a batch.
package extract

import (
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/goliatone/go-content-pipeline/internal/archieml"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/internal/slugify"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

var blankLineRun = regexp.MustCompile(`\n\s*\n`)

// Extractor converts raw documents into records under one resolved schema.
type Extractor struct {
	cfg    *schema.Config
	logger interfaces.Logger
}

// New returns an Extractor. logger may be nil.
func New(cfg *schema.Config, logger interfaces.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract parses doc and builds a record from it. The second return is false
// when the document does not declare a known type or carries a non-text
// title; such documents are logged and skipped.
func (e *Extractor) Extract(doc interfaces.SourceDocument) (*record.Record, bool) {
	fields := archieml.Parse(doc.Text)
	for k, v := range doc.Meta {
		key := strings.ToLower(k)
		if _, ok := fields[key]; !ok {
			fields[key] = v
		}
	}

	e.applySynonyms(fields)

	typ, title, ok := e.detectType(fields)
	if !ok {
		e.warn("document declares no known content type", "document", doc.ID, "name", doc.Title)
		return nil, false
	}

	r := record.New()
	r.Type = typ
	r.Title = title
	r.Slug = slugify.Slug(title, "")

	if lang, ok := fields[record.KeyLang].(string); ok {
		r.Lang = lang
		delete(fields, record.KeyLang)
	}

	e.normalizePlurals(fields)

	r.DocumentID = doc.ID
	r.DocumentLink = doc.Link
	r.DocumentTitle = doc.Title
	r.Timestamp = e.timestamp(fields, doc)

	for k, v := range fields {
		r.Fields[k] = v
	}
	r.MarkNew()
	return r, true
}

// applySynonyms moves each configured old key's value under its new name.
func (e *Extractor) applySynonyms(fields map[string]any) {
	for old, current := range e.cfg.Synonyms {
		if v, ok := fields[old]; ok {
			fields[current] = v
			delete(fields, old)
		}
	}
}

// detectType finds the first configured type whose singular key appears as a
// top-level field and consumes it as the record title.
func (e *Extractor) detectType(fields map[string]any) (string, string, bool) {
	for _, spec := range e.cfg.Types {
		v, ok := fields[spec.One]
		if !ok {
			continue
		}
		title, ok := v.(string)
		if !ok || title == "" {
			return "", "", false
		}
		delete(fields, spec.One)
		return spec.One, title, true
	}
	return "", "", false
}

// normalizePlurals enforces the plural-list convention: singular keys wrap
// their whole value into a one-element list under the plural name, and
// plural keys holding a single string split into a list. Blank-line
// splitting wins; the separator expression is the fallback when blank lines
// yield a single element. A singular value is never split, so names
// containing "and" or commas stay one entry.
func (e *Extractor) normalizePlurals(fields map[string]any) {
	for plural, singular := range e.cfg.PluralKeys {
		if v, ok := fields[singular]; ok {
			fields[plural] = []any{v}
			delete(fields, singular)
			continue
		}
		if s, ok := fields[plural].(string); ok {
			fields[plural] = e.splitList(s)
		}
	}
}

func (e *Extractor) splitList(s string) []any {
	parts := splitClean(blankLineRun.Split(s, -1))
	if len(parts) <= 1 {
		parts = splitClean(e.cfg.PluralSeparator.Split(s, -1))
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func splitClean(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// timestamp prefers an explicit author-supplied date field over the source's
// last-modified time. Millisecond precision matches the stored shape.
func (e *Extractor) timestamp(fields map[string]any, doc interfaces.SourceDocument) int64 {
	if s, ok := fields["date"].(string); ok {
		if t, err := dateparse.ParseAny(s); err == nil {
			return t.UnixMilli()
		}
		e.warn("unparseable date field", "document", doc.ID, "date", s)
	}
	return doc.Modified.UnixMilli()
}

func (e *Extractor) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
