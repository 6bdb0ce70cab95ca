package record

import (
	"fmt"
	"sort"
)

// Reserved body keys managed by the fixed portion of the record schema.
// Everything else round-trips through the open Fields map.
const (
	KeyType          = "type"
	KeySlug          = "slug"
	KeyTitle         = "title"
	KeyLang          = "lang"
	KeyTimestamp     = "timestamp"
	KeyTranslations  = "translations"
	KeyDocumentID    = "document_id"
	KeyDocumentLink  = "document_link"
	KeyDocumentTitle = "document_title"
)

// Record is the canonical unit of content flowing through the pipeline: a
// fixed-schema core plus an open extension map for type-specific fields.
type Record struct {
	Type  string
	Slug  string
	Title string
	Lang  string

	// Provenance, never present on translation sub-records.
	DocumentID    string
	DocumentLink  string
	DocumentTitle string
	Timestamp     int64

	// Rev is the opaque storage revision, round-tripped unchanged.
	Rev string

	// Translations maps language codes to partial record overrides. The map
	// never contains a key equal to the record's own Lang.
	Translations map[string]*Record

	// Fields holds the open, type-specific portion of the record.
	Fields map[string]any

	fresh bool
}

// New returns an empty record with initialized maps.
func New() *Record {
	return &Record{
		Translations: map[string]*Record{},
		Fields:       map[string]any{},
	}
}

// ID derives the storage identifier for the record.
func (r *Record) ID() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Slug)
}

// MarkNew flags the record as freshly extracted and not yet finalized by the
// cross-reference patcher.
func (r *Record) MarkNew() { r.fresh = true }

// ClearNew strips the transient marker, signalling pipeline completion.
func (r *Record) ClearNew() { r.fresh = false }

// IsNew reports whether the record still awaits cross-reference patching.
func (r *Record) IsNew() bool { return r.fresh }

// Field returns the open field stored under key.
func (r *Record) Field(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// SetField stores value under key in the open field map.
func (r *Record) SetField(key string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[key] = value
}

// DeleteField removes key from the open field map.
func (r *Record) DeleteField(key string) {
	delete(r.Fields, key)
}

// StringField returns the field under key when it holds text.
func (r *Record) StringField(key string) (string, bool) {
	s, ok := r.Fields[key].(string)
	return s, ok
}

// StringsField coerces the field under key into a string slice. A bare
// string becomes a one-element slice; list items that are not strings are
// skipped.
func (r *Record) StringsField(key string) ([]string, bool) {
	switch v := r.Fields[key].(type) {
	case string:
		return []string{v}, true
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Translation returns the sub-record for lang, creating it when absent.
func (r *Record) Translation(lang string) *Record {
	if r.Translations == nil {
		r.Translations = map[string]*Record{}
	}
	tr, ok := r.Translations[lang]
	if !ok {
		tr = New()
		tr.Lang = lang
		r.Translations[lang] = tr
	}
	return tr
}

// FieldKeys returns the open field keys in sorted order.
func (r *Record) FieldKeys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Body flattens the record into the persisted JSON shape. Provenance fields
// are omitted from translation sub-records, and the transient freshness
// marker never persists.
func (r *Record) Body() map[string]any {
	body := make(map[string]any, len(r.Fields)+9)
	for k, v := range r.Fields {
		body[k] = v
	}
	body[KeyType] = r.Type
	body[KeySlug] = r.Slug
	body[KeyTitle] = r.Title
	if r.Lang != "" {
		body[KeyLang] = r.Lang
	}
	if r.DocumentID != "" {
		body[KeyDocumentID] = r.DocumentID
		body[KeyDocumentLink] = r.DocumentLink
		body[KeyDocumentTitle] = r.DocumentTitle
	}
	if r.Timestamp != 0 {
		body[KeyTimestamp] = r.Timestamp
	}
	translations := make(map[string]any, len(r.Translations))
	for lang, tr := range r.Translations {
		sub := make(map[string]any, len(tr.Fields)+3)
		for k, v := range tr.Fields {
			sub[k] = v
		}
		if tr.Title != "" {
			sub[KeyTitle] = tr.Title
		}
		sub[KeyLang] = lang
		translations[lang] = sub
	}
	body[KeyTranslations] = translations
	return body
}

// FromBody reconstructs a record from its persisted shape.
func FromBody(body map[string]any) *Record {
	r := New()
	for k, v := range body {
		switch k {
		case KeyType:
			r.Type, _ = v.(string)
		case KeySlug:
			r.Slug, _ = v.(string)
		case KeyTitle:
			r.Title, _ = v.(string)
		case KeyLang:
			r.Lang, _ = v.(string)
		case KeyDocumentID:
			r.DocumentID, _ = v.(string)
		case KeyDocumentLink:
			r.DocumentLink, _ = v.(string)
		case KeyDocumentTitle:
			r.DocumentTitle, _ = v.(string)
		case KeyTimestamp:
			r.Timestamp = asInt64(v)
		case KeyTranslations:
			if m, ok := v.(map[string]any); ok {
				for lang, sub := range m {
					subMap, ok := sub.(map[string]any)
					if !ok {
						continue
					}
					tr := FromBody(subMap)
					tr.Lang = lang
					r.Translations[lang] = tr
				}
			}
		default:
			r.Fields[k] = v
		}
	}
	return r
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
