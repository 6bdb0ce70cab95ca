// Package translate folds per-language content into canonical records.
// Translations arrive two ways: as standalone documents pointing back at
// their default-language original, and as language-suffixed keys inside the
// original itself. Both end up under the canonical record's translations
// map; standalone translated records are fully absorbed and cease to exist
// on their own.
package translate

import (
	"strings"

	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// KeyDefaultLanguageContent names the field a translated document uses to
// point at its default-language original.
const KeyDefaultLanguageContent = "default-language-content"

// Merger absorbs translations into canonical records.
type Merger struct {
	cfg     *schema.Config
	matcher *fuzzy.Matcher
	logger  interfaces.Logger
}

// New returns a Merger sharing the pipeline's fuzzy matcher.
func New(cfg *schema.Config, matcher *fuzzy.Matcher, logger interfaces.Logger) *Merger {
	return &Merger{cfg: cfg, matcher: matcher, logger: logger}
}

// Merge partitions records by language, absorbs translated records into
// their canonical originals, and promotes language-suffixed keys. The
// returned slice holds only canonical records. Re-running Merge on its own
// output is a no-op: absorbed records are gone and suffixed keys no longer
// exist.
func (m *Merger) Merge(records []*record.Record) []*record.Record {
	var primary, translated []*record.Record
	byType := map[string][]*record.Record{}
	for _, rec := range records {
		if rec.Lang == m.cfg.LanguageDefault || rec.Lang == "" {
			primary = append(primary, rec)
			byType[rec.Type] = append(byType[rec.Type], rec)
		} else {
			translated = append(translated, rec)
		}
	}

	for _, rec := range translated {
		m.absorb(rec, byType[rec.Type])
	}
	for _, rec := range primary {
		m.promoteSuffixed(rec)
		// A record never carries a translation in its own language.
		delete(rec.Translations, rec.Lang)
		delete(rec.Translations, m.cfg.LanguageDefault)
	}
	return primary
}

// absorb attaches a standalone translated record to its canonical original.
// A missing or unresolvable pointer makes the record an orphan; orphans are
// dropped with a warning so editors can repair the pointer.
func (m *Merger) absorb(tr *record.Record, candidates []*record.Record) {
	pointer, _ := tr.StringField(KeyDefaultLanguageContent)
	if strings.TrimSpace(pointer) == "" {
		m.warn("translated document missing its original pointer, dropped",
			"title", tr.Title, "lang", tr.Lang, "document", tr.DocumentID)
		return
	}
	target, found := m.matcher.BestMatch(pointer, candidates, m.cfg.MatchThreshold)
	if !found {
		m.warn("orphaned translation dropped",
			"title", tr.Title, "lang", tr.Lang, "pointer", pointer, "document", tr.DocumentID)
		return
	}
	tr.DeleteField(KeyDefaultLanguageContent)
	if tr.Lang != target.Lang {
		target.Translations[tr.Lang] = tr
	}
}

// promoteSuffixed lifts "-<lang>" keys off the canonical record. Default
// language values overwrite the unsuffixed field in place; other languages
// deep-merge into the matching translation sub-record. A suffixed map value
// starts from a copy of the canonical map, so subkeys the translation does
// not mention fall back to the default language.
func (m *Merger) promoteSuffixed(rec *record.Record) {
	for _, key := range rec.FieldKeys() {
		base, lang, ok := m.splitSuffix(key)
		if !ok {
			continue
		}
		value := rec.Fields[key]
		rec.DeleteField(key)
		if lang == m.cfg.LanguageDefault {
			applyField(rec, base, value)
			continue
		}
		tr := rec.Translation(lang)
		if src, isMap := value.(map[string]any); isMap {
			if _, has := tr.Fields[base].(map[string]any); !has {
				if canonical, ok := rec.Fields[base].(map[string]any); ok {
					seeded := record.DeepCopyValue(canonical).(map[string]any)
					deepMerge(seeded, src)
					tr.SetField(base, seeded)
					continue
				}
			}
		}
		applyField(tr, base, value)
	}
}

func (m *Merger) splitSuffix(key string) (string, string, bool) {
	for _, lang := range m.cfg.LanguageAll {
		suffix := "-" + lang
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return strings.TrimSuffix(key, suffix), lang, true
		}
	}
	return "", "", false
}

// applyField writes value under base on rec. Map values merge recursively,
// preserving existing subkeys the new value does not mention; everything
// else overwrites.
func applyField(rec *record.Record, base string, value any) {
	if base == record.KeyTitle {
		if s, ok := value.(string); ok {
			rec.Title = s
			return
		}
	}
	if src, ok := value.(map[string]any); ok {
		if dst, ok := rec.Fields[base].(map[string]any); ok {
			deepMerge(dst, src)
			return
		}
	}
	rec.SetField(base, record.DeepCopyValue(value))
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = record.DeepCopyValue(v)
	}
}

func (m *Merger) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
