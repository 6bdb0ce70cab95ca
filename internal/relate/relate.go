// Package relate resolves relationship fields between records. Forward
// fields hold hand-typed titles and resolve to slugs via fuzzy matching;
// backward fields are then inferred so every forward relationship is
// visible from both sides. Unresolved references degrade by dropping, never
// by erroring, and a field that resolves to nothing is removed outright so
// no dangling reference survives the pass.
package relate

import (
	"sort"
	"strings"

	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// TypeAny marks a forward field whose targets may be of any type.
const TypeAny = "any"

// Resolver rewrites relationship fields across a full batch.
type Resolver struct {
	cfg     *schema.Config
	matcher *fuzzy.Matcher
	logger  interfaces.Logger
}

// New returns a Resolver sharing the pipeline's fuzzy matcher.
func New(cfg *schema.Config, matcher *fuzzy.Matcher, logger interfaces.Logger) *Resolver {
	return &Resolver{cfg: cfg, matcher: matcher, logger: logger}
}

// Resolve mutates records in place: forward titles become slugs, then
// backward fields are propagated into the referenced records.
func (r *Resolver) Resolve(records []*record.Record) {
	byType := map[string][]*record.Record{}
	index := map[string]*record.Record{}
	for _, rec := range records {
		byType[rec.Type] = append(byType[rec.Type], rec)
		index[rec.ID()] = rec
	}

	for _, rec := range records {
		r.resolveForward(rec, records, byType)
	}
	for _, rec := range records {
		r.propagateBackward(rec, index)
	}
}

// resolveForward rewrites every configured forward field on rec from titles
// to slugs. Field order is sorted for deterministic logging.
func (r *Resolver) resolveForward(rec *record.Record, all []*record.Record, byType map[string][]*record.Record) {
	for _, field := range sortedKeys(r.cfg.Forward) {
		value, ok := rec.Fields[field]
		if !ok {
			continue
		}
		typ := r.cfg.Forward[field]
		candidates := byType[typ]
		if typ == TypeAny {
			candidates = all
		}

		if title, isString := value.(string); isString {
			target, found := r.matcher.BestMatch(title, candidates, r.cfg.MatchThreshold)
			if !found {
				r.warn("unresolved reference dropped",
					"record", rec.ID(), "field", field, "query", title)
				rec.DeleteField(field)
				continue
			}
			rec.SetField(field, target.Slug)
			continue
		}

		titles, ok := rec.StringsField(field)
		if !ok {
			continue
		}
		var slugs []string
		for _, title := range titles {
			target, found := r.matcher.BestMatch(title, candidates, r.cfg.MatchThreshold)
			if !found {
				r.warn("unresolved reference dropped",
					"record", rec.ID(), "field", field, "query", title)
				continue
			}
			slugs = append(slugs, target.Slug)
		}
		slugs = sortSlugs(dedupe(slugs))
		if len(slugs) == 0 {
			rec.DeleteField(field)
			continue
		}
		rec.SetField(field, slugs)
	}
}

// propagateBackward pushes rec's slug into the back-field of every record it
// forward-references, per each configured bidirectional group.
func (r *Resolver) propagateBackward(rec *record.Record, index map[string]*record.Record) {
	for _, group := range r.cfg.Backward {
		backField, ok := backFieldFor(group, rec.Type)
		if !ok {
			continue
		}
		for _, field := range sortedKeys(group) {
			targetType := group[field]
			slugs, ok := rec.StringsField(field)
			if !ok {
				continue
			}
			for _, slug := range slugs {
				target, ok := index[targetType+":"+slug]
				if !ok {
					continue
				}
				pushSlug(target, backField, rec.Slug)
			}
		}
	}
}

// backFieldFor returns the group field whose target type is typ, i.e. the
// field name used on the other side of the relationship.
func backFieldFor(group map[string]string, typ string) (string, bool) {
	for field, target := range group {
		if target == typ {
			return field, true
		}
	}
	return "", false
}

// pushSlug unions slug into the list under field. A pre-existing string
// value is treated as multi-valued and coerced into the list.
func pushSlug(rec *record.Record, field string, slug string) {
	existing, _ := rec.StringsField(field)
	rec.SetField(field, sortSlugs(dedupe(append(existing, slug))))
}

func dedupe(slugs []string) []string {
	seen := map[string]bool{}
	out := slugs[:0]
	for _, s := range slugs {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// sortSlugs orders slugs lexicographically, ignoring a leading hyphen.
func sortSlugs(slugs []string) []string {
	sort.Slice(slugs, func(i, j int) bool {
		return strings.TrimPrefix(slugs[i], "-") < strings.TrimPrefix(slugs[j], "-")
	})
	return slugs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
