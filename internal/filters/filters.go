// Package filters holds the project-specific cleanup passes that run
// around the generic pipeline stages. Pre runs on freshly extracted,
// unmerged records: it normalizes editorial conventions (placeholder rows,
// template leftovers, key-module shorthand) into predictable shapes. Post
// runs on merged, relationship-resolved records: it derives bylines and
// resolves key-module references to slugs.
package filters

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/internal/slugify"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// KeyModules is the field gathering every "key-<plural>" shorthand list.
const KeyModules = "key-modules"

// keySplitter separates "Title - description" shorthand. Several dash
// variants appear in hand-authored content, including the Arabic tatweel,
// with or without spacing before the dash. Trailing space on the title
// capture is trimmed by the caller.
var keySplitter = regexp.MustCompile(`(?s)^(.+?)(?:[\]\[)(]*[-—–―ـ]\s+|\s+[-—–―ـ]\s+)(.+)$`)

// exampleWriteUp marks full-write-up fields still holding the template text.
var exampleWriteUp = regexp.MustCompile(`In a page \(500 words\) or less`)

// exampleTags is the sample tag set from the authoring template.
var exampleTags = map[string]bool{"corruption": true, "mining": true, "gender & sexuality": true}

// Filters applies the pre and post passes for one resolved schema.
type Filters struct {
	cfg     *schema.Config
	matcher *fuzzy.Matcher
	logger  interfaces.Logger
}

// New returns a Filters sharing the pipeline's fuzzy matcher.
func New(cfg *schema.Config, matcher *fuzzy.Matcher, logger interfaces.Logger) *Filters {
	return &Filters{cfg: cfg, matcher: matcher, logger: logger}
}

// Pre normalizes freshly extracted records in place. Previously persisted
// records pass through untouched.
func (f *Filters) Pre(records []*record.Record) {
	for _, rec := range records {
		if !rec.IsNew() {
			continue
		}
		if rec.Type == "person" {
			emails, _ := rec.StringsField("emails")
			rec.SetField("email-available", len(emails) > 0)
		}
		// Module typing and key-module shorthand are conventions of the
		// tool type group only.
		if f.cfg.IsToolType(rec.Type) {
			rec.SetField("module-type", moduleType(rec.DocumentTitle))
		}

		f.cleanLearnMore(rec)
		f.cleanRealWorldExamples(rec)
		f.cleanWriteUp(rec)
		f.cleanTags(rec)
		if f.cfg.IsToolType(rec.Type) {
			f.gatherKeyModules(rec)
		}
	}
}

func moduleType(documentTitle string) string {
	switch {
	case strings.Contains(documentTitle, "SNAPSHOT"):
		return "snapshot"
	case strings.Contains(documentTitle, "GALLERY"):
		return "gallery"
	default:
		return "full"
	}
}

// cleanLearnMore drops placeholder rows left over from the document
// template ("abc" titles, "url" links) and rows missing either field.
func (f *Filters) cleanLearnMore(rec *record.Record) {
	items, ok := rec.Fields["learn-more"].([]any)
	if !ok {
		return
	}
	var kept []any
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := entry["title"].(string)
		link, _ := entry["link"].(string)
		if title != "" && link != "" && title != "abc" && link != "url" {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		rec.DeleteField("learn-more")
		return
	}
	rec.SetField("learn-more", kept)
}

func (f *Filters) cleanRealWorldExamples(rec *record.Record) {
	items, ok := rec.Fields["real-world-examples"].([]any)
	if !ok {
		return
	}
	var kept []any
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		complete := true
		for _, key := range []string{"title", "link", "description"} {
			if s, _ := entry[key].(string); s == "" {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		rec.DeleteField("real-world-examples")
		return
	}
	rec.SetField("real-world-examples", kept)
}

func (f *Filters) cleanWriteUp(rec *record.Record) {
	if s, ok := rec.StringField("full-write-up"); ok && exampleWriteUp.MatchString(s) {
		rec.DeleteField("full-write-up")
	}
}

// cleanTags removes the untouched sample tag set and slugifies the rest.
// Tags are not checked for existence against any vocabulary.
func (f *Filters) cleanTags(rec *record.Record) {
	tags, ok := rec.StringsField("tags")
	if !ok || len(tags) == 0 {
		return
	}
	if len(tags) == 3 {
		sample := true
		for _, t := range tags {
			if !exampleTags[strings.ToLower(t)] {
				sample = false
				break
			}
		}
		if sample {
			rec.DeleteField("tags")
			return
		}
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = slugify.Slug(t, "")
	}
	rec.SetField("tags", out)
}

// gatherKeyModules folds every tool-type "key-<plural>" list into the
// key-modules map, splitting each entry into a [title, description] pair.
// Entries that do not split are dropped.
func (f *Filters) gatherKeyModules(rec *record.Record) {
	groups := map[string]any{}
	for _, spec := range f.cfg.Types {
		if !spec.Tool {
			continue
		}
		key := "key-" + spec.Many
		items, ok := rec.StringsField(key)
		if !ok {
			continue
		}
		var pairs []any
		for _, item := range items {
			m := keySplitter.FindStringSubmatch(item)
			if m == nil {
				f.warn("unsplittable key module entry", "record", rec.ID(), "field", key, "value", item)
				continue
			}
			pairs = append(pairs, []any{strings.TrimSpace(m[1]), m[2]})
		}
		if len(pairs) > 0 {
			groups[key] = pairs
		}
		rec.DeleteField(key)
	}
	if len(groups) > 0 {
		rec.SetField(KeyModules, groups)
	}
}

// Post derives bylines from resolved author slugs and attaches slugs to
// key-module pairs, using translated titles where available.
func (f *Filters) Post(records []*record.Record) {
	people := map[string]*record.Record{}
	byTitle := map[string]*record.Record{}
	var titles []string
	for _, rec := range records {
		if rec.Type == "person" {
			people[rec.Slug] = rec
		}
		if _, seen := byTitle[rec.Title]; !seen {
			byTitle[rec.Title] = rec
			titles = append(titles, rec.Title)
		}
		for _, tr := range rec.Translations {
			if tr.Title == "" {
				continue
			}
			if _, seen := byTitle[tr.Title]; !seen {
				byTitle[tr.Title] = rec
				titles = append(titles, tr.Title)
			}
		}
	}

	for _, rec := range records {
		f.addBylines(rec, people)
		f.resolveKeyModules(rec, rec.Lang, byTitle, titles)
		for lang, tr := range rec.Translations {
			f.resolveKeyModules(tr, lang, byTitle, titles)
		}
	}
}

// addBylines formats the authors list into a display byline per language,
// preferring each author's translated name.
func (f *Filters) addBylines(rec *record.Record, people map[string]*record.Record) {
	slugs, ok := rec.StringsField("authors")
	if !ok || len(slugs) == 0 {
		return
	}
	var authors []*record.Record
	for _, slug := range slugs {
		if p, ok := people[slug]; ok {
			authors = append(authors, p)
		}
	}
	if len(authors) == 0 {
		return
	}
	for _, lang := range f.cfg.LanguageAll {
		names := make([]string, len(authors))
		for i, p := range authors {
			names[i] = p.Title
			if tr, ok := p.Translations[lang]; ok && tr.Title != "" {
				names[i] = tr.Title
			}
		}
		byline := JoinList(lang, names)
		if lang == f.cfg.LanguageDefault {
			rec.SetField("byline", byline)
		} else if tr, ok := rec.Translations[lang]; ok {
			tr.SetField("byline", byline)
		}
	}
}

// resolveKeyModules appends the resolved slug to each [title, description]
// pair, and swaps in the translated title when patching a translation.
func (f *Filters) resolveKeyModules(rec *record.Record, lang string, byTitle map[string]*record.Record, titles []string) {
	groups, ok := rec.Fields[KeyModules].(map[string]any)
	if !ok {
		return
	}
	translated := lang != f.cfg.LanguageDefault
	for key, v := range groups {
		pairs, ok := v.([]any)
		if !ok {
			continue
		}
		for i, p := range pairs {
			pair, ok := p.([]any)
			if !ok || len(pair) < 2 {
				continue
			}
			title, _ := pair[0].(string)
			slug := ""
			matched, _, found := f.matcher.BestTitle(title, titles, f.cfg.MatchThreshold)
			if found {
				target := byTitle[matched]
				slug = target.Slug
				if translated {
					if tr, ok := target.Translations[lang]; ok && tr.Title != "" {
						title = tr.Title
					}
				}
			}
			pairs[i] = []any{title, pair[1], slug}
		}
		groups[key] = pairs
	}
}

// JoinList renders names as a human list in the conventions of lang, e.g.
// "A, B, and C" in English and "A, B y C" in Spanish.
func JoinList(lang string, names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	conj, oxford := conjunction(lang)
	if len(names) == 2 {
		return names[0] + " " + conj + " " + names[1]
	}
	head := strings.Join(names[:len(names)-1], ", ")
	sep := " "
	if oxford {
		sep = ", "
	}
	return head + sep + conj + " " + names[len(names)-1]
}

func conjunction(lang string) (string, bool) {
	base, _ := language.Make(lang).Base()
	switch base.String() {
	case "es":
		return "y", false
	case "pt":
		return "e", false
	case "fr":
		return "et", false
	case "ar":
		return "و", false
	default:
		return "and", true
	}
}

func (f *Filters) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
