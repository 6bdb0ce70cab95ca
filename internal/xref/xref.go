// Package xref rewrites inline markdown-style links inside free-text
// fields. Authors reference other records by title; the patcher resolves
// those titles to slugs and rewrites the link per a language-specific
// template. Unresolvable references degrade to plain text or are stripped,
// and each record's transient freshness marker is cleared once visited,
// which makes the pass a natural no-op for previously persisted content.
package xref

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// linkPattern captures [text](target) plus a leading whitespace run and one
// stray trailing close paren, a common authoring mistake that is swallowed.
// Image syntax and absolute or already-resolved targets are matched but left
// untouched in code, since RE2 has no lookaround to exclude them here.
var linkPattern = regexp.MustCompile(`(\s*)(!?)\[([^\]]*)\]\(([^)]+)\)(\s*\))?`)

// Patcher rewrites cross-references across a full batch.
type Patcher struct {
	cfg     *schema.Config
	matcher *fuzzy.Matcher
	logger  interfaces.Logger
}

// New returns a Patcher sharing the pipeline's fuzzy matcher.
func New(cfg *schema.Config, matcher *fuzzy.Matcher, logger interfaces.Logger) *Patcher {
	return &Patcher{cfg: cfg, matcher: matcher, logger: logger}
}

// Patch rewrites links in every markdown field of every fresh record and
// fresh translation sub-record, then clears their freshness markers.
func (p *Patcher) Patch(records []*record.Record) {
	for _, rec := range records {
		if rec.IsNew() && p.knownLanguage(rec.Lang) {
			p.patchFields(rec, rec.Lang, records)
		}
		rec.ClearNew()

		for lang, tr := range rec.Translations {
			if tr.IsNew() && p.knownLanguage(lang) {
				p.patchFields(tr, lang, records)
			}
			tr.ClearNew()
		}
	}
}

func (p *Patcher) patchFields(rec *record.Record, lang string, candidates []*record.Record) {
	for _, field := range p.cfg.MarkdownFields {
		v, ok := rec.Fields[field]
		if !ok {
			continue
		}
		rec.Fields[field] = record.VisitStrings(v, func(s string) string {
			return p.patchText(s, lang, candidates)
		})
	}
}

func (p *Patcher) patchText(text, lang string, candidates []*record.Record) string {
	return linkPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		leading, bang, linkText, target := groups[1], groups[2], groups[3], groups[4]

		// Images and absolute or already-resolved targets pass through.
		if bang == "!" || strings.HasPrefix(target, "http") || strings.HasPrefix(target, "/") {
			return match
		}

		// Targets resolve against canonical titles only, even inside
		// translated text. Authors write cross-references in the default
		// language; translated titles surface later through linkTitle and
		// typeName, not through resolution.
		owner, found := p.matcher.BestMatch(target, candidates, p.cfg.MatchThreshold)
		switch {
		case found && linkText != "":
			return leading + p.format(p.cfg.XrefFormats["link"], "", linkText, owner.Slug)
		case found:
			return leading + p.format(p.template(lang), p.typeName(owner, lang), p.linkTitle(owner, lang), owner.Slug)
		case linkText != "":
			return leading + linkText
		default:
			// Unresolved with no text: strip the construct and the
			// whitespace run preceding it.
			p.warn("unresolved cross-reference stripped", "target", target, "lang", lang)
			return ""
		}
	})
}

func (p *Patcher) template(lang string) string {
	if tmpl, ok := p.cfg.XrefFormats[lang]; ok {
		return tmpl
	}
	return p.cfg.XrefFormats[p.cfg.LanguageDefault]
}

// linkTitle synthesizes link text from the target's title, preferring the
// translation title for the language being patched.
func (p *Patcher) linkTitle(owner *record.Record, lang string) string {
	title := owner.Title
	if lang != p.cfg.LanguageDefault {
		if tr, ok := owner.Translations[lang]; ok && tr.Title != "" {
			title = tr.Title
		}
	}
	// Inside the template the title sits one paren deep, so its own parens
	// shift to brackets, alternating further down.
	return nestParens(title, 1)
}

func (p *Patcher) typeName(owner *record.Record, lang string) string {
	return strings.ToUpper(p.cfg.TypeNames(lang)[owner.Type])
}

func (p *Patcher) format(tmpl, typeName, title, slug string) string {
	return strings.NewReplacer(
		"{type}", typeName,
		"{title}", title,
		"{slug}", slug,
	).Replace(tmpl)
}

func (p *Patcher) knownLanguage(lang string) bool {
	for _, l := range p.cfg.LanguageAll {
		if l == lang {
			return true
		}
	}
	return false
}

// nestParens shifts parens and brackets to alternate by nesting depth,
// starting at level. At level 1, "(hello [world])" becomes "[hello (world)]".
func nestParens(text string, level int) string {
	var b strings.Builder
	for _, c := range text {
		switch c {
		case '(', '[':
			c = rune("(["[mod2(level)])
			level++
		case ')', ']':
			c = rune("])"[mod2(level)])
			level--
		}
		b.WriteRune(c)
	}
	return b.String()
}

func mod2(n int) int {
	return ((n % 2) + 2) % 2
}

func (p *Patcher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
