// Package language assigns a language code to extracted records. Authors
// rarely declare one, so detection runs over a corpus built from the
// record's free-text fields, with a weighted pass over high-signal fields
// overriding the broad guess when it is more confident.
package language

import (
	"regexp"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// nonLinguistic matches leaves that carry no language signal: URLs, email
// addresses, and bare filenames with a three-letter extension.
var nonLinguistic = regexp.MustCompile(`(?i)^(?:https?://\S+|[^\s@]+@[^\s@]+\.\S+|\S+\.[a-z]{3})$`)

// Fields that never contribute to the detection corpus.
var excludedKeys = map[string]bool{
	"date":                     true,
	"default-language-content": true,
}

// Tagger detects and assigns record languages for one resolved schema.
type Tagger struct {
	cfg      *schema.Config
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
	suffixes []string
	logger   interfaces.Logger
}

// New builds a Tagger whose detector candidates are the configured languages
// minus the omit list. With fewer than two candidates detection is moot and
// every record gets the default language.
func New(cfg *schema.Config, logger interfaces.Logger) *Tagger {
	t := &Tagger{
		cfg:      cfg,
		codes:    map[lingua.Language]string{},
		suffixes: cfg.LanguageSuffixes(),
		logger:   logger,
	}

	want := map[string]bool{}
	for _, code := range cfg.LanguageAll {
		want[code] = true
	}
	for _, code := range cfg.LanguageOmit {
		delete(want, code)
	}

	var candidates []lingua.Language
	for _, lang := range lingua.AllLanguages() {
		code := strings.ToLower(lang.IsoCode639_1().String())
		if want[code] {
			candidates = append(candidates, lang)
			t.codes[lang] = code
		}
	}
	if len(candidates) >= 2 {
		t.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			Build()
	}
	return t
}

// Tag sets rec.Lang unless the author already declared one.
func (t *Tagger) Tag(rec *record.Record) {
	if rec.Lang != "" {
		return
	}
	full, weighted := t.corpus(rec)

	lang, confidence := t.detect(full)
	if len(weighted) > t.cfg.MinWeightedCorpus {
		if wLang, wConfidence := t.detect(weighted); wConfidence > confidence {
			lang = wLang
		}
	}
	if lang == "" {
		lang = t.cfg.LanguageDefault
	}
	rec.Lang = lang
}

// corpus concatenates the record's title and string leaves, excluding
// identifier-like fields, language-suffixed keys, and non-linguistic tokens.
// The second return covers only the configured high-signal fields.
func (t *Tagger) corpus(rec *record.Record) (string, string) {
	var full, weighted []string
	if title := strings.TrimSpace(rec.Title); title != "" && linguistic(title) {
		full = append(full, title)
	}
	for _, key := range rec.FieldKeys() {
		if t.excluded(key) {
			continue
		}
		text := record.ConcatStrings(rec.Fields[key], linguistic)
		if strings.TrimSpace(text) == "" {
			continue
		}
		full = append(full, text)
		if contains(t.cfg.WeightedKeys, key) {
			weighted = append(weighted, text)
		}
	}
	return strings.Join(full, "\n"), strings.Join(weighted, "\n")
}

func (t *Tagger) excluded(key string) bool {
	if excludedKeys[key] {
		return true
	}
	for _, suffix := range t.suffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

func (t *Tagger) detect(text string) (string, float64) {
	if t.detector == nil || strings.TrimSpace(text) == "" {
		return "", 0
	}
	values := t.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "", 0
	}
	// Values arrive sorted by descending confidence.
	return t.codes[values[0].Language()], values[0].Value()
}

func linguistic(s string) bool {
	return !nonLinguistic.MatchString(strings.TrimSpace(s))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
