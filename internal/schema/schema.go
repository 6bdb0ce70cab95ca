// Package schema resolves the run-time content schema from the parsed
// markup config document: type tables, language tables, rename tables,
// relationship specifications, and the expressions governing which source
// documents count as published. The resolved Config is immutable for the
// duration of a pipeline run and passed explicitly into every stage.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultMatchThreshold is the fuzzy similarity floor for relationship
	// and cross-reference resolution. Inherited from the source corpus;
	// overridable via the config document, never inferred.
	DefaultMatchThreshold = 90
	// DefaultRenameThreshold is the floor for the historical-rename pre-pass.
	DefaultRenameThreshold = 90
	// DefaultMinWeightedCorpus is the minimum weighted-corpus length, in
	// characters, before a weighted language guess is attempted.
	DefaultMinWeightedCorpus = 20

	defaultPublishedRegex  = `\bDONE\b`
	defaultIgnoreRegex     = `^$`
	defaultPluralSeparator = `(?:\s*,|\s+and|\s+&)\s+`
)

// ErrBackwardFieldConflict flags a backward group configuration where one
// field name maps to two different target types.
var ErrBackwardFieldConflict = errors.New("schema: backward relationship field mapped to conflicting types")

// TypeSpec describes one content type: its singular key, plural name, and
// per-language display names. Tool marks types declared under "types-tool",
// the group eligible for module-type tagging and key-module gathering.
type TypeSpec struct {
	One   string
	Many  string
	Names map[string]string
	Tool  bool
}

// Config is the resolved content schema for one pipeline run.
type Config struct {
	LanguageDefault string
	LanguageAll     []string
	LanguageOmit    []string
	WeightedKeys    []string

	PublishedFilename *regexp.Regexp
	IgnoreFolder      *regexp.Regexp

	// Synonyms renames keys old->new; PluralKeys maps plural->singular.
	// Both include per-language suffixed variants after resolution.
	Synonyms        map[string]string
	PluralKeys      map[string]string
	PluralSeparator *regexp.Regexp

	MarkdownFields []string
	SearchFields   []string

	Types           []TypeSpec
	PluralForType   map[string]string
	SingularForType map[string]string

	// Forward maps relationship fields to target types ("any" allowed).
	// Backward holds the two-way groups, each a field->type map.
	Forward  map[string]string
	Backward []map[string]string

	// RenamedTitles maps historical titles to their current form.
	RenamedTitles map[string]string

	// XrefFormats maps a language code (or the special key "link") to the
	// template used when rewriting cross-references.
	XrefFormats map[string]string

	MatchThreshold    float64
	RenameThreshold   float64
	MinWeightedCorpus int

	// Raw preserves the parsed config document for persistence as config:api.
	Raw map[string]any
}

// Resolve builds a Config from the parsed config document, applying defaults
// and deriving the lookup tables later stages depend on.
func Resolve(doc map[string]any) (*Config, error) {
	c := &Config{
		LanguageDefault:   stringValue(doc, "language-default", "en"),
		LanguageAll:       stringList(doc, "language-all"),
		LanguageOmit:      stringList(doc, "language-omit"),
		WeightedKeys:      stringList(doc, "language-detection-weighted-keys"),
		Synonyms:          stringMap(doc, "synonyms"),
		PluralKeys:        stringMap(doc, "plural-keys"),
		MarkdownFields:    stringList(doc, "markdown"),
		SearchFields:      stringList(doc, "search"),
		Forward:           map[string]string{},
		PluralForType:     map[string]string{},
		SingularForType:   map[string]string{},
		RenamedTitles:     map[string]string{},
		XrefFormats:       map[string]string{},
		MatchThreshold:    floatValue(doc, "match-threshold", DefaultMatchThreshold),
		RenameThreshold:   floatValue(doc, "rename-threshold", DefaultRenameThreshold),
		MinWeightedCorpus: intValue(doc, "weighted-corpus-minimum", DefaultMinWeightedCorpus),
		Raw:               doc,
	}
	if len(c.LanguageAll) == 0 {
		c.LanguageAll = []string{c.LanguageDefault}
	}

	var err error
	if c.PublishedFilename, err = compileValue(doc, "published-filename-regex", defaultPublishedRegex); err != nil {
		return nil, err
	}
	if c.IgnoreFolder, err = compileValue(doc, "ignore-folder-regex", defaultIgnoreRegex); err != nil {
		return nil, err
	}
	if c.PluralSeparator, err = compileValue(doc, "plural-separator-regex", defaultPluralSeparator); err != nil {
		return nil, err
	}

	c.resolveTypes(doc)
	c.resolveRelationships(doc)
	c.resolveRenames(doc)
	c.resolveXrefFormats(doc)
	c.addLanguageSuffixes()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the structural invariants later stages assume.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LanguageDefault, validation.Required),
		validation.Field(&c.LanguageAll, validation.Required),
		validation.Field(&c.MatchThreshold, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&c.RenameThreshold, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&c.MinWeightedCorpus, validation.Min(0)),
	); err != nil {
		return err
	}

	if !contains(c.LanguageAll, c.LanguageDefault) {
		return fmt.Errorf("schema: language-all %v does not include default %q", c.LanguageAll, c.LanguageDefault)
	}

	// A field appearing in two backward groups with different target types
	// has no defined propagation order; reject outright.
	seen := map[string]string{}
	for _, group := range c.Backward {
		for field, typ := range group {
			if prev, ok := seen[field]; ok && prev != typ {
				return fmt.Errorf("%w: %q maps to %q and %q", ErrBackwardFieldConflict, field, prev, typ)
			}
			seen[field] = typ
		}
	}
	return nil
}

// TypeNames returns the display name for each singular type in lang,
// falling back to the singular key itself.
func (c *Config) TypeNames(lang string) map[string]string {
	names := make(map[string]string, len(c.Types))
	for _, t := range c.Types {
		name := t.One
		if display, ok := t.Names[lang]; ok {
			name = display
		}
		names[t.One] = name
	}
	return names
}

// IsToolType reports whether typ was declared in the tool type group.
func (c *Config) IsToolType(typ string) bool {
	for _, t := range c.Types {
		if t.One == typ {
			return t.Tool
		}
	}
	return false
}

// LanguageSuffixes returns the "-xx" suffixes for every configured language.
func (c *Config) LanguageSuffixes() []string {
	out := make([]string, len(c.LanguageAll))
	for i, lang := range c.LanguageAll {
		out[i] = "-" + lang
	}
	return out
}

func (c *Config) resolveTypes(doc map[string]any) {
	for key, value := range doc {
		if !strings.HasPrefix(key, "types-") {
			continue
		}
		items, ok := value.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			spec := TypeSpec{Names: map[string]string{}, Tool: key == "types-tool"}
			for k, v := range entry {
				s, ok := v.(string)
				if !ok {
					continue
				}
				switch k {
				case "one":
					spec.One = s
				case "many":
					spec.Many = s
				default:
					spec.Names[k] = s
				}
			}
			if spec.One == "" {
				continue
			}
			c.Types = append(c.Types, spec)
			c.PluralForType[spec.One] = spec.Many
			c.SingularForType[spec.Many] = spec.One
		}
	}
}

func (c *Config) resolveRelationships(doc map[string]any) {
	for key, value := range doc {
		oneWay := strings.HasPrefix(key, "one-way")
		twoWay := strings.HasPrefix(key, "two-way")
		if !oneWay && !twoWay {
			continue
		}
		group := stringMapValue(value)
		if len(group) == 0 {
			continue
		}
		for field, typ := range group {
			c.Forward[field] = typ
		}
		if twoWay {
			c.Backward = append(c.Backward, group)
		}
	}
}

func (c *Config) resolveRenames(doc map[string]any) {
	items, ok := doc["renamed-modules"].([]any)
	if !ok {
		return
	}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		oldTitle, _ := entry["old"].(string)
		newTitle, _ := entry["new"].(string)
		if oldTitle != "" && newTitle != "" {
			c.RenamedTitles[oldTitle] = newTitle
		}
	}
}

func (c *Config) resolveXrefFormats(doc map[string]any) {
	for _, lang := range c.LanguageAll {
		c.XrefFormats[lang] = "(see: [{type}: {title}](/tool/{slug})"
	}
	c.XrefFormats["link"] = "[{title}](/tool/{slug})"
	for k, v := range stringMap(doc, "xref-format-strings") {
		c.XrefFormats[k] = v
	}
}

// addLanguageSuffixes mirrors every synonym and plural-key entry once per
// configured language so suffixed keys transform the same way unsuffixed
// ones do ("aka-es" -> "also-known-as-es").
func (c *Config) addLanguageSuffixes() {
	for _, lang := range c.LanguageAll {
		for k, v := range snapshot(c.Synonyms) {
			c.Synonyms[k+"-"+lang] = v + "-" + lang
		}
		for k, v := range snapshot(c.PluralKeys) {
			c.PluralKeys[k+"-"+lang] = v + "-" + lang
		}
	}
}

func snapshot(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringValue(doc map[string]any, key, fallback string) string {
	if s, ok := doc[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatValue(doc map[string]any, key string, fallback float64) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func intValue(doc map[string]any, key string, fallback int) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func compileValue(doc map[string]any, key, fallback string) (*regexp.Regexp, error) {
	expr := stringValue(doc, key, fallback)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", key, err)
	}
	return re, nil
}

func stringList(doc map[string]any, key string) []string {
	switch v := doc[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func stringMap(doc map[string]any, key string) map[string]string {
	return stringMapValue(doc[key])
}

func stringMapValue(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
