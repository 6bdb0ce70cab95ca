package language

import (
	"strings"
	"testing"

	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

func testConfig(t *testing.T) *schema.Config {
	t.Helper()
	cfg, err := schema.Resolve(map[string]any{
		"language-default":                 "en",
		"language-all":                     []any{"en", "es"},
		"language-detection-weighted-keys": []any{"summary"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return cfg
}

func TestTagDetectsSpanish(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.SetField("summary", "La huelga general es una forma de protesta en la que los trabajadores dejan de trabajar para exigir mejores condiciones laborales.")
	tagger.Tag(rec)
	if rec.Lang != "es" {
		t.Fatalf("detected %q, want es", rec.Lang)
	}
}

func TestTagDetectsEnglish(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.SetField("summary", "A general strike is a form of protest in which workers across industries stop working to demand better conditions.")
	tagger.Tag(rec)
	if rec.Lang != "en" {
		t.Fatalf("detected %q, want en", rec.Lang)
	}
}

func TestTagUsesTitleWhenFieldsAreSparse(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.Title = "La huelga general de los trabajadores contra las condiciones laborales injustas"
	rec.SetField("link", "https://example.org/page")
	tagger.Tag(rec)
	if rec.Lang != "es" {
		t.Fatalf("title must feed detection: %q", rec.Lang)
	}

	full, _ := tagger.corpus(rec)
	if !strings.Contains(full, "huelga general") {
		t.Fatalf("title missing from corpus: %q", full)
	}
}

func TestTagKeepsDeclaredLanguage(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.Lang = "es"
	rec.SetField("summary", "This text is clearly written in the English language, at length, with many words.")
	tagger.Tag(rec)
	if rec.Lang != "es" {
		t.Fatalf("declared language overwritten: %q", rec.Lang)
	}
}

func TestTagFallsBackToDefaultOnEmptyCorpus(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.SetField("link", "https://example.org/page")
	rec.SetField("contact", "person@example.org")
	rec.SetField("attachment", "photo.jpg")
	tagger.Tag(rec)
	if rec.Lang != "en" {
		t.Fatalf("fallback language: %q", rec.Lang)
	}
}

func TestCorpusExcludesSuffixedAndReservedKeys(t *testing.T) {
	tagger := New(testConfig(t), nil)
	rec := record.New()
	rec.SetField("summary", "keep this text")
	rec.SetField("summary-es", "texto que no debe entrar")
	rec.SetField("date", "2020-01-01")
	rec.SetField("default-language-content", "Nonviolent Action")

	full, weighted := tagger.corpus(rec)
	if strings.Contains(full, "texto") || strings.Contains(full, "2020") || strings.Contains(full, "Nonviolent") {
		t.Fatalf("excluded fields leaked into corpus: %q", full)
	}
	if weighted != "keep this text" {
		t.Fatalf("weighted corpus: %q", weighted)
	}
}

func TestTagSingleLanguageConfiguration(t *testing.T) {
	cfg, err := schema.Resolve(map[string]any{"language-default": "en"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	tagger := New(cfg, nil)
	rec := record.New()
	rec.SetField("summary", "Cualquier texto recibe el idioma por defecto cuando no hay candidatos.")
	tagger.Tag(rec)
	if rec.Lang != "en" {
		t.Fatalf("single-language config: %q", rec.Lang)
	}
}
