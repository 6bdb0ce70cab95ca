package translate

import (
	"reflect"
	"testing"

	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

func testMerger(t *testing.T) *Merger {
	t.Helper()
	cfg, err := schema.Resolve(map[string]any{
		"language-default": "en",
		"language-all":     []any{"en", "es"},
		"types-tool": []any{
			map[string]any{"one": "tactic", "many": "tactics"},
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return New(cfg, fuzzy.New(nil, cfg.RenameThreshold, nil), nil)
}

func canonical(title string) *record.Record {
	rec := record.New()
	rec.Type = "tactic"
	rec.Title = title
	rec.Slug = "nonviolent-action"
	rec.Lang = "en"
	return rec
}

func TestMergeAbsorbsTranslatedRecord(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	translated := record.New()
	translated.Type = "tactic"
	translated.Title = "Acción No Violenta"
	translated.Lang = "es"
	translated.SetField(KeyDefaultLanguageContent, "Nonviolent Action")

	out := m.Merge([]*record.Record{primary, translated})
	if len(out) != 1 || out[0] != primary {
		t.Fatalf("merge output: %#v", out)
	}
	tr, ok := primary.Translations["es"]
	if !ok || tr.Title != "Acción No Violenta" {
		t.Fatalf("absorbed translation: %#v", primary.Translations)
	}
	if _, present := tr.Field(KeyDefaultLanguageContent); present {
		t.Fatalf("pointer field must be consumed")
	}
}

func TestMergeDropsOrphanedTranslation(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	orphan := record.New()
	orphan.Type = "tactic"
	orphan.Title = "Huelga General"
	orphan.Lang = "es"
	orphan.SetField(KeyDefaultLanguageContent, "Completely Unrelated Title")

	out := m.Merge([]*record.Record{primary, orphan})
	if len(out) != 1 {
		t.Fatalf("merge output: %d records", len(out))
	}
	if len(primary.Translations) != 0 {
		t.Fatalf("orphan should not attach: %#v", primary.Translations)
	}
}

func TestMergeDropsTranslationWithoutPointer(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	stray := record.New()
	stray.Type = "tactic"
	stray.Title = "Nonviolent Action"
	stray.Lang = "es"

	out := m.Merge([]*record.Record{primary, stray})
	if len(out) != 1 {
		t.Fatalf("merge output: %d records", len(out))
	}
	if len(primary.Translations) != 0 {
		t.Fatalf("pointerless record must not attach by title: %#v", primary.Translations)
	}
}

func TestMergePromotesSuffixedKeys(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	primary.SetField("summary", "old english summary")
	primary.SetField("summary-en", "new english summary")
	primary.SetField("summary-es", "resumen en español")
	primary.SetField("title-es", "Acción No Violenta")

	m.Merge([]*record.Record{primary})

	if v, _ := primary.StringField("summary"); v != "new english summary" {
		t.Fatalf("default-language promotion: %q", v)
	}
	for _, key := range []string{"summary-en", "summary-es", "title-es"} {
		if _, present := primary.Field(key); present {
			t.Fatalf("suffixed key %q survived", key)
		}
	}
	tr := primary.Translations["es"]
	if tr == nil || tr.Title != "Acción No Violenta" {
		t.Fatalf("translation title: %#v", tr)
	}
	if v, _ := tr.StringField("summary"); v != "resumen en español" {
		t.Fatalf("translation summary: %q", v)
	}
}

func TestMergeDeepMergesMapValues(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	tr := primary.Translation("es")
	tr.SetField("meta", map[string]any{"existing": "keep", "shared": "old"})
	primary.SetField("meta-es", map[string]any{"shared": "new", "added": "yes"})

	m.Merge([]*record.Record{primary})

	got, _ := tr.Field("meta")
	want := map[string]any{"existing": "keep", "shared": "new", "added": "yes"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deep merge: %#v", got)
	}
}

func TestMergeSeedsTranslationMapFromCanonical(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	primary.SetField("meta", map[string]any{"kept": "default", "shared": "default"})
	primary.SetField("meta-es", map[string]any{"shared": "es"})

	m.Merge([]*record.Record{primary})

	tr := primary.Translations["es"]
	if tr == nil {
		t.Fatalf("translation not created")
	}
	got, _ := tr.Field("meta")
	want := map[string]any{"kept": "default", "shared": "es"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("canonical subkeys must survive: %#v", got)
	}
	if v, _ := primary.Field("meta"); !reflect.DeepEqual(v, map[string]any{"kept": "default", "shared": "default"}) {
		t.Fatalf("canonical map mutated: %#v", v)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	primary.SetField("summary-es", "resumen")
	once := m.Merge([]*record.Record{primary})

	before := once[0].Body()
	twice := m.Merge(once)
	if len(twice) != 1 || !reflect.DeepEqual(twice[0].Body(), before) {
		t.Fatalf("second merge changed output")
	}
}

func TestMergeNeverKeepsOwnLanguageTranslation(t *testing.T) {
	m := testMerger(t)
	primary := canonical("Nonviolent Action")
	primary.Translation("en").SetField("summary", "stray")

	m.Merge([]*record.Record{primary})
	if _, present := primary.Translations["en"]; present {
		t.Fatalf("translations must not contain the record's own language")
	}
}
