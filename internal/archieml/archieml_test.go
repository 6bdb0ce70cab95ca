package archieml

import (
	"reflect"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	got := Parse("Tactic: General Strike\nsummary: Everyone stops working.\nempty:\n")
	want := map[string]any{
		"tactic":  "General Strike",
		"summary": "Everyone stops working.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestParseMultilineEnd(t *testing.T) {
	text := "description: first line\nsecond line\n\nthird line\n:end\nother: x\n"
	got := Parse(text)
	if got["description"] != "first line\nsecond line\n\nthird line" {
		t.Fatalf("multiline: %q", got["description"])
	}
	if got["other"] != "x" {
		t.Fatalf("key after :end: %q", got["other"])
	}
}

func TestParseDanglingLinesDroppedWithoutEnd(t *testing.T) {
	got := Parse("summary: short\nthis line has no terminator\n")
	if got["summary"] != "short" {
		t.Fatalf("buffered lines leaked into value: %q", got["summary"])
	}
}

func TestParseScopes(t *testing.T) {
	text := "{meta}\nauthor: Jane\n{}\ntop: yes\n"
	got := Parse(text)
	meta, ok := got["meta"].(map[string]any)
	if !ok || meta["author"] != "Jane" {
		t.Fatalf("scope: %#v", got)
	}
	if got["top"] != "yes" {
		t.Fatalf("scope reset: %#v", got)
	}
}

func TestParseObjectArrays(t *testing.T) {
	text := "[learn-more]\ntitle: One\nlink: http://one\ntitle: Two\nlink: http://two\n[]\n"
	got := Parse(text)
	items, ok := got["learn-more"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("array: %#v", got)
	}
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	if first["title"] != "One" || second["link"] != "http://two" {
		t.Fatalf("array objects: %#v %#v", first, second)
	}
}

func TestParseBulletedArrays(t *testing.T) {
	text := "[key-tactics]\n* Strike - refuse to work\n* Boycott - refuse to buy\n[]\n"
	got := Parse(text)
	items, ok := got["key-tactics"].([]any)
	if !ok {
		t.Fatalf("bulleted array: %#v", got)
	}
	want := []any{"Strike - refuse to work", "Boycott - refuse to buy"}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("got %#v want %#v", items, want)
	}
}

func TestParseStripsEditorComments(t *testing.T) {
	text := "tactic: Boycott[a]\n[b]some reviewer note\nsummary: Refuse to buy.\n"
	got := Parse(text)
	if got["tactic"] != "Boycott" {
		t.Fatalf("inline comment survived: %q", got["tactic"])
	}
	if got["summary"] != "Refuse to buy." {
		t.Fatalf("comment body broke following keys: %#v", got)
	}
}

func TestParseSkipBlocks(t *testing.T) {
	text := ":skip\nhidden: yes\n:endskip\nvisible: yes\n"
	got := Parse(text)
	if _, ok := got["hidden"]; ok {
		t.Fatalf("skip block leaked: %#v", got)
	}
	if got["visible"] != "yes" {
		t.Fatalf("content after :endskip lost: %#v", got)
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{"", "::::", "[", "{", "[]\n{}\n:end\n", "\x00\xff"}
	for _, in := range inputs {
		_ = Parse(in)
	}
}
