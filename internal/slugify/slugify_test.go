package slugify

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		in    string
		allow string
		want  string
	}{
		// Apostrophes collapse before non-word runs do.
		{"Women's Rights", "", "womens-rights"},
		{"Nonviolent Action", "", "nonviolent-action"},
		{"Acción No Violenta", "", "accion-no-violenta"},
		{"  spaced   out  ", "", "-spaced-out-"},
		{"tactic:General Strike", ":", "tactic:general-strike"},
		{"Çağrı & Ünal", "", "cagri-unal"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in, tc.allow); got != tc.want {
			t.Fatalf("Slug(%q, %q) = %q, want %q", tc.in, tc.allow, got, tc.want)
		}
	}
}

func TestSlugIsIdempotent(t *testing.T) {
	once := Slug("Jiu-Jitsu (the gentle art)", "")
	twice := Slug(once, "")
	if once != twice {
		t.Fatalf("re-slugification changed %q to %q", once, twice)
	}
}

func TestSlugIsPureFunctionOfTitle(t *testing.T) {
	a := Slug("Divestment Campaign", "")
	b := Slug("Divestment Campaign", "")
	if a != b {
		t.Fatalf("same title produced %q and %q", a, b)
	}
}
