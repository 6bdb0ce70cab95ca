// Package slugify derives URL-safe identifiers from display titles. The
// algorithm is deliberately frozen: persisted document ids embed slugs, so
// any change here invalidates previously stored identifiers.
package slugify

import (
	"regexp"
	"strings"
	"sync"

	"github.com/mozillazg/go-unidecode"
)

var (
	patternMu sync.Mutex
	patterns  = map[string]*regexp.Regexp{}
)

// Slug lowercases, transliterates to ASCII, strips apostrophes, and
// collapses every remaining non-word run into a single hyphen. Characters in
// allow survive the collapse (e.g. ":" for composite document ids).
func Slug(s string, allow string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = strings.ReplaceAll(s, "'", "")
	return nonWordRun(allow).ReplaceAllString(s, "-")
}

func nonWordRun(allow string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patterns[allow]; ok {
		return re
	}
	re := regexp.MustCompile(`[^\w` + regexp.QuoteMeta(allow) + `]+`)
	patterns[allow] = re
	return re
}
