// Package fuzzy resolves free-form titles against canonical record titles.
// Editors type relationship values by hand, so punctuation, word order, and
// small typos must not break resolution. Scores are token-set similarity on
// a 0-100 scale; anything below the configured threshold is a miss, never a
// silent guess.
package fuzzy

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// Match is one scored candidate.
type Match struct {
	Title string
	Score float64
}

// Matcher scores queries against candidate sets, applying the historical
// rename table as a pre-pass so references to old titles still resolve.
type Matcher struct {
	renames         map[string]string
	renameThreshold float64
	logger          interfaces.Logger

	// Normalized candidate sets are cached per content hash; the same list
	// of titles is scored thousands of times during relationship passes.
	cache map[uint64][]candidate

	// One warning per distinct renamed query keeps run logs readable.
	warned map[string]bool
}

type candidate struct {
	title string
	norm  string
}

// New builds a Matcher. renames maps historical titles to current ones and
// may be nil; logger may be nil.
func New(renames map[string]string, renameThreshold float64, logger interfaces.Logger) *Matcher {
	return &Matcher{
		renames:         renames,
		renameThreshold: renameThreshold,
		logger:          logger,
		cache:           map[uint64][]candidate{},
		warned:          map[string]bool{},
	}
}

// Score returns the token-set similarity of two titles on a 0-100 scale.
// Titles with no letters or digits score zero against everything.
func Score(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return strutil.Similarity(na, nb, metrics.NewSorensenDice()) * 100
}

// BestMatch resolves query against records by title. It returns the winning
// record and true when the best score reaches threshold.
func (m *Matcher) BestMatch(query string, records []*record.Record, threshold float64) (*record.Record, bool) {
	titles := make([]string, len(records))
	for i, rec := range records {
		titles[i] = rec.Title
	}
	title, _, ok := m.BestTitle(query, titles, threshold)
	if !ok {
		return nil, false
	}
	for _, rec := range records {
		if rec.Title == title {
			return rec, true
		}
	}
	return nil, false
}

// BestTitle resolves query against a plain title list, returning the winning
// title and its score. Used directly by the match probe.
func (m *Matcher) BestTitle(query string, titles []string, threshold float64) (string, float64, bool) {
	if len(titles) == 0 {
		return "", 0, false
	}
	query = m.applyRenames(query)
	queryNorm := normalize(query)
	if queryNorm == "" {
		return "", 0, false
	}

	best := Match{Score: -1}
	for _, cand := range m.candidates(titles) {
		if cand.norm == "" {
			continue
		}
		score := strutil.Similarity(queryNorm, cand.norm, metrics.NewSorensenDice()) * 100
		if score > best.Score {
			best = Match{Title: cand.title, Score: score}
		}
	}
	if best.Score < threshold {
		return best.Title, best.Score, false
	}
	return best.Title, best.Score, true
}

// applyRenames maps a query matching a historical title to its current form.
func (m *Matcher) applyRenames(query string) string {
	if len(m.renames) == 0 {
		return query
	}
	for old, current := range m.renames {
		if Score(query, old) >= m.renameThreshold {
			if m.logger != nil && !m.warned[query] {
				m.warned[query] = true
				m.logger.Warn("stale reference to renamed record", "query", query, "current", current)
			}
			return current
		}
	}
	return query
}

func (m *Matcher) candidates(titles []string) []candidate {
	key := contentHash(titles)
	if cached, ok := m.cache[key]; ok {
		return cached
	}
	out := make([]candidate, len(titles))
	for i, title := range titles {
		out[i] = candidate{title: title, norm: normalize(title)}
	}
	m.cache[key] = out
	return out
}

func contentHash(titles []string) uint64 {
	h := fnv.New64a()
	for _, title := range titles {
		h.Write([]byte(title))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// normalize produces the token-set form: lowercase letter-and-digit tokens
// in any script, deduplicated and sorted, joined with single spaces.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	seen := map[string]bool{}
	tokens := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
