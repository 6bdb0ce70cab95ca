// Package archieml implements a tolerant parser for the lightweight
// key/value markup used by hand-authored source documents. It supports
// plain key: value pairs, multiline values terminated by :end, nested
// {scope} blocks, [array] blocks holding either bulleted string items or
// repeated-key objects, and :skip/:endskip regions. Malformed input never
// produces an error; unparseable lines are ignored best-effort.
package archieml

import (
	"regexp"
	"strings"
)

var (
	keyLine     = regexp.MustCompile(`^\s*([A-Za-z0-9_.-]+)[ \t]*:[ \t]*(.*)$`)
	scopeLine   = regexp.MustCompile(`^\s*\{[ \t]*([A-Za-z0-9_.-]*)[ \t]*\}\s*$`)
	arrayLine   = regexp.MustCompile(`^\s*\[[ \t]*([A-Za-z0-9_.-]*)[ \t]*\]\s*$`)
	bulletLine  = regexp.MustCompile(`^\s*\*[ \t]*(.*)$`)
	commentTag  = regexp.MustCompile(`\[[a-z]\]`)
	commentBody = regexp.MustCompile(`(?m)^\[[a-z]\].+$`)
)

// Parse turns raw markup text into a nested map. Top-level keys are
// lowercased (word-processor exports capitalize them unpredictably) and keys
// with empty values are dropped.
func Parse(text string) map[string]any {
	parsed := parseLines(preprocess(text))

	out := make(map[string]any, len(parsed))
	for k, v := range parsed {
		if isEmptyValue(v) {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

// preprocess strips carriage returns and collaborative-editor comment
// annotations ([a], [b], ...) before parsing.
func preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = commentBody.ReplaceAllString(text, "")
	return commentTag.ReplaceAllString(text, "")
}

type parser struct {
	root map[string]any

	// scope is the object new keys land in; root unless a {scope} is open.
	scope map[string]any

	// array state
	arrayKey    string
	array       []any
	arrayFirst  string         // first key seen, delimits objects
	arrayObject map[string]any // current object being accumulated

	// multiline state
	lastTarget map[string]any
	lastKey    string
	buffer     []string

	skipping bool
}

func parseLines(text string) map[string]any {
	p := &parser{root: map[string]any{}}
	p.scope = p.root

	for _, line := range strings.Split(text, "\n") {
		p.consume(line)
	}
	p.flushArray()
	return p.root
}

func (p *parser) consume(line string) {
	trimmed := strings.TrimSpace(line)

	if p.skipping {
		if strings.EqualFold(trimmed, ":endskip") {
			p.skipping = false
		}
		return
	}

	switch {
	case strings.EqualFold(trimmed, ":skip"):
		p.skipping = true
	case strings.EqualFold(trimmed, ":end"):
		p.endMultiline()
	case scopeLine.MatchString(line):
		p.flushArray()
		p.openScope(scopeLine.FindStringSubmatch(line)[1])
	case arrayLine.MatchString(line):
		p.flushArray()
		p.openArray(arrayLine.FindStringSubmatch(line)[1])
	case p.array != nil && bulletLine.MatchString(line):
		p.array = append(p.array, bulletLine.FindStringSubmatch(line)[1])
		p.resetMultiline()
	case keyLine.MatchString(line):
		m := keyLine.FindStringSubmatch(line)
		p.setKey(m[1], m[2])
	default:
		// Candidate continuation for a multiline value; only kept when a
		// later :end arrives.
		if p.lastKey != "" {
			p.buffer = append(p.buffer, line)
		}
	}
}

func (p *parser) openScope(path string) {
	p.resetMultiline()
	if path == "" {
		p.scope = p.root
		return
	}
	p.scope = ensurePath(p.root, strings.Split(path, "."))
}

func (p *parser) openArray(path string) {
	p.resetMultiline()
	if path == "" {
		// bare [] closes the current array; already flushed by caller
		p.arrayKey = ""
		p.array = nil
		return
	}
	p.arrayKey = path
	p.array = []any{}
	p.arrayFirst = ""
	p.arrayObject = nil
}

func (p *parser) flushArray() {
	if p.array == nil {
		return
	}
	if p.arrayObject != nil {
		p.array = append(p.array, p.arrayObject)
		p.arrayObject = nil
	}
	parts := strings.Split(p.arrayKey, ".")
	target := ensurePath(p.root, parts[:len(parts)-1])
	target[parts[len(parts)-1]] = p.array
	p.array = nil
	p.arrayKey = ""
	p.arrayFirst = ""
}

func (p *parser) setKey(key, value string) {
	value = strings.TrimSpace(value)

	if p.array != nil {
		if p.arrayFirst == "" {
			p.arrayFirst = key
		}
		if key == p.arrayFirst && p.arrayObject != nil {
			p.array = append(p.array, p.arrayObject)
			p.arrayObject = nil
		}
		if p.arrayObject == nil {
			p.arrayObject = map[string]any{}
		}
		p.arrayObject[key] = value
		p.lastTarget, p.lastKey = p.arrayObject, key
		p.buffer = nil
		return
	}

	target := p.scope
	parts := strings.Split(key, ".")
	if len(parts) > 1 {
		target = ensurePath(p.scope, parts[:len(parts)-1])
		key = parts[len(parts)-1]
	}
	target[key] = value
	p.lastTarget, p.lastKey = target, key
	p.buffer = nil
}

// endMultiline folds buffered lines into the last seen key on :end.
func (p *parser) endMultiline() {
	if p.lastKey == "" || p.lastTarget == nil {
		return
	}
	head, _ := p.lastTarget[p.lastKey].(string)
	parts := append([]string{head}, p.buffer...)
	p.lastTarget[p.lastKey] = strings.TrimSpace(strings.Join(parts, "\n"))
	p.resetMultiline()
}

func (p *parser) resetMultiline() {
	p.lastTarget = nil
	p.lastKey = ""
	p.buffer = nil
}

func ensurePath(root map[string]any, parts []string) map[string]any {
	current := root
	for _, part := range parts {
		if part == "" {
			continue
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	return current
}

func isEmptyValue(v any) bool {
	switch value := v.(type) {
	case string:
		return value == ""
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	default:
		return v == nil
	}
}
