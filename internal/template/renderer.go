// internal/template/renderer.go
package template

import (
	"regexp"
	"sort"
	"strings"
)

// Token syntax: #_NAME where NAME is uppercase letters, digits or
// underscores.
var tokenPattern = regexp.MustCompile(`#_[A-Z0-9_]+`)

// Scope is one named source of placeholder values. Scopes are applied in
// the order given to Render, each pass consuming the previous pass's output.
type Scope struct {
	Name   string
	Values map[string]string
}

// Render substitutes #_NAME tokens in tmpl using the given scopes in order
// (location, then event, then booking for dispatch mail). A token mapped in
// the current scope is replaced everywhere it occurs; unmapped tokens pass
// through unchanged so a later scope (or nobody) can resolve them. When more
// than one scope maps the same name the innermost (last listed) scope wins.
// Render never fails and never mutates its inputs; replacement values are
// inserted literally, with no recursive expansion within a pass and no
// escaping.
func Render(tmpl string, scopes ...Scope) string {
	out := tmpl
	for i, scope := range scopes {
		out = applyScope(out, scope, scopes[i+1:])
	}
	return out
}

// applyScope runs one substitution pass. Names also mapped by a later scope
// are left for that scope, which is what gives inner scopes precedence.
func applyScope(tmpl string, scope Scope, inner []Scope) string {
	if len(scope.Values) == 0 || !strings.Contains(tmpl, "#_") {
		return tmpl
	}

	// Replacement sites are located against the input before any of them is
	// applied, so a value containing #_ cannot be re-expanded by another
	// token of the same pass.
	type span struct {
		start, end int
		value      string
	}
	var spans []span
	for _, loc := range tokenPattern.FindAllStringIndex(tmpl, -1) {
		name := tmpl[loc[0]+2 : loc[1]]
		key, ok := resolve(scope.Values, name)
		if !ok || shadowed(key, inner) {
			continue
		}
		spans = append(spans, span{
			start: loc[0],
			end:   loc[0] + 2 + len(key),
			value: scope.Values[key],
		})
	}
	if len(spans) == 0 {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	pos := 0
	for _, s := range spans {
		if s.start < pos {
			continue
		}
		b.WriteString(tmpl[pos:s.start])
		b.WriteString(s.value)
		pos = s.end
	}
	b.WriteString(tmpl[pos:])
	return b.String()
}

// resolve finds the scope key matching a token name. The token regexp is
// greedy, so #_EVENTNAMES matches as one token even when only EVENTNAME is
// mapped; fall back to the longest mapped prefix, leaving the tail in place.
func resolve(values map[string]string, name string) (string, bool) {
	if _, ok := values[name]; ok {
		return name, true
	}
	var keys []string
	for k := range values {
		if strings.HasPrefix(name, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys[0], true
}

func shadowed(key string, inner []Scope) bool {
	for _, s := range inner {
		if _, ok := s.Values[key]; ok {
			return true
		}
	}
	return false
}
