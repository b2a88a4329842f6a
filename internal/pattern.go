package internal

import (
	"regexp"
	"strings"
)

// paramSegment matches a well-formed {name} placeholder.
var paramSegment = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// routePattern is a compiled path template.
// Placeholders like {id} become capture groups; everything else matches
// literally. Patterns are anchored at both ends, so a template never
// absorbs trailing path segments.
type routePattern struct {
	raw    string
	re     *regexp.Regexp
	params []string
}

// NormalizePath canonicalizes a request or template path:
// repeated slashes collapse to one, a leading slash is guaranteed,
// and a single trailing slash is stripped (the root path stays "/").
// Empty input normalizes to "/". The function is idempotent.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(path) + 1)
	if path[0] != '/' {
		b.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(path[i])
	}

	out := b.String()
	if len(out) > 1 && out[len(out)-1] == '/' {
		out = out[:len(out)-1]
	}
	return out
}

// compilePattern turns a path template into an anchored regular expression
// plus the placeholder names in encounter order.
//
// A malformed placeholder (an unmatched "{") is not rejected: the brace is
// escaped as a literal, producing a pattern that compiles but will not match
// any normal request path. Silent, but consistent with treating templates
// as plain text outside of well-formed {name} segments.
func compilePattern(template string) (*routePattern, error) {
	template = NormalizePath(template)

	var (
		expr   strings.Builder
		params []string
		last   int
	)
	expr.WriteByte('^')

	for _, loc := range paramSegment.FindAllStringSubmatchIndex(template, -1) {
		expr.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		expr.WriteString(`([^/]+)`)
		params = append(params, template[loc[2]:loc[3]])
		last = loc[1]
	}
	expr.WriteString(regexp.QuoteMeta(template[last:]))
	expr.WriteByte('$')

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, err
	}

	return &routePattern{raw: template, re: re, params: params}, nil
}

// match tests a normalized request path against the pattern.
// On success it returns the captured parameter values zipped positionally
// with the placeholder names.
func (p *routePattern) match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	if len(p.params) == 0 {
		return nil, true
	}
	values := make(map[string]string, len(p.params))
	for i, name := range p.params {
		values[name] = m[i+1]
	}
	return values, true
}
