// Package pathmatch compiles declarative path templates into an enumeration
// glob and a metadata-extracting matcher.
//
// A template is a slash-separated path in which each segment may mix literal
// text with tokens:
//
//	*        one run of non-separator characters
//	**       one or more characters, may span separators
//	{name}   like *, but captured under the given name
//
// Matching is anchored, case-insensitive, and ASCII. Templates and candidate
// paths both use forward slashes regardless of host platform.
package pathmatch

import (
	"fmt"
	"regexp"
	"strings"
)

// token grammar: a variable like {protocol}, or a glob. Order matters so that
// ** is consumed before *.
var tokenRe = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}|\*\*|\*`)

// varRe finds only variable tokens, for glob derivation.
var varRe = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// PatternError reports a malformed path template. It is always raised at
// compile time; a compiled Pattern never fails during matching.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid path template %q: %s", e.Pattern, e.Reason)
}

// Pattern is a compiled path template.
type Pattern struct {
	raw  string
	expr *regexp.Regexp // anchored matcher with named captures
	glob *regexp.Regexp // anchored matcher with captures erased
	vars []string       // capture names in token order

	// Glob is the template with variables replaced by *, suitable for
	// narrowing filesystem enumeration. It over-approximates: every path the
	// matcher accepts also satisfies the glob.
	Glob string
}

// Compile translates a path template. It returns a *PatternError if the
// template is malformed (unbalanced braces, duplicate variable names).
func Compile(pattern string) (*Pattern, error) {
	expr, vars, err := translate(pattern, true)
	if err != nil {
		return nil, err
	}
	glob, _, err := translate(pattern, false)
	if err != nil {
		return nil, err
	}
	return &Pattern{
		raw:  pattern,
		expr: expr,
		glob: glob,
		vars: vars,
		Glob: varRe.ReplaceAllString(pattern, "*"),
	}, nil
}

// MustCompile is like Compile but panics on error. For tests and constants.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original template text.
func (p *Pattern) String() string { return p.raw }

// Vars returns the capture names in the order they appear in the template.
func (p *Pattern) Vars() []string { return append([]string(nil), p.vars...) }

// Match applies the compiled template to a slash-separated path. On success
// it returns the captured variable values keyed by lowercased variable name.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	m := p.expr.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	metadata := make(map[string]string, len(p.vars))
	for i, name := range p.expr.SubexpNames() {
		if name == "" {
			continue
		}
		metadata[strings.ToLower(name)] = m[i]
	}
	return metadata, true
}

// GlobMatch reports whether path satisfies the enumeration glob. It accepts a
// superset of the paths Match accepts and is cheaper per call (no captures),
// so callers use it to prefilter candidates before precise matching.
func (p *Pattern) GlobMatch(path string) bool {
	return p.glob.MatchString(path)
}

// translate builds the anchored regular expression for a template. When
// capture is false, variables compile to plain (uncaptured) glob groups,
// which yields the glob over-approximation.
func translate(pattern string, capture bool) (*regexp.Regexp, []string, error) {
	var (
		b    strings.Builder
		vars []string
		seen = map[string]bool{}
	)
	b.WriteString(`(?i)\A`)
	for i, segment := range strings.Split(pattern, "/") {
		if i > 0 {
			b.WriteString("/")
		}
		if err := translateSegment(&b, pattern, segment, capture, seen, &vars); err != nil {
			return nil, nil, err
		}
	}
	b.WriteString(`\z`)
	expr, err := regexp.Compile(b.String())
	if err != nil {
		// Variable names are restricted to [a-zA-Z0-9_] by the token grammar,
		// so the generated expression always compiles.
		return nil, nil, &PatternError{Pattern: pattern, Reason: err.Error()}
	}
	return expr, vars, nil
}

func translateSegment(b *strings.Builder, pattern, segment string, capture bool, seen map[string]bool, vars *[]string) error {
	last := 0
	for _, loc := range tokenRe.FindAllStringIndex(segment, -1) {
		if err := writeLiteral(b, pattern, segment[last:loc[0]]); err != nil {
			return err
		}
		token := segment[loc[0]:loc[1]]
		switch token {
		case "**":
			b.WriteString(`.+`)
		case "*":
			b.WriteString(`[^/]+`)
		default: // {name}
			name := strings.ToLower(token[1 : len(token)-1])
			if seen[name] {
				return &PatternError{Pattern: pattern, Reason: fmt.Sprintf("duplicate variable %q", name)}
			}
			seen[name] = true
			*vars = append(*vars, name)
			if capture {
				fmt.Fprintf(b, `(?P<%s>[^/]+)`, name)
			} else {
				b.WriteString(`[^/]+`)
			}
		}
		last = loc[1]
	}
	return writeLiteral(b, pattern, segment[last:])
}

func writeLiteral(b *strings.Builder, pattern, lit string) error {
	if strings.ContainsAny(lit, "{}") {
		return &PatternError{Pattern: pattern, Reason: fmt.Sprintf("unbalanced braces near %q", lit)}
	}
	b.WriteString(regexp.QuoteMeta(lit))
	return nil
}
