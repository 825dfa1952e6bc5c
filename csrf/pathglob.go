package csrf

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathPattern is a compiled path glob. Patterns are compared segment by
// segment, case-sensitively:
//
//	?        one character within a segment
//	*        zero or more characters within a segment
//	**       zero or more whole segments
//	{name}   exactly one segment, whatever its content
//
// "/api/**" matches "/api", "/api/" and everything below it. Empty segments
// are ignored on both sides.
type PathPattern struct {
	raw           string
	glob          string
	absolute      bool
	trailingSlash bool
}

// ParsePathPattern compiles pattern, rejecting malformed globs such as an
// unclosed character class.
func ParsePathPattern(pattern string) (PathPattern, error) {
	segs := splitPath(pattern)
	for i, seg := range segs {
		segs[i] = normalizeSegment(seg)
	}
	p := PathPattern{
		raw:           pattern,
		glob:          strings.Join(segs, "/"),
		absolute:      strings.HasPrefix(pattern, "/"),
		trailingSlash: len(pattern) > 1 && strings.HasSuffix(pattern, "/"),
	}
	if !doublestar.ValidatePattern(p.glob) {
		return PathPattern{}, fmt.Errorf("csrf: invalid path pattern %q", pattern)
	}
	return p, nil
}

// CompilePathPattern is ParsePathPattern that panics on a malformed pattern,
// so a broken protection rule fails at startup instead of matching nothing.
func CompilePathPattern(pattern string) PathPattern {
	p, err := ParsePathPattern(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func (p PathPattern) String() string { return p.raw }

func (p PathPattern) Match(path string) bool {
	if strings.HasPrefix(path, "/") != p.absolute {
		return false
	}
	name := strings.Join(splitPath(path), "/")
	if !p.matchName(name) {
		return false
	}
	if p.glob == "**" || strings.HasSuffix(p.glob, "/**") {
		return true
	}
	return p.trailingSlash == (len(path) > 1 && strings.HasSuffix(path, "/"))
}

func (p PathPattern) matchName(name string) bool {
	switch {
	case p.glob == "":
		return name == ""
	case p.glob == "**":
		return true
	}
	if ok, _ := doublestar.Match(p.glob, name); ok {
		return true
	}
	// a trailing /** also covers the prefix itself
	if prefix, ok := strings.CutSuffix(p.glob, "/**"); ok {
		m, _ := doublestar.Match(prefix, name)
		return m
	}
	return false
}

func splitPath(s string) []string {
	parts := strings.Split(s, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeSegment turns {name} variables into single-segment wildcards.
func normalizeSegment(seg string) string {
	if seg == "**" {
		return seg
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		if seg[i] == '{' {
			if end := strings.IndexByte(seg[i:], '}'); end > 0 {
				b.WriteByte('*')
				i += end
				continue
			}
		}
		b.WriteByte(seg[i])
	}
	return b.String()
}
