package csrf

import "net/http"

// Matcher is a side-effect free predicate over a request.
type Matcher interface {
	Matches(r *http.Request) bool
}

type MatcherFunc func(r *http.Request) bool

func (f MatcherFunc) Matches(r *http.Request) bool { return f(r) }

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodTrace:   true,
	http.MethodOptions: true,
}

// UnsafeMethods matches every method other than GET, HEAD, TRACE and OPTIONS.
// It is the default protection matcher.
func UnsafeMethods() Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		return !safeMethods[r.Method]
	})
}

// Methods matches requests using one of the given methods.
func Methods(methods ...string) Matcher {
	set := make(map[string]bool, len(methods))
	for _, m := range methods {
		set[m] = true
	}
	return MatcherFunc(func(r *http.Request) bool {
		return set[r.Method]
	})
}

// Path matches the request path against a glob pattern, optionally limited
// to the given methods. See PathPattern for the pattern syntax.
func Path(pattern string, methods ...string) Matcher {
	p := CompilePathPattern(pattern)
	var method Matcher
	if len(methods) > 0 {
		method = Methods(methods...)
	}
	return MatcherFunc(func(r *http.Request) bool {
		if method != nil && !method.Matches(r) {
			return false
		}
		return p.Match(r.URL.Path)
	})
}

// Paths matches when any of the patterns matches, regardless of method.
func Paths(patterns ...string) Matcher {
	ms := make([]Matcher, len(patterns))
	for i, p := range patterns {
		ms[i] = Path(p)
	}
	return Any(ms...)
}

// Any matches when at least one matcher matches, evaluated in order.
func Any(ms ...Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		for _, m := range ms {
			if m.Matches(r) {
				return true
			}
		}
		return false
	})
}

// All matches when every matcher matches. An empty All matches everything.
func All(ms ...Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		for _, m := range ms {
			if !m.Matches(r) {
				return false
			}
		}
		return true
	})
}

func Not(m Matcher) Matcher {
	return MatcherFunc(func(r *http.Request) bool {
		return !m.Matches(r)
	})
}
