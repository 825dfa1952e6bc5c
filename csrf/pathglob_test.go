package csrf

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathPattern(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/test1", "/test1", true},
		{"/test1", "/test2", false},
		{"/test1", "/Test1", false},
		{"/test1", "/test1/", false},
		{"/test1/", "/test1/", true},
		{"/test1", "/test1/x", false},
		{"/**", "/", true},
		{"/**", "/anything/at/all", true},
		{"/api/**", "/api", true},
		{"/api/**", "/api/", true},
		{"/api/**", "/api/v1/users", true},
		{"/api/**", "/apix", false},
		{"/api/**/edit", "/api/edit", true},
		{"/api/**/edit", "/api/a/b/edit", true},
		{"/api/**/edit", "/api/a/b/view", false},
		{"/api/*", "/api/users", true},
		{"/api/*", "/api/users/1", false},
		{"/api/*", "/api/*x", true},
		{"/api/*", "/api/*evil", true},
		{"/a*", "/a*b", true},
		{"/*", "/*x", true},
		{"/api/*.json", "/api/users.json", true},
		{"/api/*.json", "/api/users.xml", false},
		{"/t?st", "/test", true},
		{"/t?st", "/toast", false},
		{"/users/{id}", "/users/42", true},
		{"/users/{id}", "/users/*evil", true},
		{"/users/{id}", "/users/42/posts", false},
		{"/users/{id}/posts", "/users/42/posts", true},
		{"/a//b", "/a/b", true},
		{"/", "/", true},
		{"/", "/x", false},
		{"relative/*", "relative/x", true},
		{"relative/*", "/relative/x", false},
	}
	for _, tc := range cases {
		got := CompilePathPattern(tc.pattern).Match(tc.path)
		assert.Equal(t, tc.want, got, "%q ~ %q", tc.pattern, tc.path)
	}
}

func TestWildcardPathStillProtected(t *testing.T) {
	c := newClient(t, appHandler(New(Config{RequireProtection: Path("/api/{name}")})))

	assert.Equal(t, http.StatusForbidden, c.send(http.MethodPost, "/api/*evil", "").Code)
	assert.Equal(t, http.StatusForbidden, c.send(http.MethodPost, "/api/evil", "").Code)
	assert.Equal(t, http.StatusOK, c.send(http.MethodPost, "/other", "").Code)
}

func TestParsePathPatternRejectsMalformed(t *testing.T) {
	_, err := ParsePathPattern("/api/[a-")
	require.Error(t, err)
	assert.Panics(t, func() { Path("/api/[a-") })
}
