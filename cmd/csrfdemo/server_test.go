package main

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type demoClient struct {
	t   *testing.T
	srv *httptest.Server
	hc  *http.Client
}

func newDemo(t *testing.T, cfg Config) *demoClient {
	app, err := NewApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &demoClient{t: t, srv: srv, hc: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (c *demoClient) do(method, path, token string, form url.Values) (int, string) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.srv.URL+path, body)
	require.NoError(c.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set(csrf.DefaultHeaderName, token)
	}
	res, err := c.hc.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func (c *demoClient) token() string {
	code, body := c.do(http.MethodGet, "/csrf-token", "", nil)
	require.Equal(c.t, http.StatusOK, code)
	return body
}

func (c *demoClient) sessionID() string {
	u, _ := url.Parse(c.srv.URL)
	for _, ck := range c.hc.Jar.Cookies(u) {
		if ck.Name == "SESSIONID" {
			return ck.Value
		}
	}
	return ""
}

func demoConfig(store string) Config {
	return Config{
		Store: store,
		CSRF:  CSRFConfig{Rotate: true, Ignore: []string{"/webhooks/**"}},
	}
}

func TestDemoFlow(t *testing.T) {
	for _, store := range []string{"memory", "miniredis"} {
		t.Run(store, func(t *testing.T) {
			c := newDemo(t, demoConfig(store))

			code, _ := c.do(http.MethodPost, "/transfer", "", nil)
			assert.Equal(t, http.StatusForbidden, code)

			code, _ = c.do(http.MethodPost, "/webhooks/github", "", nil)
			assert.Equal(t, http.StatusOK, code)

			before := c.token()
			code, _ = c.do(http.MethodPost, "/transfer", before, nil)
			assert.Equal(t, http.StatusCreated, code)

			sid := c.sessionID()
			form := url.Values{"username": {"alice"}, csrf.DefaultParameterName: {before}}
			code, _ = c.do(http.MethodPost, "/login", "", form)
			require.Equal(t, http.StatusSeeOther, code)
			assert.NotEqual(t, sid, c.sessionID())

			code, _ = c.do(http.MethodPost, "/transfer", before, nil)
			assert.Equal(t, http.StatusForbidden, code, "pre-login token must not survive login")

			after := c.token()
			assert.NotEqual(t, before, after)
			code, _ = c.do(http.MethodPost, "/transfer", after, nil)
			assert.Equal(t, http.StatusCreated, code)

			code, body := c.do(http.MethodGet, "/", "", nil)
			assert.Equal(t, http.StatusOK, code)
			assert.Contains(t, body, "Signed in as alice")
			assert.Contains(t, body, after)

			_, metrics := c.do(http.MethodGet, "/metrics", "", nil)
			assert.Contains(t, metrics, `csrf_requests_total{decision="rejected",reason="mismatch"} 1`)
		})
	}
}

func TestDemoDisabled(t *testing.T) {
	cfg := demoConfig("memory")
	cfg.CSRF.Disabled = true
	c := newDemo(t, cfg)

	code, _ := c.do(http.MethodPost, "/transfer", "", nil)
	assert.Equal(t, http.StatusCreated, code)
}

func TestUnknownStore(t *testing.T) {
	_, err := NewApp(demoConfig("etcd"), zap.NewNop())
	assert.Error(t, err)
}
