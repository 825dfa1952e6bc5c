package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultHeaderName    = "X-CSRF-TOKEN"
	DefaultParameterName = "_csrf"
	DefaultTokenBytes    = 32

	maxMultipartMemory = 32 << 20
)

// Token is the expected CSRF credential of a session together with the names
// under which clients must submit it.
type Token struct {
	HeaderName    string
	ParameterName string
	Value         string
}

// newToken returns n random bytes from crypto/rand, url-safe encoded.
func newToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// extractClientToken prefers the header and falls back to the request
// parameter. Values are returned untrimmed.
func extractClientToken(r *http.Request, headerName, paramName string) string {
	if h := r.Header.Get(headerName); h != "" {
		return h
	}
	if paramName == "" {
		return ""
	}
	if r.Form == nil {
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if ct == "multipart/form-data" {
			_ = r.ParseMultipartForm(maxMultipartMemory)
		} else {
			_ = r.ParseForm()
		}
	}
	return r.Form.Get(paramName)
}

// sameSite compares the host of an Origin or Referer value with allowedHost.
func sameSite(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, allowedHost)
}
