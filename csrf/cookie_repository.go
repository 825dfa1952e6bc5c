package csrf

import "net/http"

const DefaultCookieName = "XSRF-TOKEN"

// CookieTokenRepository stores the token in a cookie readable by scripts,
// implementing the double-submit cookie pattern without server-side state.
type CookieTokenRepository struct {
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
	CookieMaxAge   int // in seconds

	HeaderName    string
	ParameterName string
	TokenBytes    int
}

func NewCookieTokenRepository() *CookieTokenRepository {
	return &CookieTokenRepository{
		CookieName:     DefaultCookieName,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		HeaderName:     DefaultHeaderName,
		ParameterName:  DefaultParameterName,
		TokenBytes:     DefaultTokenBytes,
	}
}

func (c *CookieTokenRepository) GenerateToken(_ *http.Request) (Token, error) {
	v, err := newToken(c.TokenBytes)
	if err != nil {
		return Token{}, err
	}
	return c.token(v), nil
}

// LoadToken ignores cookies too short to have been issued by this repository.
func (c *CookieTokenRepository) LoadToken(r *http.Request) (*Token, error) {
	ck, err := r.Cookie(c.CookieName)
	if err != nil || len(ck.Value) < 16 {
		return nil, nil
	}
	tok := c.token(ck.Value)
	return &tok, nil
}

func (c *CookieTokenRepository) SaveToken(w http.ResponseWriter, _ *http.Request, tok *Token) error {
	value, maxAge := "", -1
	if tok != nil {
		value, maxAge = tok.Value, c.CookieMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.CookieName,
		Value:    value,
		Path:     c.CookiePath,
		Domain:   c.CookieDomain,
		MaxAge:   maxAge,
		SameSite: c.CookieSameSite,
		Secure:   c.CookieSecure,
		HttpOnly: false,
	})
	return nil
}

func (c *CookieTokenRepository) token(v string) Token {
	return Token{HeaderName: c.HeaderName, ParameterName: c.ParameterName, Value: v}
}
