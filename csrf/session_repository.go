package csrf

import (
	"net/http"

	"github.com/JeanGrijp/csrfguard/session"
)

// DefaultSessionAttribute is the session attribute holding the token value.
const DefaultSessionAttribute = "_csrfguard.token"

// SessionTokenRepository keeps the token value in the server-side session
// attached by session.Manager.
type SessionTokenRepository struct {
	HeaderName    string
	ParameterName string
	Attribute     string
	TokenBytes    int
}

func NewSessionTokenRepository() *SessionTokenRepository {
	return &SessionTokenRepository{
		HeaderName:    DefaultHeaderName,
		ParameterName: DefaultParameterName,
		Attribute:     DefaultSessionAttribute,
		TokenBytes:    DefaultTokenBytes,
	}
}

func (s *SessionTokenRepository) GenerateToken(_ *http.Request) (Token, error) {
	v, err := newToken(s.TokenBytes)
	if err != nil {
		return Token{}, err
	}
	return s.token(v), nil
}

func (s *SessionTokenRepository) LoadToken(r *http.Request) (*Token, error) {
	sess, err := session.FromRequest(r)
	if err != nil {
		return nil, err
	}
	v, ok, err := sess.Get(r.Context(), s.attribute())
	if err != nil || !ok {
		return nil, err
	}
	tok := s.token(v)
	return &tok, nil
}

func (s *SessionTokenRepository) SaveToken(_ http.ResponseWriter, r *http.Request, tok *Token) error {
	sess, err := session.FromRequest(r)
	if err != nil {
		return err
	}
	if tok == nil {
		return sess.Delete(r.Context(), s.attribute())
	}
	return sess.Set(r.Context(), s.attribute(), tok.Value)
}

func (s *SessionTokenRepository) SaveTokenIfAbsent(_ http.ResponseWriter, r *http.Request, tok Token) (Token, error) {
	sess, err := session.FromRequest(r)
	if err != nil {
		return Token{}, err
	}
	v, err := sess.SetNX(r.Context(), s.attribute(), tok.Value)
	if err != nil {
		return Token{}, err
	}
	return s.token(v), nil
}

func (s *SessionTokenRepository) token(v string) Token {
	return Token{HeaderName: s.HeaderName, ParameterName: s.ParameterName, Value: v}
}

func (s *SessionTokenRepository) attribute() string {
	if s.Attribute == "" {
		return DefaultSessionAttribute
	}
	return s.Attribute
}
