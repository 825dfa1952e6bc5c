package csrf

import "net/http"

// TokenRepository generates, persists and loads the Token bound to the
// session of a request.
type TokenRepository interface {
	// GenerateToken builds a new Token without storing it.
	GenerateToken(r *http.Request) (Token, error)
	// SaveToken stores tok for the request's session, or clears it when tok
	// is nil.
	SaveToken(w http.ResponseWriter, r *http.Request, tok *Token) error
	// LoadToken returns the stored Token, or nil when none was saved. It
	// never generates.
	LoadToken(r *http.Request) (*Token, error)
}

// ConditionalSaver is implemented by repositories able to store a Token only
// when none is present. The returned Token is the one stored afterwards.
type ConditionalSaver interface {
	SaveTokenIfAbsent(w http.ResponseWriter, r *http.Request, tok Token) (Token, error)
}

// saveGenerated stores a freshly generated token, letting an earlier
// concurrent writer win when the repository supports it.
func saveGenerated(repo TokenRepository, w http.ResponseWriter, r *http.Request, tok Token) (Token, error) {
	if cs, ok := repo.(ConditionalSaver); ok {
		return cs.SaveTokenIfAbsent(w, r, tok)
	}
	if err := repo.SaveToken(w, r, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}
