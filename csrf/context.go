package csrf

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

var ErrNotProtected = errors.New("csrf: request did not pass through Protect")

type ctxKey string

const (
	tokenKey  ctxKey = "csrf_token_ctx"
	reasonKey ctxKey = "csrf_reason_ctx"
)

// deferredToken resolves the request's token on first use: it loads it from
// the repository and, when none is stored, generates and saves a new one.
type deferredToken struct {
	repo TokenRepository
	w    http.ResponseWriter
	r    *http.Request

	mu     sync.Mutex
	loaded bool
	tok    *Token
}

// seed records a token the filter already loaded, so resolving it later does
// not hit the repository again.
func (d *deferredToken) seed(tok *Token) {
	d.mu.Lock()
	d.tok, d.loaded = tok, true
	d.mu.Unlock()
}

func (d *deferredToken) reset() {
	d.mu.Lock()
	d.tok, d.loaded = nil, false
	d.mu.Unlock()
}

func (d *deferredToken) get() (Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tok != nil {
		return *d.tok, nil
	}
	if !d.loaded {
		tok, err := d.repo.LoadToken(d.r)
		if err != nil {
			return Token{}, repositoryError("load", err)
		}
		d.loaded = true
		if tok != nil {
			d.tok = tok
			return *tok, nil
		}
	}
	// an aborted request must not mutate the session
	if err := d.r.Context().Err(); err != nil {
		return Token{}, err
	}
	tok, err := d.repo.GenerateToken(d.r)
	if err != nil {
		return Token{}, err
	}
	tok, err = saveGenerated(d.repo, d.w, d.r, tok)
	if err != nil {
		return Token{}, repositoryError("save", err)
	}
	d.tok = &tok
	return tok, nil
}

func contextWithToken(ctx context.Context, d *deferredToken) context.Context {
	return context.WithValue(ctx, tokenKey, d)
}

func deferredFromContext(ctx context.Context) (*deferredToken, bool) {
	d, ok := ctx.Value(tokenKey).(*deferredToken)
	return d, ok && d != nil
}

// TokenFromContext returns the CSRF token of the request that produced ctx,
// generating and saving one when the session has none yet.
func TokenFromContext(ctx context.Context) (Token, bool) {
	d, ok := deferredFromContext(ctx)
	if !ok {
		return Token{}, false
	}
	tok, err := d.get()
	return tok, err == nil
}

// RequestToken is TokenFromContext with the failure cause reported.
func RequestToken(r *http.Request) (Token, error) {
	d, ok := deferredFromContext(r.Context())
	if !ok {
		return Token{}, ErrNotProtected
	}
	return d.get()
}

// FailureReason returns why Protect rejected r, for use in a DeniedHandler
// or ErrorHandler.
func FailureReason(r *http.Request) error {
	err, _ := r.Context().Value(reasonKey).(error)
	return err
}
