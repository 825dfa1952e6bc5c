package csrf

import (
	"net/http"

	"github.com/JeanGrijp/csrfguard/session"
)

// RotationStrategy runs synchronously when a request authenticates
// successfully, before the response is committed.
type RotationStrategy interface {
	OnAuthentication(w http.ResponseWriter, r *http.Request) error
}

type RotationFunc func(w http.ResponseWriter, r *http.Request) error

func (f RotationFunc) OnAuthentication(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// NoopRotation is the default strategy.
type NoopRotation struct{}

func (NoopRotation) OnAuthentication(http.ResponseWriter, *http.Request) error { return nil }

// maxRegenerate bounds the retries when a generated value collides with the
// one being replaced.
const maxRegenerate = 3

// TokenRotation replaces the session's token with a fresh one so a token
// issued before login stops validating.
type TokenRotation struct {
	Repository TokenRepository
}

func (t TokenRotation) OnAuthentication(w http.ResponseWriter, r *http.Request) error {
	old, err := t.Repository.LoadToken(r)
	if err != nil {
		return repositoryError("load", err)
	}
	var tok Token
	for i := 0; i < maxRegenerate; i++ {
		if tok, err = t.Repository.GenerateToken(r); err != nil {
			return err
		}
		if old == nil || tok.Value != old.Value {
			break
		}
	}
	if old != nil && tok.Value == old.Value {
		return ErrTokenCollision
	}
	if err := r.Context().Err(); err != nil {
		return err
	}
	if old != nil {
		if err := t.Repository.SaveToken(w, r, nil); err != nil {
			return repositoryError("save", err)
		}
	}
	return repositoryError("save", t.Repository.SaveToken(w, r, &tok))
}

// SessionFixationRotation moves the session to a new ID on login, keeping
// its attributes.
type SessionFixationRotation struct{}

func (SessionFixationRotation) OnAuthentication(_ http.ResponseWriter, r *http.Request) error {
	s, err := session.FromRequest(r)
	if err != nil {
		return err
	}
	return s.Renew(r.Context())
}

// CompositeRotation runs strategies in order and stops at the first error.
func CompositeRotation(strategies ...RotationStrategy) RotationStrategy {
	return RotationFunc(func(w http.ResponseWriter, r *http.Request) error {
		for _, s := range strategies {
			if err := s.OnAuthentication(w, r); err != nil {
				return err
			}
		}
		return nil
	})
}
