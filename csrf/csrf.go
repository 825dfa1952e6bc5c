package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Decision is the outcome of evaluating one request.
type Decision int

const (
	Skipped Decision = iota
	Allowed
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Skipped:
		return "skipped"
	case Allowed:
		return "allowed"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Protect wraps next with CSRF validation.
//
// Requests matched by an Ignoring matcher, or not matched by
// RequireProtection, pass through with the token available lazily through
// TokenFromContext. Every other request must carry the stored token in the
// header or request parameter named by the token; otherwise DeniedHandler
// answers and next is never called.
//
// When the Protector is disabled next is returned as is.
func (p *Protector) Protect(next http.Handler) http.Handler {
	if p.cfg.Disabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dt := &deferredToken{repo: p.cfg.Repository, w: w, r: r}
		r = r.WithContext(contextWithToken(r.Context(), dt))

		if !p.requiresProtection(r) {
			p.metrics.observe(Skipped, "")
			next.ServeHTTP(w, r)
			return
		}

		expected, err := p.cfg.Repository.LoadToken(r)
		if err != nil {
			p.repositoryFailure(w, r, next, repositoryError("load", err))
			return
		}
		dt.seed(expected)

		if err := p.validate(r, expected); err != nil {
			p.reject(w, r, err)
			return
		}

		p.metrics.observe(Allowed, "")
		next.ServeHTTP(w, r)
	})
}

// requiresProtection applies exclusions before the protection matcher.
func (p *Protector) requiresProtection(r *http.Request) bool {
	if p.ignore.Matches(r) {
		return false
	}
	return p.cfg.RequireProtection.Matches(r)
}

func (p *Protector) validate(r *http.Request, expected *Token) error {
	if p.cfg.EnforceOriginCheck {
		if err := validateOriginOrReferer(r, p.cfg.AllowedOrigin); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
		}
	}
	if expected == nil {
		return ErrTokenMissing
	}
	supplied := extractClientToken(r, expected.HeaderName, expected.ParameterName)
	if supplied == "" {
		return ErrSuppliedTokenAbsent
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(expected.Value)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

func (p *Protector) reject(w http.ResponseWriter, r *http.Request, reason error) {
	p.log.Debug("request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(reason))
	p.metrics.observe(Rejected, reasonLabel(reason))
	p.cfg.DeniedHandler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), reasonKey, reason)))
}

func (p *Protector) repositoryFailure(w http.ResponseWriter, r *http.Request, next http.Handler, err error) {
	p.log.Error("token repository failure",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Bool("fail_open", p.cfg.FailOpen),
		zap.Error(err))
	if p.cfg.FailOpen {
		p.metrics.observe(Skipped, "repository")
		next.ServeHTTP(w, r)
		return
	}
	p.metrics.observe(Rejected, "repository")
	p.cfg.ErrorHandler(w, r.WithContext(context.WithValue(r.Context(), reasonKey, err)), err)
}

// AuthenticationSucceeded must be called by the login handler once the
// request is authenticated and before the response is written. It runs the
// configured RotationStrategy and makes the request's token resolve again.
func (p *Protector) AuthenticationSucceeded(w http.ResponseWriter, r *http.Request) error {
	if p.cfg.Disabled {
		return nil
	}
	if err := p.cfg.Rotation.OnAuthentication(w, r); err != nil {
		p.log.Error("token rotation failed", zap.Error(err))
		return err
	}
	if dt, ok := deferredFromContext(r.Context()); ok {
		dt.reset()
	}
	return nil
}

// TokenHandler returns an HTTP handler that writes the current CSRF token.
// This is useful for SPAs to fetch the token and attach it to subsequent requests.
func (p *Protector) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := RequestToken(r)
		if err != nil {
			p.log.Error("token unavailable", zap.Error(err))
			http.Error(w, "no token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-CSRF-HEADER", tok.HeaderName)
		w.Header().Set("X-CSRF-PARAM", tok.ParameterName)
		w.Write([]byte(tok.Value))
	})
}

func defaultDenied(w http.ResponseWriter, r *http.Request) {
	msg := "invalid CSRF token"
	switch err := FailureReason(r); {
	case errors.Is(err, ErrInvalidOrigin):
		msg = "invalid origin"
	case errors.Is(err, ErrSuppliedTokenAbsent):
		msg = "missing CSRF token"
	case errors.Is(err, ErrTokenMismatch):
		msg = "bad CSRF token"
	}
	http.Error(w, msg, http.StatusForbidden)
}

func defaultError(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "CSRF token unavailable", http.StatusInternalServerError)
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOrigin):
		return "origin"
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrSuppliedTokenAbsent):
		return "supplied_absent"
	case errors.Is(err, ErrTokenMismatch):
		return "mismatch"
	}
	return "other"
}

// validateOriginOrReferer checks whether the request is same-site according to
// the allowed host policy. When allowed is empty, it falls back to r.Host.
// It prefers the Origin header; if empty, it falls back to Referer.
func validateOriginOrReferer(r *http.Request, allowed string) error {
	host := allowed
	if host == "" {
		host = r.Host
	}

	origin := r.Header.Get("Origin")
	ref := r.Header.Get("Referer")

	if origin == "" && ref == "" {
		return errors.New("no origin/referer")
	}
	if origin != "" && !sameSite(origin, host) {
		return errors.New("bad origin")
	}
	if origin == "" && ref != "" && !sameSite(ref, host) {
		return errors.New("bad referer")
	}
	return nil
}
