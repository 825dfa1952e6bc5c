// Package csrf provides CSRF protection for Go net/http servers using a
// per-session synchronizer token.
//
// How it works
//   - Requests not selected by Config.RequireProtection (by default GET, HEAD,
//     TRACE and OPTIONS) or matched by one of Config.Ignoring pass through.
//     Their token is resolved lazily: handlers calling TokenFromContext get
//     the stored token, or a freshly generated one that is saved on the spot.
//   - Every other request must submit the stored token in the header named
//     by Token.HeaderName or, failing that, in the request parameter named by
//     Token.ParameterName. Comparison is exact and done in constant time. A
//     session without a stored token is rejected; no token is generated for
//     it during validation.
//   - Repository failures are not rejections: they go to Config.ErrorHandler,
//     or straight to the next handler when Config.FailOpen is set.
//
// # Storage
//
// Tokens live behind the TokenRepository interface. The default
// SessionTokenRepository keeps them in the server-side session managed by
// package session, which must run before Protect. CookieTokenRepository
// implements the stateless double-submit cookie pattern instead.
//
// # Login
//
// Login handlers call Protector.AuthenticationSucceeded after authenticating
// a user. It runs Config.Rotation; TokenRotation replaces the token and
// SessionFixationRotation moves the session to a new ID.
//
// Typical usage
//
//	sessions := session.NewManager(session.NewMemoryStore(30*time.Minute), session.Config{})
//	p := csrf.New(csrf.Config{
//	    Ignoring: []csrf.Matcher{csrf.Path("/webhooks/**")},
//	    Rotation: csrf.TokenRotation{Repository: csrf.NewSessionTokenRepository()},
//	})
//	http.ListenAndServe(":8080", sessions.Handler(p.Protect(appMux)))
//
// In handlers, you can read the token from context for rendering or APIs:
//
//	if tok, ok := csrf.TokenFromContext(r.Context()); ok {
//	    // render tok.Value in a hidden input named tok.ParameterName
//	}
package csrf
