package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	CookieName     string        `mapstructure:"cookie_name"`
	CookiePath     string        `mapstructure:"cookie_path"`
	CookieDomain   string        `mapstructure:"cookie_domain"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	CookieSameSite http.SameSite `mapstructure:"-"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`

	Logger *zap.Logger `mapstructure:"-"`
}

// Manager resolves the session of a request from its cookie and hands out
// lazy Session handles through the request context.
type Manager struct {
	store Store
	cfg   Config
	log   *zap.Logger
	newID func() string
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "SESSIONID"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.CookieSameSite == 0 {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, cfg: cfg, log: log, newID: uuid.NewString}
}

func (m *Manager) Store() Store { return m.store }

// Handler attaches a Session handle to every request passing through.
// Nothing touches the store until the handle is used.
func (m *Manager) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := &Session{m: m, w: w}
		if c, err := r.Cookie(m.cfg.CookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				s.claimed = c.Value
			}
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    id,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   maxAge,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	})
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// FromRequest returns the request's session handle or ErrNoSession when the
// Manager middleware did not run.
func FromRequest(r *http.Request) (*Session, error) {
	s, ok := FromContext(r.Context())
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Session is a per-request handle. The underlying session is created on the
// first write; reads on a request without a session report absence.
type Session struct {
	m *Manager
	w http.ResponseWriter

	mu       sync.Mutex
	claimed  string
	resolved bool
	id       string
}

// ID returns the live session ID, or "" when no session has been resolved
// or created yet.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Exists reports whether the request is bound to a stored session.
func (s *Session) Exists(ctx context.Context) (bool, error) {
	id, err := s.current(ctx)
	return id != "", err
}

func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	id, err := s.current(ctx)
	if err != nil || id == "" {
		return "", false, err
	}
	return s.m.store.Get(ctx, id, key)
}

func (s *Session) Set(ctx context.Context, key, value string) error {
	id, err := s.ensure(ctx)
	if err != nil {
		return err
	}
	return s.m.store.Set(ctx, id, key, value)
}

func (s *Session) SetNX(ctx context.Context, key, value string) (string, error) {
	id, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	return s.m.store.SetNX(ctx, id, key, value)
}

func (s *Session) Delete(ctx context.Context, key string) error {
	id, err := s.current(ctx)
	if err != nil || id == "" {
		return err
	}
	return s.m.store.Delete(ctx, id, key)
}

// Renew moves the session to a fresh ID, keeping its attributes. A request
// without a session is left alone.
func (s *Session) Renew(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resolveLocked(ctx); err != nil {
		return err
	}
	if s.id == "" {
		return nil
	}
	newID := s.m.newID()
	if err := s.m.store.Rename(ctx, s.id, newID); err != nil {
		return err
	}
	s.m.log.Debug("session renewed", zap.String("old", s.id), zap.String("new", newID))
	s.id = newID
	s.m.setCookie(s.w, newID, 0)
	return nil
}

// Invalidate destroys the session and expires its cookie.
func (s *Session) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resolveLocked(ctx); err != nil {
		return err
	}
	if s.id == "" {
		return nil
	}
	if err := s.m.store.Destroy(ctx, s.id); err != nil {
		return err
	}
	s.m.log.Debug("session invalidated", zap.String("id", s.id))
	s.id = ""
	s.m.setCookie(s.w, "", -1)
	return nil
}

func (s *Session) current(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resolveLocked(ctx); err != nil {
		return "", err
	}
	return s.id, nil
}

func (s *Session) ensure(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resolveLocked(ctx); err != nil {
		return "", err
	}
	if s.id == "" {
		s.id = s.m.newID()
		s.m.setCookie(s.w, s.id, 0)
		s.m.log.Debug("session created", zap.String("id", s.id))
	}
	return s.id, nil
}

// resolveLocked accepts the cookie's session ID only when the store knows it,
// so a client cannot pick its own session ID.
func (s *Session) resolveLocked(ctx context.Context) error {
	if s.resolved {
		return nil
	}
	if s.claimed != "" {
		ok, err := s.m.store.Exists(ctx, s.claimed)
		if err != nil {
			return err
		}
		if ok {
			s.id = s.claimed
			if s.m.cfg.IdleTimeout > 0 {
				if err := s.m.store.Touch(ctx, s.id, s.m.cfg.IdleTimeout); err != nil {
					s.m.log.Warn("session touch failed", zap.Error(err))
				}
			}
		}
	}
	s.resolved = true
	return nil
}
