package main

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/JeanGrijp/csrfguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const userAttribute = "user"

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<p>{{if .User}}Signed in as {{.User}}{{else}}Anonymous{{end}}</p>
<form method="post" action="/login">
  <input name="username">
  <input type="hidden" name="{{.Token.ParameterName}}" value="{{.Token.Value}}">
  <button>Sign in</button>
</form>
<form method="post" action="/transfer">
  <input type="hidden" name="{{.Token.ParameterName}}" value="{{.Token.Value}}">
  <button>Transfer</button>
</form>
`))

// App holds the wired components of the demo server.
type App struct {
	Router    http.Handler
	Protector *csrf.Protector
	Sessions  *session.Manager
	closers   []func() error
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func NewApp(cfg Config, log *zap.Logger) (*App, error) {
	app := &App{}
	store, err := newStore(cfg, app)
	if err != nil {
		return nil, err
	}

	sessCfg := cfg.Session
	sessCfg.Logger = log.Named("session")
	sessions := session.NewManager(store, sessCfg)

	repo := csrf.NewSessionTokenRepository()
	if cfg.CSRF.HeaderName != "" {
		repo.HeaderName = cfg.CSRF.HeaderName
	}
	if cfg.CSRF.ParameterName != "" {
		repo.ParameterName = cfg.CSRF.ParameterName
	}

	var rotation csrf.RotationStrategy = csrf.NoopRotation{}
	if cfg.CSRF.Rotate {
		rotation = csrf.CompositeRotation(csrf.SessionFixationRotation{}, csrf.TokenRotation{Repository: repo})
	}

	ignoring := make([]csrf.Matcher, 0, len(cfg.CSRF.Ignore))
	for _, pattern := range cfg.CSRF.Ignore {
		ignoring = append(ignoring, csrf.Path(pattern))
	}

	reg := prometheus.NewRegistry()
	p := csrf.New(csrf.Config{
		Disabled:           cfg.CSRF.Disabled,
		Repository:         repo,
		Ignoring:           ignoring,
		Rotation:           rotation,
		EnforceOriginCheck: cfg.CSRF.EnforceOriginCheck,
		AllowedOrigin:      cfg.CSRF.AllowedOrigin,
		FailOpen:           cfg.CSRF.FailOpen,
		Logger:             log,
		Registerer:         reg,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(sessions.Handler)
		r.Use(p.Protect)

		r.Get("/", index)
		r.Get("/csrf-token", p.TokenHandler().ServeHTTP)
		r.Post("/login", login(p, log))
		r.Post("/logout", logout)
		r.Post("/transfer", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("ok"))
		})
		r.Post("/webhooks/{name}", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "received %s", chi.URLParam(r, "name"))
		})
	})

	app.Router = r
	app.Protector = p
	app.Sessions = sessions
	return app, nil
}

func newStore(cfg Config, app *App) (session.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return session.NewMemoryStore(cfg.Session.IdleTimeout), nil
	case "redis", "miniredis":
		opts := cfg.Redis.Options()
		if cfg.Store == "miniredis" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, err
			}
			app.closers = append(app.closers, func() error { mr.Close(); return nil })
			opts.Addr = mr.Addr()
		}
		client := redis.NewClient(opts)
		app.closers = append(app.closers, client.Close)
		return session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Session.IdleTimeout), nil
	}
	return nil, fmt.Errorf("unknown session store %q", cfg.Store)
}

func index(w http.ResponseWriter, r *http.Request) {
	tok, err := csrf.RequestToken(r)
	if err != nil && !errors.Is(err, csrf.ErrNotProtected) {
		http.Error(w, "token unavailable", http.StatusInternalServerError)
		return
	}
	var user string
	if s, err := session.FromRequest(r); err == nil {
		user, _, _ = s.Get(r.Context(), userAttribute)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTmpl.Execute(w, struct {
		User  string
		Token csrf.Token
	}{user, tok})
}

// login accepts any non-empty username; credentials are out of scope here.
func login(p *csrf.Protector, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PostFormValue("username")
		if name == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		s, err := session.FromRequest(r)
		if err != nil {
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}
		if err := s.Set(r.Context(), userAttribute, name); err != nil {
			log.Error("store user", zap.Error(err))
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if err := p.AuthenticationSucceeded(w, r); err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		log.Info("user signed in", zap.String("user", name))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func logout(w http.ResponseWriter, r *http.Request) {
	if s, err := session.FromRequest(r); err == nil {
		if err := s.Invalidate(r.Context()); err != nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
