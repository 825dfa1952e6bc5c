package csrf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Config struct {
	// Disabled leaves every request untouched.
	Disabled bool

	// Token storage. HeaderName, ParameterName and TokenBytes configure the
	// default SessionTokenRepository and are ignored when Repository is set.
	Repository    TokenRepository
	HeaderName    string // default: "X-CSRF-TOKEN"
	ParameterName string // default: "_csrf"
	TokenBytes    int

	// Request selection. RequireProtection replaces the default
	// UnsafeMethods matcher; any Ignoring matcher wins over it.
	RequireProtection Matcher
	Ignoring          []Matcher

	// Rotation runs on AuthenticationSucceeded. Default: NoopRotation.
	Rotation RotationStrategy

	// Extra security
	EnforceOriginCheck bool
	AllowedOrigin      string // if empty, uses r.Host

	// Failure handling. FailOpen lets requests through when the repository
	// fails instead of calling ErrorHandler.
	FailOpen      bool
	DeniedHandler http.Handler
	ErrorHandler  func(w http.ResponseWriter, r *http.Request, err error)

	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

type Protector struct {
	cfg     Config
	ignore  Matcher
	log     *zap.Logger
	metrics *metrics
}

func New(cfg Config) *Protector {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.ParameterName == "" {
		cfg.ParameterName = DefaultParameterName
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = DefaultTokenBytes
	}
	if cfg.Repository == nil {
		repo := NewSessionTokenRepository()
		repo.HeaderName = cfg.HeaderName
		repo.ParameterName = cfg.ParameterName
		repo.TokenBytes = cfg.TokenBytes
		cfg.Repository = repo
	}
	if cfg.RequireProtection == nil {
		cfg.RequireProtection = UnsafeMethods()
	}
	if cfg.Rotation == nil {
		cfg.Rotation = NoopRotation{}
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = http.HandlerFunc(defaultDenied)
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultError
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Protector{
		cfg:     cfg,
		ignore:  Any(cfg.Ignoring...),
		log:     cfg.Logger.Named("csrf"),
		metrics: newMetrics(cfg.Registerer),
	}
}

// Repository returns the repository in use, including the default one.
func (p *Protector) Repository() TokenRepository { return p.cfg.Repository }
