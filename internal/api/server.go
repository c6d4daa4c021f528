// Package api serves the rule-generation endpoint the editor's HTTP bridge
// talks to, plus generation history and a stateless rule validator.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/auth"
	"github.com/crmkit/segmint/internal/rulegen"
	"github.com/crmkit/segmint/internal/store"
	"github.com/crmkit/segmint/internal/telemetry"
)

// DefaultRequestTimeout bounds a request, generator call included.
const DefaultRequestTimeout = 60 * time.Second

// Options configures a Server.
type Options struct {
	Generator      rulegen.Generator
	Store          store.Store
	APIKey         string
	APIKeyHash     string
	Strict         bool // reject generated trees with unknown fields or operators
	RateLimitPerIP int  // per minute, 0 disables
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

type Server struct {
	gen            rulegen.Generator
	store          store.Store
	auth           *auth.Authenticator
	strict         bool
	rateLimitPerIP int
	timeout        time.Duration
	log            zerolog.Logger
}

func NewServer(opts Options) *Server {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{
		gen:   opts.Generator,
		store: opts.Store,
		auth: auth.NewAuthenticator(opts.APIKey, opts.APIKeyHash, func(w http.ResponseWriter, r *http.Request, _ int, msg string) {
			UnauthorizedError(w, r, msg)
		}),
		strict:         opts.Strict,
		rateLimitPerIP: opts.RateLimitPerIP,
		timeout:        timeout,
		log:            opts.Logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(s.timeout))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if s.rateLimitPerIP > 0 {
			r.Use(httprate.Limit(s.rateLimitPerIP, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(RateLimitedError),
			))
		}

		// public: stateless rule checks
		r.Post("/api/segmentrules/validate", s.handleValidateRules)

		// protected: generation and its history
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth)
			r.Post(rulegen.SegmentRulesPath, s.handleGenerateRules)
			r.Get(rulegen.SegmentRulesPath+"/history", s.handleListGenerations)
			r.Get(rulegen.SegmentRulesPath+"/history/{id}", s.handleGetGeneration)
		})
	})

	return r
}
