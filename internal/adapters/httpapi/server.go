// Package httpapi exposes the back office collections, exports, uploads and
// account settings over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"motoriz/internal/auth"
	"motoriz/internal/core"
	"motoriz/internal/export"
	"motoriz/internal/form"
	"motoriz/internal/upload"
	"motoriz/pkg/domain"
)

// Options wires the server collaborators. Service and Auth are required.
type Options struct {
	Service *core.Service
	Auth    *auth.Service
	// Uploads enables the upload routes when set.
	Uploads *upload.Service
	// Archiver stores a copy of every CSV export when set.
	Archiver *export.Archiver
	// Limiter throttles login and password reset requests; nil selects
	// auth.NewLimiter(1, 5).
	Limiter *auth.Limiter
	Logger  core.Logger
	Metrics *core.Metrics
	Clock   core.Clock
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64
	// EventBuffer is the per connection change buffer of /api/events.
	EventBuffer int
	// AllowedOrigins are the browser origins accepted by /api/events besides
	// the server's own; "*" accepts any.
	AllowedOrigins []string
}

// DefaultMaxBodyBytes is used when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxFilesPerUpload bounds the multiple upload endpoint.
const MaxFilesPerUpload = 10

// Server is the HTTP front of a core.Service.
type Server struct {
	svc      *core.Service
	auth     *auth.Service
	uploads  *upload.Service
	archiver *export.Archiver
	limiter  *auth.Limiter
	logger   core.Logger
	metrics  *core.Metrics
	clock    core.Clock
	maxBody  int64
	events   int
	origins  []string

	handler http.Handler
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Service == nil || opts.Auth == nil {
		return nil, errors.New("httpapi: service and auth are required")
	}
	s := &Server{
		svc:      opts.Service,
		auth:     opts.Auth,
		uploads:  opts.Uploads,
		archiver: opts.Archiver,
		limiter:  opts.Limiter,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		maxBody:  opts.MaxBodyBytes,
		events:   opts.EventBuffer,
		origins:  opts.AllowedOrigins,
	}
	if s.limiter == nil {
		s.limiter = auth.NewLimiter(1, 5)
	}
	if s.logger == nil {
		s.logger = opts.Service.Logger()
	}
	if s.metrics == nil {
		s.metrics = opts.Service.Metrics()
	}
	if s.clock == nil {
		s.clock = opts.Service.Clock()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.events <= 0 {
		s.events = defaultEventBuffer
	}
	s.handler = s.recoverer(s.observe(s.routes()))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	protected := func(h http.HandlerFunc) http.Handler { return s.auth.RequireAuth(h) }
	throttled := func(h http.HandlerFunc) http.Handler { return s.limiter.Middleware(h) }

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.Handle("POST /api/auth/login", throttled(s.handleLogin))
	mux.Handle("POST /api/auth/forgot-password", throttled(s.handleForgotPassword))
	mux.Handle("GET /api/auth/me", protected(s.handleMe))
	mux.Handle("GET /api/settings/profile", protected(s.handleGetProfile))
	mux.Handle("PUT /api/settings/profile", protected(s.handleUpdateProfile))
	mux.Handle("PUT /api/settings/password", protected(s.handleChangePassword))

	mux.Handle("GET /api/dashboard", protected(s.handleDashboard))
	mux.Handle("GET /api/products/orphans", protected(s.handleOrphans))
	// Browsers cannot set headers on the websocket handshake, so the token
	// may arrive as ?token=. Request logs record only the path, but proxies
	// in front of the server may log the full URL.
	mux.Handle("GET /api/events", tokenFromQuery(protected(s.handleEvents)))

	svc := s.svc
	mount(s, mux, resource[domain.Product]{
		name:    core.ResourceProducts,
		store:   svc.Products,
		adapter: form.Products{Categories: svc.Categories},
		export:  export.DomainProducts,
		list: func(r *http.Request) ([]domain.Product, error) {
			q, err := productQuery(r)
			if err != nil {
				return nil, err
			}
			return svc.QueryProducts(q), nil
		},
	})
	mount(s, mux, resource[domain.Category]{
		name:    core.ResourceCategories,
		store:   svc.Categories,
		adapter: form.Categories{ProductTypes: svc.ProductTypes},
		fields:  core.CategoryFields,
		remove:  svc.DeleteCategory,
	})
	mount(s, mux, resource[domain.ProductType]{
		name:    core.ResourceProductTypes,
		store:   svc.ProductTypes,
		adapter: form.ProductTypes{},
		fields:  core.ProductTypeFields,
	})
	mount(s, mux, resource[domain.Service]{
		name:    core.ResourceServices,
		store:   svc.Services,
		adapter: form.Services{},
		fields:  core.ServiceFields,
		export:  export.DomainServices,
	})
	mount(s, mux, resource[domain.Training]{
		name:    core.ResourceTrainings,
		store:   svc.Trainings,
		adapter: form.Trainings{},
		fields:  core.TrainingFields,
		export:  export.DomainTrainings,
	})
	mount(s, mux, resource[domain.NewsArticle]{
		name:    core.ResourceNews,
		store:   svc.News,
		adapter: form.News{Now: s.clock.Now},
		fields:  core.NewsFields,
		export:  export.DomainNews,
	})
	mount(s, mux, resource[domain.Reservation]{
		name:    core.ResourceReservations,
		store:   svc.Reservations,
		adapter: form.Reservations{},
		fields:  core.ReservationFields,
		export:  export.DomainReservations,
	})

	if s.uploads != nil {
		mux.Handle("POST /api/upload/{folder}", protected(s.handleUpload))
		mux.Handle("POST /api/upload/{folder}/multiple", protected(s.handleUploadMany))
		mux.Handle("DELETE /api/upload/{folder}/{filename}", protected(s.handleDeleteUpload))
		mux.HandleFunc("GET /uploads/{folder}/{filename}", s.handleServeUpload)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": s.clock.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dashboard())
}

func (s *Server) handleOrphans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.OrphanedProducts()))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
