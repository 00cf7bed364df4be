// Package server exposes the generation pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/prompt"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/store"
	"github.com/abhisek/coursecraft/internal/telemetry"
)

// Generator runs generation phases for a client.
type Generator interface {
	GenerateOutline(ctx context.Context, clientID string, fp course.Fingerprint, rev *prompt.Revision) (*course.Outline, ratelimit.Decision, error)
	GenerateContent(ctx context.Context, clientID string, fp course.Fingerprint, approved course.Outline) (*course.Content, ratelimit.Decision, error)
}

// Options configures the HTTP layer.
type Options struct {
	MaxBodyBytes      int64
	TrustForwardedFor bool

	// Development adds debug detail to error bodies.
	Development bool

	ServiceName string
}

// Server holds the handlers' dependencies.
type Server struct {
	gen     Generator
	courses store.CourseRepo
	idem    *Idempotency
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Server. courses and idem may be nil: courses are then not
// persisted and Idempotency-Key is ignored.
func New(gen Generator, courses store.CourseRepo, idem *Idempotency, opts Options, log zerolog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "coursecraft"
	}
	return &Server{gen: gen, courses: courses, idem: idem, opts: opts, log: log, now: time.Now}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, chimw.Recoverer, telemetry.HTTPMiddleware(s.opts.ServiceName), AccessLog(s.log))

	r.Get("/healthz", s.health)
	r.Group(func(r chi.Router) {
		r.Use(LimitBody(s.opts.MaxBodyBytes))
		r.Post("/generate-outline", s.generateOutline)
		r.Post("/generate-course", s.generateCourse)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HTTPServer builds an http.Server for the handler.
func HTTPServer(addr string, h http.Handler, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       read,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}
