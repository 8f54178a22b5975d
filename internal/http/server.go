// Package http serves the single-page expense tracker UI: an index page plus
// HTMX partials, all rendered from statement snapshots fetched from the
// external backend. The process holds no state beyond the statement cache.
package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pengo/internal/core"
	"pengo/internal/events"
	applog "pengo/internal/log"
	"pengo/internal/middleware/trace"
	"pengo/internal/statement"
	appweb "pengo/web"
)

// Backend is everything we need from the external expense API.
type Backend interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, sub core.Submission) error
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Options tune the server; zero values get defaults.
type Options struct {
	CacheTTL       time.Duration
	MaxUploadBytes int64
	Publisher      *events.Publisher // nil disables event publishing
	Logger         *applog.Logger
}

type appMetrics struct {
	started      time.Time
	statements   int64 // statement views served
	transactions int64 // manual entries accepted
	uploads      int64 // statements uploaded
}

type Server struct {
	http.Server
	templates *template.Template
	backend   Backend
	loader    *statement.Loader
	publisher *events.Publisher
	logger    *applog.Logger

	rateLimiter *rateLimiter
	traceMW     *trace.Middleware
	metrics     appMetrics

	maxUploadBytes int64
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, backend Backend, opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 2 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.ParseLevel("info"), "http")
	}

	mux := http.NewServeMux()
	s := &Server{
		Server:         http.Server{Addr: addr, Handler: mux},
		backend:        backend,
		loader:         statement.NewLoader(backend, opts.CacheTTL),
		publisher:      opts.Publisher,
		logger:         opts.Logger,
		rateLimiter:    newRateLimiter(),
		traceMW:        trace.NewMiddleware(clientIP),
		metrics:        appMetrics{started: time.Now()},
		maxUploadBytes: opts.MaxUploadBytes,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Error("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.guarded(s.handleIndex))
	mux.HandleFunc("/ui/transactions", s.guarded(s.handleStatementPartial))
	mux.HandleFunc("/transactions", s.guarded(s.handleCreateTransaction))
	mux.HandleFunc("/upload", s.guarded(s.handleUpload))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	return s
}

// guarded applies tracing, security headers, and POST rate limiting.
func (s *Server) guarded(next http.HandlerFunc) http.HandlerFunc {
	traced := s.traceMW.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if r.Method == http.MethodPost && !s.rateLimiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}))
	return traced.ServeHTTP
}

// clientIP resolves the originating address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) countStatement() { atomic.AddInt64(&s.metrics.statements, 1) }
func (s *Server) countEntry()     { atomic.AddInt64(&s.metrics.transactions, 1) }
func (s *Server) countUpload()    { atomic.AddInt64(&s.metrics.uploads, 1) }
