package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"plancal/internal/config"
	appLog "plancal/internal/log"
	"plancal/internal/model"
	"plancal/internal/schedule"
)

const responseCacheTTL = 30 * time.Second

// Provider hands out the current snapshot and a version that changes
// whenever the snapshot does.
type Provider interface {
	Current() (*model.Snapshot, uint64)
	Version() uint64
}

// Server exposes the schedule views over HTTP.
type Server struct {
	cfg    *config.Config
	store  Provider
	engine *schedule.Engine
	router chi.Router
	now    func() time.Time

	// Rendered responses keyed by request URI. An entry is stale once its
	// TTL passes or the snapshot version moves on.
	cacheMu sync.RWMutex
	cache   map[string]cachedResponse
}

type cachedResponse struct {
	contentType string
	body        []byte
	version     uint64
	updatedAt   time.Time
}

// NewServer wires routes and middleware.
func NewServer(cfg *config.Config, store Provider, engine *schedule.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		engine: engine,
		router: chi.NewRouter(),
		now:    time.Now,
		cache:  make(map[string]cachedResponse),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization"},
			MaxAge:         300,
		}))
	}
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Second))
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
			r.Use(s.basicAuth)
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/day", s.cached(s.handleDay))
			r.Get("/week", s.cached(s.handleWeek))
			r.Get("/month", s.cached(s.handleMonth))
		})
		r.Get("/export.ics", s.cached(s.handleExport))
	})
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	appLog.Info("waiting for in-flight requests before shutdown")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="plancal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// renderFunc produces a response body from one snapshot.
type renderFunc func(r *http.Request, snap *model.Snapshot) (contentType string, body []byte, err error)

// cached serves repeat requests for the same URI from memory while the
// snapshot is unchanged. Errors are never cached.
func (s *Server) cached(render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, version := s.store.Current()
		key := r.URL.RequestURI()
		now := s.now()

		s.cacheMu.RLock()
		entry, ok := s.cache[key]
		s.cacheMu.RUnlock()
		if ok && entry.version == version && now.Sub(entry.updatedAt) < responseCacheTTL {
			writeBody(w, http.StatusOK, entry.contentType, entry.body)
			return
		}

		contentType, body, err := render(r, snap)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		s.cacheMu.Lock()
		for k, e := range s.cache {
			if e.version != version || now.Sub(e.updatedAt) >= responseCacheTTL {
				delete(s.cache, k)
			}
		}
		s.cache[key] = cachedResponse{contentType: contentType, body: body, version: version, updatedAt: now}
		s.cacheMu.Unlock()

		writeBody(w, http.StatusOK, contentType, body)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Snapshot-Version", strconv.FormatUint(s.store.Version(), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		appLog.Error("failed to write response", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		appLog.Error("failed to encode JSON response", err)
		status, body = http.StatusInternalServerError, []byte(`{"error":"encoding failed"}`)
	}
	writeBody(w, status, contentTypeJSON, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

const contentTypeJSON = "application/json; charset=utf-8"

// badRequest marks a render error as the client's fault.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func statusFor(err error) int {
	var br badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
