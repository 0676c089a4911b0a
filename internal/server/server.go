// Package server is the browser viewer: an HTTP server whose page paints a
// virtualized list from windowed row requests. The document is shared; the
// expanded paths and search term belong to each browser session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/internal/watch"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// Config holds configuration for the viewer server.
type Config struct {
	Addr           string
	AppName        string
	Source         string // name of the initial document, shown in the page
	RowHeight      int    // pixels per row in the browser list
	Overscan       int
	SessionSecret  string // empty generates a key per process
	SessionMaxAge  time.Duration
	MaxSessions    int // live view sessions kept; the least recently seen is dropped
	InvalidPattern flatten.InvalidPatternMode
	// Expanded seeds the expanded paths of new sessions.
	Expanded []string
	// Watch, when set, reloads the shared document from its file.
	Watch       *watch.Watcher
	WatchFormat loader.Format
	// OnListen is called with the listening address before serving.
	OnListen func(addr string)
	Logger   logr.Logger
}

// Server is the browser viewer.
type Server struct {
	cfg          Config
	log          logr.Logger
	sessionStore *sessions.CookieStore
	notifier     *Notifier

	mu      sync.RWMutex // guards the shared document
	doc     value.Value
	hasDoc  bool
	version uint64
	loadErr string
	source  string

	viewsMu sync.Mutex
	views   map[string]*view
}

// New creates a server with no document.
func New(cfg Config) *Server {
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = 30
	}
	if cfg.Overscan < 0 {
		cfg.Overscan = 0
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.AppName == "" {
		cfg.AppName = "jvx"
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(int(cfg.SessionMaxAge / time.Second))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		cfg:          cfg,
		log:          log,
		sessionStore: sessionStore,
		notifier:     NewNotifier(),
		source:       cfg.Source,
		views:        make(map[string]*view),
	}
}

// Notifier returns the document change notifier.
func (s *Server) Notifier() *Notifier { return s.notifier }

// SetDocument replaces the shared document.
func (s *Server) SetDocument(doc value.Value, source string) {
	s.mu.Lock()
	s.doc, s.hasDoc, s.loadErr = doc, true, ""
	if source != "" {
		s.source = source
	}
	s.version++
	s.mu.Unlock()
	s.notifier.Broadcast()
}

// ApplyLoad installs the result of a load. On error the document is cleared:
// empty input means no document, a parse error keeps its message for the
// page. It returns the user-visible error text, if any.
func (s *Server) ApplyLoad(doc value.Value, err error, source string) string {
	if err == nil {
		s.SetDocument(doc, source)
		return ""
	}
	msg := ""
	var pe *loader.ParseError
	switch {
	case errors.Is(err, loader.ErrEmptyInput):
	case errors.As(err, &pe):
		msg = pe.Message()
	default:
		msg = err.Error()
	}
	s.mu.Lock()
	s.doc, s.hasDoc, s.loadErr = value.Value{}, false, msg
	if source != "" {
		s.source = source
	}
	s.version++
	s.mu.Unlock()
	s.log.Info("document cleared", "source", source, "reason", err.Error())
	s.notifier.Broadcast()
	return msg
}

// Document returns the shared document and whether one is loaded.
func (s *Server) Document() (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, s.hasDoc
}

type docState struct {
	doc     value.Value
	hasDoc  bool
	version uint64
	loadErr string
	source  string
}

func (s *Server) snapshot() docState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return docState{doc: s.doc, hasDoc: s.hasDoc, version: s.version, loadErr: s.loadErr, source: s.source}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.log),
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handleIndex)
	r.Get("/help", s.handleHelp)
	r.Route("/api", func(r chi.Router) {
		r.Post("/document", s.handleDocument)
		r.Get("/rows", s.handleRows)
		r.Post("/toggle", s.handleToggle)
		r.Post("/expand-all", s.handleExpandAll)
		r.Post("/collapse-all", s.handleCollapseAll)
		r.Put("/search", s.handleSearch)
		r.Get("/copy", s.handleCopy)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, running the file watcher
// alongside when one is configured.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	url := "http://" + ln.Addr().String()
	s.log.Info("starting viewer server", "addr", url)
	if s.cfg.OnListen != nil {
		s.cfg.OnListen(url)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch != nil {
		eg.Go(func() error {
			return s.cfg.Watch.Documents(egctx, s.cfg.WatchFormat, func(doc value.Value, err error) {
				s.ApplyLoad(doc, err, "")
			})
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.log.V(1).Info("shutting down viewer server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs each request at debug level.
func requestLogger(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.V(1).Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
