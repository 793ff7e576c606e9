package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-map-service/internal/controller"
	"github.com/couchcryptid/hazard-map-service/internal/mapview"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionName = "hazard-map"

// FormController handles the date-range form actions.
type FormController interface {
	Submit(ctx context.Context, form controller.Form) error
	ClearFilter(ctx context.Context) error
	Fields() controller.Form
}

// MapSurface is the read side of the map surface.
type MapSurface interface {
	Snapshot() mapview.State
	Subscribe() (<-chan mapview.State, func())
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Controller FormController
	Surface    MapSurface
	Notices    *Notices
	Ready      sharedobs.ReadinessChecker
	// SessionKey signs the flash cookie. A random key is generated when empty,
	// which invalidates flashes across restarts.
	SessionKey []byte
}

// Server serves the map page, form endpoints, marker API, live updates, and
// health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	controller FormController
	surface    MapSurface
	notices    *Notices
	store      *sessions.CookieStore
	page       *template.Template
	upgrader   websocket.Upgrader
}

// NewServer creates the HTTP server.
func NewServer(addr string, deps Deps, logger *slog.Logger) (*Server, error) {
	page, err := parsePage()
	if err != nil {
		return nil, err
	}

	key := deps.SessionKey
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("generate session key")
		}
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Form posts wait for the EONET request to finish.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:     logger,
		controller: deps.Controller,
		surface:    deps.Surface,
		notices:    deps.Notices,
		store:      store,
		page:       page,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /filter", s.handleFilter)
	mux.HandleFunc("POST /clear-filter", s.handleClearFilter)
	mux.HandleFunc("GET /api/markers", s.handleMarkers)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s, nil
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := controller.Form{
		StartDate: r.PostFormValue("start-date"),
		EndDate:   r.PostFormValue("end-date"),
		Count:     r.PostFormValue("event-count"),
	}

	ctx, collected := withCollector(r.Context())
	if err := s.controller.Submit(ctx, form); err != nil {
		// The loader has already logged the failure; the page just shows an empty map.
		s.logger.Debug("filter load failed", "error", err)
	}
	s.redirectWithFlash(w, r, collected.messages())
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	ctx, collected := withCollector(r.Context())
	if err := s.controller.ClearFilter(ctx); err != nil {
		s.logger.Debug("clear filter load failed", "error", err)
	}
	s.redirectWithFlash(w, r, collected.messages())
}

// redirectWithFlash stores notices in the session and redirects to the page.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, notices []string) {
	if len(notices) > 0 {
		session, _ := s.store.Get(r, sessionName)
		for _, n := range notices {
			session.AddFlash(n)
		}
		if err := session.Save(r, w); err != nil {
			s.logger.Warn("save flash session failed", "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// popFlashes returns and clears pending notices.
func (s *Server) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		// A cookie signed by an old key decodes as an error; start over.
		return nil
	}
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		s.logger.Warn("save flash session failed", "error", err)
	}

	out := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
