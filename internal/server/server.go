// Package server exposes the client portal and the studio's admin API over
// HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"

	"studio-portal/internal/auth"
	"studio-portal/internal/logging"
	"studio-portal/internal/media"
	"studio-portal/internal/storage"
	ws "studio-portal/internal/websocket"
	"studio-portal/internal/workflow"
)

// Options wires a Server to its dependencies. Hub may be nil, in which case
// no live events are published and /ws is not mounted.
type Options struct {
	DB            *storage.DB
	Issuer        *auth.Issuer
	Hub           *ws.Hub
	MediaDir      string
	ThumbnailSize uint
	CookieSecure  bool
	Logger        *slog.Logger
	Now           func() time.Time
}

// Server is the portal's HTTP handler.
type Server struct {
	router    chi.Router
	db        *storage.DB
	svc       *workflow.Service
	studio    *workflow.Studio
	auth      *auth.Authenticator
	issuer    *auth.Issuer
	hub       *ws.Hub
	thumbs    *media.Thumbnailer
	opener    media.Opener
	sanitizer *bluemonday.Policy
	upgrader  websocket.Upgrader
	secure    bool
	logger    *slog.Logger
	now       func() time.Time
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	wfOpts := []workflow.Option{workflow.WithLogger(logger), workflow.WithClock(now)}
	if opts.Hub != nil {
		wfOpts = append(wfOpts, workflow.WithNotifier(opts.Hub))
	}

	s := &Server{
		db:        opts.DB,
		svc:       workflow.NewService(opts.DB, wfOpts...),
		studio:    workflow.NewStudio(opts.DB, wfOpts...),
		auth:      &auth.Authenticator{Users: opts.DB, Issuer: opts.Issuer},
		issuer:    opts.Issuer,
		hub:       opts.Hub,
		thumbs:    media.NewThumbnailer(opts.MediaDir, opts.ThumbnailSize),
		opener:    media.NewSourceOpener(opts.MediaDir),
		sanitizer: bluemonday.StrictPolicy(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		secure: opts.CookieSecure,
		logger: logger,
		now:    now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.issuer.Middleware)

	r.Get("/", s.handleLanding)
	r.Get("/health", s.handleHealth)
	r.Post("/api/contact", s.handleContact)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/api/me", s.handleMe)
		if s.hub != nil {
			r.Get("/ws", s.handleWebSocket)
		}

		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)

				r.Put("/selection", s.handleSaveSelection)
				r.Post("/selection/toggle", s.handleToggleSelection)
				r.Post("/selection/note", s.handleSelectionNote)
				r.Post("/selection/submit", s.handleSubmitSelection)

				r.Get("/revisions", s.handleListRevisions)
				r.Post("/revisions/{filename}/approve", s.handleApproveRevision)
				r.Post("/revisions/{filename}/reject", s.handleRejectRevision)
				r.Post("/revisions/{filename}/comment", s.handleCommentRevision)
				r.Post("/approve-all", s.handleApproveAll)

				r.Get("/delivery", s.handleDelivery)
				r.Get("/delivery/archive", s.handleArchive)
				r.Get("/images/{filename}/thumbnail", s.handleThumbnail)
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/overview", s.handleOverview)
		r.Get("/inquiries", s.handleInquiries)
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/{id}/editing", s.handleStartEditing)
		r.Post("/sessions/{id}/revisions", s.handlePublishRevision)
		r.Put("/sessions/{id}/finals", s.handleSetFinals)
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
