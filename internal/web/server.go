package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spotify-export-stats/internal/tenant"
	"spotify-export-stats/internal/token"
)

// ServerConfig holds everything the server needs.
type ServerConfig struct {
	Addr           string
	Tenants        *tenant.Store
	Signer         *token.Signer
	Logger         *log.Logger
	SessionTTL     time.Duration
	MaxUploadBytes int64
	TemplatesFS    fs.FS
	StaticFS       fs.FS
}

// Server is the HTTP server for the export stats application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	tenants  *tenant.Store
	logger   *log.Logger
}

// NewServer creates the server, wiring routes and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	handlers := NewHandlers(cfg.Tenants, cfg.Signer, templates, logger, cfg.SessionTTL, cfg.MaxUploadBytes)

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: handlers,
		tenants:  cfg.Tenants,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(staticFS fs.FS) {
	h := s.handlers

	// Static files
	fileServer := http.FileServer(http.FS(staticFS))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Pages
	s.router.Get("/", h.Home)
	s.router.Get("/playlists", h.PlaylistsPage)
	s.router.Get("/tracks", h.TracksPage)
	s.router.Get("/analytics", h.AnalyticsPage)
	s.router.Get("/upload", h.UploadPage)

	// Session lifecycle
	s.router.Post("/api/upload", h.Upload)
	s.router.Post("/api/reset", h.Reset)
	s.router.Get("/api/session", h.SessionInfo)

	// Analytics API
	s.router.Route("/api/analytics", func(r chi.Router) {
		r.Get("/overview", h.AnalyticsOverview)
		r.Get("/top-tracks-by-playlist", h.TopTracksByPlaylist)
		r.Get("/top-tracks-by-plays", h.TopTracksByPlays)
		r.Get("/top-artists", h.TopArtists)
		r.Get("/playlist-stats", h.PlaylistStats)
		r.Get("/listening-time-stats", h.ListeningTimeStats)
		r.Get("/matched-tracks", h.MatchedTracks)
	})

	// Data browsing API
	s.router.Route("/api/playlists", func(r chi.Router) {
		r.Get("/", h.ListPlaylists)
		r.Get("/search/by-name", h.SearchPlaylists)
		r.Get("/{name}", h.GetPlaylist)
	})
	s.router.Route("/api/tracks", func(r chi.Router) {
		r.Get("/", h.ListTracks)
		r.Get("/search", h.SearchTracks)
		r.Get("/albums", h.ListAlbums)
		r.Get("/filter", h.FilterTracks)
		r.Get("/by-artist/{artist}", h.TracksByArtist)
		r.Get("/{uri}", h.GetTrack)
	})
	s.router.Get("/api/library", h.ListLibrary)

	s.router.Get("/health", h.Health)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and blocks until an interrupt, then shuts down
// gracefully and deletes every tenant so no extracted files are left on
// disk.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.tenants.DeleteAll()
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.Shutdown(ctx)
	s.tenants.DeleteAll()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
