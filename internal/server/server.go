// Package server exposes the bookmark operations as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/service"
	"github.com/nikbrunner/marks/internal/session"
	"github.com/nikbrunner/marks/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	maxImportSize   = 10 << 20
)

// Options configures a Server.
type Options struct {
	Backend   storage.Backend
	Signer    *session.Signer
	Logger    *zap.Logger
	Fetcher   metadata.Fetcher
	StaleTime time.Duration
	// MaxClients caps the per-user caches kept in memory. Zero means 1024.
	MaxClients int
	// ClientIdle drops a user's cache after this long without requests.
	// Zero means 30 minutes.
	ClientIdle time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Server serves the API for every user of one backend.
type Server struct {
	signer  *session.Signer
	log     *zap.Logger
	clients *registry
	now     func() time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger = logger.With(zap.String("component", "server"))
	return &Server{
		signer: opts.Signer,
		log:    logger,
		clients: newRegistry(opts.Backend,
			service.Options{Fetcher: opts.Fetcher, Now: opts.Now},
			query.CacheOptions{StaleTime: opts.StaleTime},
			opts.MaxClients, opts.ClientIdle,
			logger,
		),
		now: now,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", s.listBookmarks)
			r.Post("/", s.createBookmark)
			r.Get("/search", s.searchBookmarks)
			r.Get("/{id}", s.getBookmark)
			r.Patch("/{id}", s.updateBookmark)
			r.Delete("/{id}", s.deleteBookmark)
			r.Put("/{id}/tags", s.setBookmarkTags)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.listFolders)
			r.Post("/", s.createFolder)
			r.Get("/{id}", s.getFolder)
			r.Patch("/{id}", s.updateFolder)
			r.Delete("/{id}", s.deleteFolder)
			r.Get("/{id}/parents", s.parentCandidates)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.listTags)
			r.Post("/", s.createTag)
			r.Get("/{id}", s.getTag)
			r.Patch("/{id}", s.updateTag)
			r.Delete("/{id}", s.deleteTag)
			r.Get("/{id}/bookmarks", s.tagBookmarks)
		})

		r.Get("/profile", s.getProfile)
		r.Patch("/profile", s.updateProfile)
		r.Get("/preferences", s.getPreferences)
		r.Patch("/preferences", s.updatePreferences)

		r.Get("/export", s.export)
		r.Post("/import", s.importFile)
	})
	return r
}

// client returns the cache-backed client for the authenticated user.
func (s *Server) client(r *http.Request) *query.Client {
	userID, _ := userFrom(r.Context())
	return s.clients.client(userID)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
