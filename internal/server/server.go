package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Meet0004/email-sync-system-intern/internal/database"
	"github.com/Meet0004/email-sync-system-intern/internal/reply"
	"github.com/Meet0004/email-sync-system-intern/pkg/models"
)

// Store is the persistence surface the HTTP façade needs.
type Store interface {
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	SearchMessages(ctx context.Context, filter database.SearchFilter) ([]*models.Message, error)
	UpdateMessageCategory(ctx context.Context, id string, category models.Category) error
	GetCategoryStats(ctx context.Context) (*database.CategoryStats, error)
	AddSnippet(ctx context.Context, content string) (*models.Snippet, error)
	ListSnippets(ctx context.Context) ([]models.Snippet, error)
}

// Replier produces reply suggestions for persisted messages.
type Replier interface {
	Suggest(ctx context.Context, msg *models.Message) reply.Suggestion
}

// StatusSource reports per-account connection status.
type StatusSource interface {
	Statuses() map[string]string
}

// Server is the thin CRUD façade over the store and reply engine.
type Server struct {
	store    Store
	replier  Replier
	statuses StatusSource
	logger   *slog.Logger
	http     *http.Server
}

// New creates the HTTP server
func New(addr string, store Store, replier Replier, statuses StatusSource, logger *slog.Logger) *Server {
	s := &Server{
		store:    store,
		replier:  replier,
		statuses: statuses,
		logger:   logger.With("component", "http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/emails", s.handleSearch)
		r.Get("/emails/{id}", s.handleGet)
		r.Post("/emails/{id}/reply", s.handleReply)
		r.Patch("/emails/{id}/category", s.handleUpdateCategory)
		r.Get("/stats", s.handleStats)
		r.Get("/accounts", s.handleAccounts)
		r.Get("/snippets", s.handleListSnippets)
		r.Post("/snippets", s.handleAddSnippet)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
