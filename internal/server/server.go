// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// Everything the handlers share is built once in main and passed in as
// Deps; the server owns no globals.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/config"
	"github.com/sakif/resource-showcase/internal/handler"
	"github.com/sakif/resource-showcase/internal/media"
	"github.com/sakif/resource-showcase/internal/middleware"
	"github.com/sakif/resource-showcase/internal/repository"
	"github.com/sakif/resource-showcase/internal/service"
)

// Store is what the server needs from the persistence layer.
type Store interface {
	repository.ResourceRepository
	repository.Pinger
}

// Deps holds every collaborator the routes use. It is read-only once New
// returns.
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       Store
	StoreDriver string
	Verifier    auth.Verifier
	Media       media.Provider
	Auth        *service.AuthService
	GitHub      *auth.GitHubProvider // nil disables GitHub sign-in
	Web         fs.FS                // holds templates/ and static/
}

// Server represents the HTTP server and its router.
type Server struct {
	router http.Handler
	cfg    config.ServerConfig
	logger *slog.Logger
}

// New builds the router. It fails only when the page templates cannot be
// parsed.
func New(d Deps) (*Server, error) {
	router, err := NewRouter(d)
	if err != nil {
		return nil, err
	}
	return &Server{router: router, cfg: d.Config.Server, logger: d.Logger}, nil
}

// NewRouter returns the full route tree:
//
//	GET  /, /resources, /admin          HTML pages
//	GET  /static/*                      CSS and JS
//	GET  /healthz                       store reachability
//	     /resources, /media, /auth ...  JSON API, also mounted under /api
//
// Middleware order: request id, real ip, recoverer, logging, CORS.
func NewRouter(d Deps) (http.Handler, error) {
	log := d.Logger
	cfg := d.Config

	pages, err := handler.NewPageHandler(d.Web, handler.SiteInfo{
		Name:        "Resource Showcase",
		Tagline:     "Curated tools and references",
		GitHubLogin: d.GitHub != nil,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating page handler: %w", err)
	}
	static, err := fs.Sub(d.Web, "static")
	if err != nil {
		return nil, fmt.Errorf("opening static assets: %w", err)
	}

	resourceSvc := service.NewResourceService(d.Store, log)
	resources := handler.NewResourceHandler(resourceSvc, d.Verifier, cfg.Auth.AdminEmails, log)
	mediaH := handler.NewMediaHandler(d.Media, log)
	authH := handler.NewAuthHandler(d.Auth, d.GitHub, cfg.IsProduction(), log)
	health := handler.NewHealthHandler(d.Store, d.StoreDriver, log)

	requireAuth := auth.RequireAuth(d.Verifier, nil)
	requireAdmin := auth.RequireEmail(cfg.Auth.AdminEmails)
	loginLimiter := middleware.NewRateLimiter(10, 5)
	searchLimiter := middleware.NewRateLimiter(120, 20)

	api := func(r chi.Router) {
		r.Get("/categories", resources.HandleCategories)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", resources.HandleList)
			r.With(searchLimiter.Limit(handler.WriteRateLimited)).Get("/search", resources.HandleSearch)
			r.With(auth.OptionalAuth(d.Verifier)).Get("/{id}", resources.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, requireAdmin)
				r.Post("/", resources.HandleCreate)
				r.Put("/{id}", resources.HandleUpdate)
				r.Delete("/{id}", resources.HandleDelete)
			})
		})

		r.Route("/media", func(r chi.Router) {
			if cfg.Media.DeletePublic {
				r.Post("/delete", mediaH.HandleDelete)
			} else {
				r.With(requireAuth, requireAdmin).Post("/delete", mediaH.HandleDelete)
			}
			r.With(requireAuth, requireAdmin).Get("/upload-params", mediaH.HandleUploadParams)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter.Limit(handler.WriteRateLimited)).Post("/token", authH.HandleToken)
			r.Get("/github/login", authH.HandleGitHubLogin)
			r.Get("/github/callback", authH.HandleGitHubCallback)
			r.With(requireAuth).Get("/me", authH.HandleMe)
		})
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	// Deploy behind a proxy that sets X-Forwarded-For; RealIP takes it as
	// given and the per-IP limits key on it.
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// The public listing page and the JSON listing share /resources; the
	// browser asks for HTML, so the page wins when Accept says so.
	resourcesPage := pages.Page(handler.PageResources, "Resources")
	r.Get("/", pages.Page(handler.PageHome, "Resource Showcase"))
	r.Get("/admin", pages.Page(handler.PageAdmin, "Admin"))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", health.HandleHealth)

	r.Route("/api", api)
	r.Group(func(r chi.Router) {
		r.Use(htmlRoute("/resources", resourcesPage))
		api(r)
	})

	return r, nil
}

// htmlRoute serves page for GET requests to path that accept text/html and
// passes everything else through.
func htmlRoute(path string, page http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && (r.URL.Path == path || r.URL.Path == path+"/") &&
				acceptsHTML(r) {
				page(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func acceptsHTML(r *http.Request) bool {
	for _, part := range r.Header.Values("Accept") {
		if strings.Contains(strings.ToLower(part), "text/html") {
			return true
		}
	}
	return false
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests for up to the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
