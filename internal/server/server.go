package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/handlers"
	"github.com/yelpcamp/apiserver/internal/metrics"
	"github.com/yelpcamp/apiserver/internal/mq"
	"github.com/yelpcamp/apiserver/internal/security"
	"github.com/yelpcamp/apiserver/internal/services"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	limiter    *handlers.RateLimiter
}

// New wires the configured backends into the services and mounts the API.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{db: repos.db}

	images, err := openImageStore(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, err
	}
	geocoder, err := openGeocoder(cfg.Geocoder)
	if err != nil {
		s.close()
		return nil, err
	}
	notifier, queue, err := openNotifier(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.mq = queue

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewTextSanitizer()

	userService := services.NewUserService(repos.users, repos.campgrounds, images, cfg.AdminCode, collector)
	campgroundService := services.NewCampgroundService(repos.campgrounds, repos.comments, images, geocoder, sanitizer, collector)
	commentService := services.NewCommentService(repos.comments, sanitizer, collector)
	resetService := services.NewResetService(repos.users, notifier, cfg.BaseURL, cfg.ResetTokenTTL,
		services.WithResetRecorder(collector),
	)

	s.limiter = handlers.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler(registry))
	router.Group(func(r chi.Router) {
		r.Use(handlers.Identify(userService, cfg.JWTSecret))

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, resetService, cfg.JWTSecret, s.limiter)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService)
		})
		r.Route("/campgrounds", func(r chi.Router) {
			handlers.CampgroundRouter(r, campgroundService, commentService)
		})
	})
	s.router = router

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
