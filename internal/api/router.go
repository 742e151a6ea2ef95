package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"courseshare/internal/auth"
	"courseshare/internal/config"
	"courseshare/internal/db"
	"courseshare/internal/legal"
	"courseshare/internal/publicid"
	"courseshare/internal/session"
	"courseshare/internal/token"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(cfg *config.Config, database *db.DB, emailService EmailSender) (*Server, error) {
	users := db.NewUserRepository(database)
	roles := db.NewRoleRepository(database)
	courses := db.NewCourseRepository(database)
	shares := db.NewShareRepository(database)

	publicIDs, err := publicid.NewCodec()
	if err != nil {
		return nil, fmt.Errorf("initializing public id codec: %w", err)
	}

	tokens := token.NewCodec(
		cfg.Auth.JWTSecret,
		cfg.Auth.SessionTTL,
		cfg.Auth.ResetTTL,
		cfg.Auth.MagicLinkTTL,
	)
	sessions := session.NewStore(tokens, cfg.Auth.SessionTTL, cfg.SecureCookies())
	resolver := auth.NewResolver(sessions, users, roles)

	legalDocs, err := legal.Load()
	if err != nil {
		return nil, fmt.Errorf("loading legal documents: %w", err)
	}

	authHandler := NewAuthHandler(
		users,
		sessions,
		tokens,
		publicIDs,
		emailService,
		cfg.Server.AppURL,
		cfg.Auth.ResetTTL,
		cfg.Auth.MagicLinkTTL,
	)
	adminHandler := NewAdminHandler(
		users,
		resolver,
		tokens,
		publicIDs,
		emailService,
		cfg.Server.AppURL,
		cfg.Auth.ResetTTL,
	)
	userHandler := NewUserHandler(users, publicIDs)
	courseHandler := NewCourseHandler(courses, shares, publicIDs, cfg.Server.AppURL)
	healthHandler := NewHealthHandler(database)

	pageHandler, err := NewPageHandler(resolver, users, shares, legalDocs, publicIDs, cfg.Server.Name)
	if err != nil {
		return nil, fmt.Errorf("initializing page templates: %w", err)
	}

	authLimit := httprate.LimitByIP(5, time.Minute)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(1 << 20)) // 1 MB

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/signin", authHandler.SignIn)
			r.Post("/signout", authHandler.SignOut)
			r.With(RequireUser(resolver)).Get("/me", authHandler.Me)
			r.With(authLimit).Post("/magic-link/request", authHandler.RequestMagicLink)
			r.Get("/magic-link", authHandler.ConsumeMagicLink)
			r.With(authLimit).Post("/reset-password", authHandler.ResetPassword)
		})

		r.Post("/admin/users/{encodedId}/reset-password", adminHandler.ResetUserPassword)

		r.Get("/users/{encodedId}/avatar", userHandler.GetAvatar)

		r.Route("/courses", func(r chi.Router) {
			r.With(RequireUser(resolver)).Post("/share", courseHandler.Share)
			r.Get("/shared", courseHandler.GetShared)
		})
	})

	r.Get("/", pageHandler.Home)
	r.Get("/auth/signin", pageHandler.SignIn)
	r.Get("/auth/reset", pageHandler.Reset)
	r.Get("/shared", pageHandler.Shared)
	r.Get("/legal/terms", pageHandler.Legal("terms"))
	r.Get("/legal/privacy", pageHandler.Legal("privacy"))
	r.With(RequirePageRole(resolver, auth.RoleAdmin)).Get("/admin", pageHandler.AdminUsers)

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
