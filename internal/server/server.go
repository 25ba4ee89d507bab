// Package server wires the application together and runs the HTTP server.
//
// This is the composition root: the one place where concrete types are
// constructed and injected into each other. Everything below it receives
// interfaces or ready-made values:
//
//	config.Config
//	  └→ sqlite.DB            (implements repository.UserRepository)
//	  └→ auth.TokenService, auth.PasswordService, auth.GoogleProvider
//	  └→ mail.SMTPMailer      (implements mail.Mailer)
//	  └→ upload store         (Cloudinary when configured, local otherwise)
//	      └→ service.AuthService
//	          └→ handler.UserHandler, handler.AuthHandler
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/config"
	"github.com/sakif/mediahub/internal/handler"
	"github.com/sakif/mediahub/internal/mail"
	"github.com/sakif/mediahub/internal/middleware"
	"github.com/sakif/mediahub/internal/service"
	"github.com/sakif/mediahub/internal/upload"

	sqliteRepo "github.com/sakif/mediahub/internal/repository/sqlite"
)

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the middleware chain and mounts every endpoint.
//
// ROUTE MAP:
//
//	POST /api/v1/users/register          create account (JSON or multipart)
//	POST /api/v1/users/login             email/password login
//	GET  /api/v1/users/me                own profile            (bearer)
//	GET  /api/v1/users/allusers          list users             (bearer)
//	POST /api/v1/users/update/{id}       patch profile          (bearer)
//	POST /api/v1/users/delete/{id}       delete account         (bearer)
//	GET  /api/v1/auth/google             start OAuth flow
//	GET  /api/v1/auth/google/callback    finish OAuth flow
//	POST /api/v1/auth/refresh            new access token       (cookie)
//	POST /api/v1/auth/logout             end session            (cookie)
//	POST /api/v1/auth/forgotPassword     mail a reset code
//	POST /api/v1/auth/verify-reset-code  check a reset code
//	POST /api/v1/auth/reset-password     set a new password
//	GET  /uploads/*                      locally stored avatars
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(
		s.cfg.AccessTokenSecret,
		s.cfg.RefreshTokenSecret,
		s.cfg.AccessTokenTTL,
		s.cfg.RefreshTokenTTL,
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	avatars, err := s.avatarStore()
	if err != nil {
		return fmt.Errorf("creating avatar store: %w", err)
	}

	mailer := mail.NewSMTPMailer(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.EmailFrom,
	)

	google := auth.NewGoogleProvider(
		s.cfg.GoogleClientID,
		s.cfg.GoogleClientSecret,
		s.cfg.GoogleCallbackURL,
	)

	svc := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), mailer, s.logger)

	cookieMaxAge := int(tokens.RefreshTTL() / time.Second)
	userHandler := handler.NewUserHandler(svc, avatars, cookieMaxAge, s.logger)
	authHandler := handler.NewAuthHandler(google, svc, s.cfg.FrontendURL, cookieMaxAge, s.logger)

	s.router.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", userHandler.HandleMe)
			r.Get("/allusers", userHandler.HandleAllUsers)
			r.Post("/update/{id}", userHandler.HandleUpdate)
			r.Post("/delete/{id}", userHandler.HandleDelete)
		})
	})

	s.router.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/google", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/forgotPassword", authHandler.HandleForgotPassword)
		r.Post("/verify-reset-code", authHandler.HandleVerifyResetCode)
		r.Post("/reset-password", authHandler.HandleResetPassword)
	})

	// Locally stored avatars are served straight off disk. With Cloudinary
	// configured the avatar URLs point at their CDN and this route idles.
	fileServer := http.FileServer(http.Dir(s.cfg.UploadDir))
	s.router.Handle("/uploads/avatars/*", http.StripPrefix("/uploads/avatars/", fileServer))

	return nil
}

// avatarStore picks Cloudinary when a URL is configured, local disk
// otherwise.
func (s *Server) avatarStore() (upload.AvatarStore, error) {
	if s.cfg.CloudinaryURL != "" {
		s.logger.Info("avatar uploads going to Cloudinary")
		return upload.NewCloudinaryStore(s.cfg.CloudinaryURL)
	}
	s.logger.Info("avatar uploads going to local disk", slog.String("dir", s.cfg.UploadDir))
	return upload.NewLocalStore(s.cfg.UploadDir)
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
