package handler_test

// Shared fixtures for the handler tests: an in-memory user repository, a
// recording mailer, a recording avatar store, and a fully wired
// AuthService with fast bcrypt. Handlers are exercised through
// httptest against the same chi routes the server registers.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/handler"
	"github.com/sakif/mediahub/internal/model"
	"github.com/sakif/mediahub/internal/service"
)

const refreshCookieMaxAge = 7 * 24 * 60 * 60

type memRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]*model.User), nextID: 1}
}

func (m *memRepo) Create(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("User already exists with this email")
		}
	}
	user.ID = fmt.Sprintf("u%d", m.nextID)
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", "id "+id)
	}
	copied := *u
	return &copied, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", "email "+email)
}

func (m *memRepo) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFound("user", "refresh token")
	}
	for _, u := range m.users {
		if u.RefreshToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", "refresh token")
}

func (m *memRepo) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, user *model.User) error {
	u, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", "id "+user.ID)
	}
	u.Username = user.Username
	u.FullName = user.FullName
	u.Email = user.Email
	u.Avatar = user.Avatar
	return nil
}

func (m *memRepo) UpdateRefreshToken(ctx context.Context, id, token string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", "id "+id)
	}
	u.RefreshToken = token
	return nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", "id "+id)
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) SetResetCode(ctx context.Context, id, codeHash string, expiry time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", "id "+id)
	}
	u.ResetCodeHash = codeHash
	u.ResetCodeExpiry = expiry
	return nil
}

func (m *memRepo) ClearResetCode(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", "id "+id)
	}
	u.ResetCodeHash = ""
	u.ResetCodeExpiry = time.Time{}
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", "id "+id)
	}
	delete(m.users, id)
	return nil
}

type memMailer struct {
	codes map[string]string // email -> last code
}

func newMemMailer() *memMailer { return &memMailer{codes: make(map[string]string)} }

func (m *memMailer) SendResetCode(to, code string) error {
	m.codes[to] = code
	return nil
}

// memAvatars records stored files and hands back a predictable URL.
type memAvatars struct {
	stored []string
}

func (m *memAvatars) Store(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	m.stored = append(m.stored, filename)
	return "/uploads/avatars/stored-" + filename, nil
}

// testEnv bundles everything a handler test touches.
type testEnv struct {
	repo    *memRepo
	mailer  *memMailer
	avatars *memAvatars
	tokens  *auth.TokenService
	svc     *service.AuthService
	router  *chi.Mux
}

// newTestEnv wires the user/auth handlers onto the same route tree the
// server uses, minus the OAuth routes (those need Google).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService(
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-char",
		time.Hour,
		7*24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()
	mailer := newMemMailer()
	avatars := &memAvatars{}

	svc := service.NewAuthService(repo, tokens, auth.NewPasswordServiceWithCost(4), mailer, logger)

	userHandler := handler.NewUserHandler(svc, avatars, refreshCookieMaxAge, logger)
	authHandler := handler.NewAuthHandler(nil, svc, "http://localhost:5173", refreshCookieMaxAge, logger)

	router := chi.NewRouter()
	router.Route("/api/v1/users", func(r chi.Router) {
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
	router.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/forgotPassword", authHandler.HandleForgotPassword)
		r.Post("/verify-reset-code", authHandler.HandleVerifyResetCode)
		r.Post("/reset-password", authHandler.HandleResetPassword)
	})

	return &testEnv{
		repo:    repo,
		mailer:  mailer,
		avatars: avatars,
		tokens:  tokens,
		svc:     svc,
		router:  router,
	}
}
