// Package service contains the business logic layer.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	handlers (HTTP)  ->  AuthService (rules)  ->  UserRepository (DB)
//	                 \->  TokenService (JWT), PasswordService (bcrypt),
//	                      Mailer (SMTP)
//
// Handlers own everything HTTP: cookies, headers, multipart parsing,
// status codes. This layer owns the rules: validation order, email
// normalization, token rotation, reset-code lifecycle. It returns
// apperror values; the handler layer maps those to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/mail"
	"github.com/sakif/mediahub/internal/model"
	"github.com/sakif/mediahub/internal/repository"
)

// MinPasswordLength is the registration and reset minimum.
const MinPasswordLength = 6

// emailPattern is deliberately loose: something before @, something after,
// a dot-separated TLD. Real validation is the verification email; this
// only catches obvious typos.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService handles authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	mailer    mail.Mailer
	logger    *slog.Logger
}

// NewAuthService wires an AuthService. Called from the composition root.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	mailer mail.Mailer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		mailer:    mailer,
		logger:    logger,
	}
}

// AuthResult bundles what a successful authentication produces: the user,
// the access token for the response body, and the refresh token for the
// HttpOnly cookie.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// RegisterInput is the registration payload after HTTP decoding. Avatar is
// already a URL here: when the client uploaded a file, the handler stored
// it first and passes the resulting URL.
type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Avatar   string
}

// Register creates an account and logs it in immediately.
//
// VALIDATION ORDER (each failure short-circuits):
//  1. all required fields present        -> validation error
//  2. email matches local@domain.tld     -> validation error
//  3. password at least 6 characters     -> validation error
//  4. email not already registered       -> conflict (case-insensitive)
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Username == "" || in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "All required fields must be provided")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, apperror.ValidationFailed("email", "Invalid email format")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}

	email := normalizeEmail(in.Email)

	// Lowercase before lookup AND storage: A@B.com and a@b.com collide.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("User already exists with this email")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking existing email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = model.DefaultAvatarURL
	}

	user := &model.User{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        email,
		PasswordHash: hash,
		Avatar:       avatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueSession(ctx, user)
}

// Login authenticates an email/password pair.
//
// Unknown email -> not found. Wrong password -> unauthorized. An account
// created via Google OAuth has no password hash and fails exactly like a
// wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", "email "+normalizeEmail(email))
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("Invalid Password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	// issueSession rotates the stored refresh token; this is the rotation
	// point that invalidates the previous session's refresh token.
	return s.issueSession(ctx, user)
}

// Refresh exchanges a refresh-token cookie value for a new access token.
//
// The lookup-by-stored-value runs FIRST: a token that was superseded by a
// newer login matches no row and is rejected as invalid, regardless of its
// embedded expiry. Only then is the signature/expiry checked. The refresh
// token itself is NOT rotated on this path.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Forbidden("Invalid refresh token")
		}
		return "", fmt.Errorf("service/auth: looking up refresh token: %w", err)
	}

	if _, err := s.tokens.ValidateRefresh(refreshToken); err != nil {
		return "", apperror.Forbidden("Token expired")
	}

	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing access token: %w", err)
	}

	s.logger.Debug("access token refreshed", slog.String("userID", user.ID))
	return accessToken, nil
}

// Logout clears the stored refresh token for whoever holds this cookie
// value. Idempotent: an unknown or already-cleared token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: looking up refresh token: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, ""); err != nil {
		return fmt.Errorf("service/auth: clearing refresh token: %w", err)
	}

	s.logger.Info("user logged out", slog.String("userID", user.ID))
	return nil
}

// LoginOrRegisterGoogle completes the OAuth callback: reuse the account
// matching the Google email, or create one on first login.
//
// Created accounts have NO password hash; the generated username is the
// display name with spaces stripped and lowercased, falling back to a
// timestamp-based name when Google returns no usable display name.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil || gUser.Email == "" {
		return nil, fmt.Errorf("service/auth: Google user with email required")
	}

	email := normalizeEmail(gUser.Email)

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account: reuse as-is, whichever way it was created.
	case errors.Is(err, apperror.ErrNotFound):
		avatar := gUser.Picture
		if avatar == "" {
			avatar = model.DefaultAvatarURL
		}
		fullName := gUser.Name
		if fullName == "" {
			fullName = "Google User"
		}
		user = &model.User{
			Username: usernameFromDisplayName(gUser.Name),
			FullName: fullName,
			Email:    email,
			Avatar:   avatar,
			// PasswordHash intentionally left empty for OAuth accounts.
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating OAuth user: %w", err)
		}
		s.logger.Info("user created via Google",
			slog.String("userID", user.ID),
			slog.String("email", user.Email),
		)
	default:
		return nil, fmt.Errorf("service/auth: looking up OAuth user: %w", err)
	}

	return s.issueSession(ctx, user)
}

// issueSession mints the access/refresh pair and persists the refresh
// token on the user record (rotating any previous value).
func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("service/auth: persisting refresh token: %w", err)
	}
	user.RefreshToken = refreshToken

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// usernameFromDisplayName turns "Alice Anderson" into "aliceanderson".
// A timestamp-based fallback covers accounts with empty display names.
func usernameFromDisplayName(name string) string {
	joined := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if joined == "" {
		return fmt.Sprintf("user%d", time.Now().UnixMilli())
	}
	return joined
}
