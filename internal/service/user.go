package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/model"
)

// GetUserByID returns the user for the given internal ID. Used by the
// /users/me handler after the middleware has validated the access token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ListUsers returns all registered users.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: listing users: %w", err)
	}
	return users, nil
}

// UpdateUserInput carries the updatable profile fields. Empty fields keep
// their current value.
type UpdateUserInput struct {
	Username string
	FullName string
	Email    string
	Avatar   string
}

// UpdateUser patches a user's profile. Changing the email re-applies the
// normalization and format rules from registration.
func (s *AuthService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	if in.Username != "" {
		user.Username = in.Username
	}
	if in.FullName != "" {
		user.FullName = in.FullName
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}
	if in.Email != "" {
		if !emailPattern.MatchString(in.Email) {
			return nil, apperror.ValidationFailed("email", "Invalid email format")
		}
		email := normalizeEmail(in.Email)
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperror.Conflict("User already exists with this email")
			} else if !errors.Is(err, apperror.ErrNotFound) {
				return nil, fmt.Errorf("service/auth: checking email availability: %w", err)
			}
			user.Email = email
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated", slog.String("userID", id))
	return user, nil
}

// DeleteUser removes an account.
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/auth: deleting user %s: %w", id, err)
	}
	s.logger.Info("user deleted", slog.String("userID", id))
	return nil
}
