package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/model"
)

// PASSWORD RESET STATE MACHINE:
//
//	NoReset --Forgot--> CodeIssued --Verify--> CodeVerified --Reset--> NoReset
//
// The state lives entirely on the user record as (reset_code_hash,
// reset_code_expiry). A new Forgot overwrites any outstanding code, so at
// most one code is meaningful at a time. Reset re-validates the full
// email+code+expiry tuple rather than consuming a separate authorization
// artifact from the Verify step, and clears the fields on success, which
// makes the code single-use.

// ForgotPassword issues a reset code and mails it.
//
// Unknown email is reported to the caller (404); whether the MAIL arrived
// is not. A delivery failure is logged server-side and the request still
// succeeds, so the endpoint cannot be used to probe the mail relay.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "Email is required")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("user", "email "+normalizeEmail(email))
		}
		return fmt.Errorf("service/auth: looking up user for reset: %w", err)
	}

	code, hashed, err := auth.NewResetCode()
	if err != nil {
		return fmt.Errorf("service/auth: generating reset code: %w", err)
	}

	expiry := time.Now().Add(auth.ResetCodeTTL)
	if err := s.users.SetResetCode(ctx, user.ID, hashed, expiry); err != nil {
		return fmt.Errorf("service/auth: storing reset code: %w", err)
	}

	if err := s.mailer.SendResetCode(user.Email, code); err != nil {
		s.logger.Error("reset code email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("reset code issued", slog.String("userID", user.ID))
	}

	return nil
}

// VerifyResetCode checks an email+code pair against the stored hash and
// expiry. Any mismatch, including an unknown email, answers the same way:
// "Invalid or expired code".
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.userForResetCode(ctx, email, code)
	return err
}

// ResetPassword completes the flow: the same tuple is re-validated, the
// new password stored, and the code cleared so it cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}

	user, err := s.userForResetCode(ctx, email, code)
	if err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: storing new password: %w", err)
	}
	if err := s.users.ClearResetCode(ctx, user.ID); err != nil {
		return fmt.Errorf("service/auth: clearing reset code: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))
	return nil
}

// userForResetCode validates the email+code+expiry tuple shared by the
// verify and reset steps.
func (s *AuthService) userForResetCode(ctx context.Context, email, code string) (*model.User, error) {
	invalid := apperror.ValidationFailed("code", "Invalid or expired code")

	if email == "" || code == "" {
		return nil, invalid
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user for reset code: %w", err)
	}

	if user.ResetCodeHash == "" || user.ResetCodeHash != auth.HashResetCode(code) {
		return nil, invalid
	}
	if user.ResetCodeExpiry.IsZero() || time.Now().After(user.ResetCodeExpiry) {
		return nil, invalid
	}

	return user, nil
}
