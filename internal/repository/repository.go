// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/mediahub/internal/model"
)

// UserRepository is the credential store.
//
// Email lookups expect an already-lowercased address; normalization is the
// service layer's job so the rule lives in exactly one place.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByRefreshToken finds the user whose STORED refresh token equals
	// the given value. This equality check is what makes superseded
	// refresh tokens unusable before they expire.
	GetByRefreshToken(ctx context.Context, token string) (*model.User, error)

	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error

	// UpdateRefreshToken rotates the stored refresh token. An empty token
	// clears it (logout).
	UpdateRefreshToken(ctx context.Context, id, token string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetCode(ctx context.Context, id, codeHash string, expiry time.Time) error
	ClearResetCode(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
