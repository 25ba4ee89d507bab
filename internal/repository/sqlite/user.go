package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/model"
	"github.com/sakif/mediahub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, full_name, email, password_hash, avatar,
	refresh_token, reset_code_hash, reset_code_expiry, created_at, updated_at`

// Create inserts a new user, generating the ID and timestamps.
//
// The UNIQUE index on email is the last line of defence against duplicate
// registration: the service checks by lookup first, but two concurrent
// registrations for the same address can both pass that check, and one of
// them lands here. The constraint violation is mapped to a Conflict so the
// handler still answers 409.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, full_name, email, password_hash, avatar,
		 refresh_token, reset_code_hash, reset_code_expiry, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.RefreshToken,
		user.ResetCodeHash,
		nullableTime(user.ResetCodeExpiry),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists with this email")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id, "id "+id)
}

// GetByEmail retrieves a user by (already lowercased) email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email = ?", email, "email "+email)
}

// GetByRefreshToken finds the user whose stored refresh token equals the
// given value. The empty string never matches: an empty stored column
// means "no outstanding refresh token", not a token with value "".
func (db *DB) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFound("user", "refresh token")
	}
	return db.getUser(ctx, "refresh_token = ?", token, "refresh token")
}

func (db *DB) getUser(ctx context.Context, where string, arg any, notFoundKey string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", notFoundKey)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", where, err)
	}
	return u, nil
}

// List returns all users ordered by creation time.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// Update rewrites the profile fields (username, full name, email, avatar).
// Credential columns have their own dedicated mutators below.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, full_name = ?, email = ?, avatar = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, user.FullName, user.Email, user.Avatar, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists with this email")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return requireRowAffected(res, user.ID)
}

// UpdateRefreshToken rotates (or, with "", clears) the stored refresh token.
// Plain last-write-wins: when two logins race, the later write defines the
// only refresh token the refresh endpoint will accept.
func (db *DB) UpdateRefreshToken(ctx context.Context, id, token string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating refresh token for user %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// UpdatePassword stores a new password hash.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// SetResetCode stores a reset-code hash and its expiry, overwriting any
// previous outstanding code.
func (db *DB) SetResetCode(ctx context.Context, id, codeHash string, expiry time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_code_hash = ?, reset_code_expiry = ?, updated_at = ? WHERE id = ?`,
		codeHash, expiry.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset code for user %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// ClearResetCode removes the reset-code fields after a successful reset,
// making the code single-use.
func (db *DB) ClearResetCode(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_code_hash = '', reset_code_expiry = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing reset code for user %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// Delete removes a user row.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var resetExpiry sql.NullTime

	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar,
		&u.RefreshToken,
		&u.ResetCodeHash,
		&resetExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resetExpiry.Valid {
		u.ResetCodeExpiry = resetExpiry.Time
	}
	return &u, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for user %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("user", "id "+id)
	}
	return nil
}

// isUniqueViolation detects a UNIQUE constraint failure without importing
// driver-specific error types; modernc.org/sqlite reports the constraint
// in the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
