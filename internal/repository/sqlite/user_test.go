package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/model"
)

// newTestDB returns a fresh in-memory database. Each test gets its own,
// so tests never see each other's rows and need no cleanup.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     "testuser",
		FullName:     "Test User",
		Email:        email,
		PasswordHash: "$2a$04$notarealhashbutlookslikeone",
		Avatar:       model.DefaultAvatarURL,
	}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "alice@x.com")

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@x.com")

	duplicate := &model.User{
		Username: "other",
		FullName: "Other User",
		Email:    "alice@x.com",
	}
	err := db.Create(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() error = %v, want ErrConflict for duplicate email", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@x.com")

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@x.com" {
		t.Errorf("GetByID() email = %q, want %q", got.Email, "alice@x.com")
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("GetByID() did not round-trip the password hash")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@x.com")

	got, err := db.GetByEmail(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("GetByEmail() username = %q, want %q", got.Username, "testuser")
	}
}

func TestGetByRefreshToken(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")

	if err := db.UpdateRefreshToken(context.Background(), user.ID, "refresh-token-value"); err != nil {
		t.Fatalf("UpdateRefreshToken() error = %v", err)
	}

	got, err := db.GetByRefreshToken(context.Background(), "refresh-token-value")
	if err != nil {
		t.Fatalf("GetByRefreshToken() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByRefreshToken() returned user %q, want %q", got.ID, user.ID)
	}
}

// Users with no outstanding refresh token store "". Looking up "" must not
// match them: a logged-out user is not findable via an empty cookie.
func TestGetByRefreshToken_EmptyNeverMatches(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@x.com")

	_, err := db.GetByRefreshToken(context.Background(), "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByRefreshToken(\"\") error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// MUTATION TESTS
// =========================================================================

func TestUpdateRefreshToken_Rotation(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")
	ctx := context.Background()

	if err := db.UpdateRefreshToken(ctx, user.ID, "token-one"); err != nil {
		t.Fatalf("UpdateRefreshToken() error = %v", err)
	}
	if err := db.UpdateRefreshToken(ctx, user.ID, "token-two"); err != nil {
		t.Fatalf("UpdateRefreshToken() error = %v", err)
	}

	// The superseded token no longer matches anyone.
	if _, err := db.GetByRefreshToken(ctx, "token-one"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("superseded token lookup error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetByRefreshToken(ctx, "token-two"); err != nil {
		t.Errorf("current token lookup error = %v", err)
	}
}

func TestUpdateRefreshToken_Clear(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")
	ctx := context.Background()

	if err := db.UpdateRefreshToken(ctx, user.ID, "token-one"); err != nil {
		t.Fatalf("UpdateRefreshToken() error = %v", err)
	}
	if err := db.UpdateRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("UpdateRefreshToken(clear) error = %v", err)
	}

	if _, err := db.GetByRefreshToken(ctx, "token-one"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cleared token lookup error = %v, want ErrNotFound", err)
	}
}

func TestUpdateRefreshToken_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateRefreshToken(context.Background(), "no-such-id", "token")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateRefreshToken() error = %v, want ErrNotFound", err)
	}
}

func TestResetCode_SetAndClear(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")
	ctx := context.Background()

	expiry := time.Now().Add(10 * time.Minute)
	if err := db.SetResetCode(ctx, user.ID, "hash-of-code", expiry); err != nil {
		t.Fatalf("SetResetCode() error = %v", err)
	}

	got, err := db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ResetCodeHash != "hash-of-code" {
		t.Errorf("ResetCodeHash = %q, want %q", got.ResetCodeHash, "hash-of-code")
	}
	if got.ResetCodeExpiry.IsZero() {
		t.Error("ResetCodeExpiry was not stored")
	}

	if err := db.ClearResetCode(ctx, user.ID); err != nil {
		t.Fatalf("ClearResetCode() error = %v", err)
	}
	got, err = db.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ResetCodeHash != "" || !got.ResetCodeExpiry.IsZero() {
		t.Error("ClearResetCode() did not clear both reset fields")
	}
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")
	ctx := context.Background()

	if err := db.UpdatePassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := db.GetByID(ctx, user.ID)
	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "new-hash")
	}
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "a@x.com")
	createTestUser(t, db, "b@x.com")

	users, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("List() returned %d users, want 2", len(users))
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@x.com")
	ctx := context.Background()

	if err := db.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.GetByID(ctx, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again reports not found.
	if err := db.Delete(ctx, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
