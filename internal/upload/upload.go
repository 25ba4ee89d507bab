// Package upload stores avatar images and hands back a URL.
//
// Two implementations: LocalStore writes files under a public directory
// that the server exposes at /uploads/, and CloudinaryStore pushes bytes
// to Cloudinary and returns the CDN URL. Which one runs is a config
// decision made in the composition root.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/mediahub/internal/apperror"
)

// MaxAvatarBytes caps avatar uploads at 5 MB.
const MaxAvatarBytes = 5 << 20

// AvatarStore persists an uploaded avatar and returns its public URL.
type AvatarStore interface {
	Store(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// LocalStore writes avatars to a directory on disk. The server serves that
// directory at /uploads/avatars/, so the returned URL is a relative path.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Store validates and writes the avatar, returning its serving path.
//
// Validation mirrors the registration contract: images only, 5 MB cap.
// The stored name is a fresh xid plus the original extension, so uploads
// never collide and the original filename never reaches the filesystem.
func (s *LocalStore) Store(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := validateAvatar(contentType, data); err != nil {
		return "", err
	}

	name := xid.New().String() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("upload: writing %s: %w", path, err)
	}

	return "/uploads/avatars/" + name, nil
}

func validateAvatar(contentType string, data []byte) error {
	if !strings.HasPrefix(contentType, "image/") {
		return apperror.ValidationFailed("avatar", "Only images allowed")
	}
	if len(data) == 0 {
		return apperror.ValidationFailed("avatar", "Empty avatar file")
	}
	if len(data) > MaxAvatarBytes {
		return apperror.ValidationFailed("avatar", "Avatar must be 5MB or smaller")
	}
	return nil
}
