// Package config loads and validates all application configuration.
//
// CONFIGURATION POLICY:
// Everything comes from environment variables (optionally via a .env file in
// development, loaded by godotenv). The process refuses to start when a
// required value is missing: a server that boots with an empty JWT secret or
// no mail credentials would fail in confusing ways at request time, so we
// fail loudly at startup instead.
//
// Optional values get sensible development defaults. Required values are
// collected into a single error listing every missing key, so an operator
// fixes the environment in one pass instead of playing whack-a-mole.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Port   int
	DBPath string

	// Token signing. Access and refresh tokens use DISTINCT secrets so a
	// leaked access secret cannot be used to forge long-lived refresh tokens.
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Google OAuth.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// Outbound mail (reset-code delivery).
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Where the browser lands after the OAuth dance.
	FrontendURL string

	// Avatar storage. When CloudinaryURL is set, uploads go to Cloudinary;
	// otherwise they are written to UploadDir and served under /uploads/.
	UploadDir     string
	CloudinaryURL string
}

// Load reads configuration from the environment.
//
// A .env file in the working directory is loaded first (ignored if absent),
// matching how the rest of the tooling around this project works. Real
// environment variables win over .env values.
func Load() (*Config, error) {
	// godotenv.Load does NOT override variables that are already set,
	// which is exactly the precedence we want.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               8080,
		DBPath:             envOrDefault("DB_PATH", "data/mediahub.db"),
		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           587,
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		EmailFrom:          os.Getenv("EMAIL_FROM"),
		FrontendURL:        envOrDefault("FRONTEND_URL", "http://localhost:5173"),
		UploadDir:          envOrDefault("UPLOAD_DIR", "public/uploads/avatars"),
		CloudinaryURL:      os.Getenv("CLOUDINARY_URL"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if smtpPortStr := os.Getenv("SMTP_PORT"); smtpPortStr != "" {
		port, err := strconv.Atoi(smtpPortStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SMTP_PORT %q: %w", smtpPortStr, err)
		}
		cfg.SMTPPort = port
	}

	if ttl, err := parseDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	} else {
		cfg.AccessTokenTTL = ttl
	}
	if ttl, err := parseDuration("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return nil, err
	} else {
		cfg.RefreshTokenTTL = ttl
	}

	// The callback URL defaults to this server's own address. It must match
	// the "Authorized redirect URI" registered in the Google console.
	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/api/v1/auth/google/callback", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces the fail-fast policy: every key the auth flow depends on
// must be present before the server starts serving traffic.
func (c *Config) validate() error {
	var missing []string

	required := []struct {
		key, value string
	}{
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
		{"REFRESH_TOKEN_SECRET", c.RefreshTokenSecret},
		{"GOOGLE_CLIENT_ID", c.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", c.GoogleClientSecret},
		{"SMTP_HOST", c.SMTPHost},
		{"SMTP_USER", c.SMTPUser},
		{"SMTP_PASS", c.SMTPPass},
		{"EMAIL_FROM", c.EmailFrom},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
