// Package auth provides token issuance, password hashing, reset codes, and
// the session middleware for the API.
//
// SESSION MODEL:
// Two signed JWTs per session, with DISTINCT secrets and lifetimes:
//
//   - Access token: short-lived (about an hour). Sent by the client in an
//     Authorization: Bearer header on every request. Verified statelessly,
//     no database lookup.
//   - Refresh token: long-lived (days). Lives in an HttpOnly cookie AND on
//     the user's database row. The refresh endpoint accepts a cookie only
//     if it equals the stored value, so a token superseded by a newer login
//     is rejected even before its embedded expiry elapses.
//
// Both tokens embed the user ID (the "sub" claim) and a unique token ID
// (the "jti" claim), so no two issued tokens are ever byte-identical.
// Everything else is looked up fresh when needed.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "mediahub"

// Sentinel errors returned by Validate*. Callers distinguish expiry from
// tampering so the refresh endpoint can answer "Token expired" precisely.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService signs and verifies access and refresh tokens.
//
// The two token kinds use separate HMAC secrets. A leaked access secret
// must not allow forging refresh tokens, and vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a TokenService.
//
// Secrets shorter than 16 characters are rejected here, at construction
// time: a missing or weak signing secret should stop the process at start,
// not surface as a per-request failure.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) < 16 {
		return nil, errors.New("auth: access token secret must be at least 16 characters")
	}
	if len(refreshSecret) < 16 {
		return nil, errors.New("auth: refresh token secret must be at least 16 characters")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// claims is the JWT payload: just the registered claims, with the user ID
// in "sub".
type claims struct {
	jwt.RegisteredClaims
}

// IssueAccess signs a short-lived access token for the given user ID.
// Every call produces a distinct token, even within the same second.
func (s *TokenService) IssueAccess(userID string) (string, error) {
	return s.sign(userID, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the given user ID.
func (s *TokenService) IssueRefresh(userID string) (string, error) {
	return s.sign(userID, s.refreshSecret, s.refreshTTL)
}

// RefreshTTL exposes the refresh lifetime so the handler can set a cookie
// max age that matches the token's embedded expiry.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: user ID must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			// A fresh jti per issuance. iat/exp have second granularity,
			// so without it two logins inside one second would mint
			// byte-identical refresh tokens and rotation could not tell
			// the superseded token from the current one.
			ID: xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// ValidateAccess verifies an access token and returns the user ID it
// carries. Returns ErrTokenExpired or ErrTokenInvalid on failure.
func (s *TokenService) ValidateAccess(tokenStr string) (string, error) {
	return s.validate(tokenStr, s.accessSecret)
}

// ValidateRefresh verifies a refresh token's signature and expiry.
//
// NOTE: this checks the token in isolation. The refresh endpoint must ALSO
// compare the token against the value stored on the user record; a token
// that passes here can still have been superseded by a later login.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	return s.validate(tokenStr, s.refreshSecret)
}

func (s *TokenService) validate(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject anything not signed with HMAC. Without this check an
			// attacker could attempt an algorithm confusion attack.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrTokenInvalid)
	}
	return c.Subject, nil
}

// issueWithTTL signs a token with a custom lifetime against the access
// secret. Unexported, used by tests to mint already-expired tokens.
func (s *TokenService) issueWithTTL(userID string, ttl time.Duration) (string, error) {
	return s.sign(userID, s.accessSecret, ttl)
}

// issueRefreshWithTTL is the refresh-secret counterpart of issueWithTTL.
func (s *TokenService) issueRefreshWithTTL(userID string, ttl time.Duration) (string, error) {
	return s.sign(userID, s.refreshSecret, ttl)
}
