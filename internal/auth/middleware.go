package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write the
// userID value, so no other package can collide with or shadow it.
type contextKey string

const userIDKey contextKey = "userID"

// ACCESS TOKEN TRANSPORT:
// The access token travels in the Authorization header, Bearer scheme,
// and nowhere else. The refresh token is the only credential carried in a
// cookie, and only the refresh/logout endpoints read it. Supporting both
// header and cookie extraction for the SAME token invites precedence bugs,
// so this middleware reads the header only.

// RequireAuth enforces authentication on protected routes.
//
// It extracts the bearer token, validates it against the access secret, and
// stores the user ID in the request context. Responses:
//
//	401 {"success":false,"message":"no token"}           - header absent or malformed
//	401 {"success":false,"message":"invalid or expired token"} - validation failed
//
// The middleware never touches persisted state; token verification is pure
// signature and expiry checking.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := bearerToken(r)
			if err != nil {
				unauthorized(w, "no token")
				return
			}

			userID, err := tokens.ValidateAccess(tokenStr)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID.
// Returns ("", false) on an anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("auth: missing Authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("auth: Authorization header is not a Bearer token")
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errors.New("auth: empty bearer token")
	}
	return token, nil
}

// unauthorized writes the same {success, message} error shape the handler
// layer produces, encoded here because this package sits below handler in
// the import graph and cannot use its helpers.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: false, Message: message})
}
