package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/service"
)

// AuthHandler serves the /api/v1/auth endpoints: the Google OAuth flow,
// refresh-token exchange, logout, and the password-reset steps.
//
// DEPENDENCY CHAIN:
//   - google *auth.GoogleProvider  → performs the OAuth code exchange
//   - svc    *service.AuthService  → session and reset-code rules
//   - frontendURL                  → where the callback redirects with the
//     freshly minted access token
type AuthHandler struct {
	google              *auth.GoogleProvider
	svc                 *service.AuthService
	frontendURL         string
	refreshCookieMaxAge int
	logger              *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected;
// the handler has no knowledge of how they are constructed.
func NewAuthHandler(
	google *auth.GoogleProvider,
	svc *service.AuthService,
	frontendURL string,
	refreshCookieMaxAge int,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:              google,
		svc:                 svc,
		frontendURL:         frontendURL,
		refreshCookieMaxAge: refreshCookieMaxAge,
		logger:              logger,
	}
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /api/v1/auth/google
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into the redirect URL and into a
// short-lived cookie. The callback verifies the two match, which proves
// the flow started on this server.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login.
//
// HTTP: GET /api/v1/auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Verify the state parameter against the state cookie
//  2. Exchange the code for the Google profile
//  3. Reuse or create the matching account
//  4. Set the refresh cookie, redirect to the frontend with the access token
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch or missing cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid OAuth state"})
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendURL+"/login?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Message: "Missing authorization code"})
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: code exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Success: false, Message: "Google login failed"})
		return
	}

	res, err := h.svc.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		writeError(w, err)
		return
	}

	setRefreshCookie(w, res.RefreshToken, h.refreshCookieMaxAge)

	// The frontend picks the token out of the query string and stores it.
	// Tokens in URLs end up in browser history and proxy logs; a known
	// trade-off of this flow.
	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+res.AccessToken, http.StatusSeeOther)
}

// HandleRefresh exchanges the refresh cookie for a new access token.
//
// HTTP: POST /api/v1/auth/refresh
//
// The refresh token travels only in the HttpOnly cookie, never in the
// body. A missing cookie is a 401; a superseded or expired token is a 403
// (mapped from the service's forbidden error).
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		writeError(w, apperror.Unauthorized("No refresh token"))
		return
	}

	accessToken, err := h.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success     bool   `json:"success"`
		AccessToken string `json:"accessToken"`
	}{Success: true, AccessToken: accessToken})
}

// HandleLogout ends the session.
//
// HTTP: POST /api/v1/auth/logout
//
// Always succeeds: the cookie is cleared client-side whether or not a
// matching session existed server-side.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}

	clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "Logged out"})
}

// HandleForgotPassword starts a password reset by emailing a 6-digit code.
//
// HTTP: POST /api/v1/auth/forgotPassword, body {email}
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "Reset code sent"})
}

// HandleVerifyResetCode checks a reset code without consuming it.
//
// HTTP: POST /api/v1/auth/verify-reset-code, body {email, code}
func (h *AuthHandler) HandleVerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	if err := h.svc.VerifyResetCode(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "Code verified"})
}

// HandleResetPassword completes the reset with a new password.
//
// HTTP: POST /api/v1/auth/reset-password, body {email, code, newPassword}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "Password reset successful"})
}
