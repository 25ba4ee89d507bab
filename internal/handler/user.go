package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mediahub/internal/apperror"
	"github.com/sakif/mediahub/internal/auth"
	"github.com/sakif/mediahub/internal/model"
	"github.com/sakif/mediahub/internal/service"
	"github.com/sakif/mediahub/internal/upload"
)

// UserHandler serves the /api/v1/users endpoints: registration, login,
// profile reads and updates.
//
// DEPENDENCY CHAIN:
//   - svc     *service.AuthService → all business rules
//   - avatars upload.AvatarStore   → stores uploaded avatar files
//   - refreshCookieMaxAge          → lifetime for the refreshToken cookie,
//     derived from the refresh-token TTL so the cookie and the JWT expire
//     together
type UserHandler struct {
	svc                 *service.AuthService
	avatars             upload.AvatarStore
	refreshCookieMaxAge int
	logger              *slog.Logger
}

// NewUserHandler creates a UserHandler with its dependencies injected.
func NewUserHandler(
	svc *service.AuthService,
	avatars upload.AvatarStore,
	refreshCookieMaxAge int,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		svc:                 svc,
		avatars:             avatars,
		refreshCookieMaxAge: refreshCookieMaxAge,
		logger:              logger,
	}
}

// registerRequest is the JSON registration body. The same fields arrive as
// form values when the client sends multipart (to attach an avatar file).
type registerRequest struct {
	Username string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the body of a successful register or login.
type authResponse struct {
	Success     bool             `json:"success"`
	AccessToken string           `json:"accessToken"`
	User        model.PublicUser `json:"user"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/v1/users/register
//
// Accepts either a JSON body or multipart form data. Multipart is used
// when the client attaches an avatar file: the file is stored first and
// its URL takes the place of the avatar field.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput

	if isMultipart(r) {
		req, err := h.decodeMultipartRegister(r)
		if err != nil {
			writeError(w, err)
			return
		}
		in = req
	} else {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.ValidationFailed("", "Invalid request body"))
			return
		}
		in = service.RegisterInput{
			Username: req.Username,
			FullName: req.FullName,
			Email:    req.Email,
			Password: req.Password,
			Avatar:   req.Avatar,
		}
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	setRefreshCookie(w, res.RefreshToken, h.refreshCookieMaxAge)
	writeJSON(w, http.StatusCreated, authResponse{
		Success:     true,
		AccessToken: res.AccessToken,
		User:        res.User.Public(),
	})
}

// HandleLogin authenticates an email/password pair.
//
// HTTP: POST /api/v1/users/login
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setRefreshCookie(w, res.RefreshToken, h.refreshCookieMaxAge)
	writeJSON(w, http.StatusOK, authResponse{
		Success:     true,
		AccessToken: res.AccessToken,
		User:        res.User.Public(),
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/v1/users/me (bearer-protected)
//
// The user ID comes from the request context, where the auth middleware
// put it after validating the access token.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("no token"))
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool        `json:"success"`
		User    *model.User `json:"user"`
	}{Success: true, User: user})
}

// HandleAllUsers lists every registered user.
//
// HTTP: GET /api/v1/users/allusers (bearer-protected)
func (h *UserHandler) HandleAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		Users   []model.User `json:"users"`
	}{Success: true, Users: users})
}

// HandleUpdate patches a user's profile fields.
//
// HTTP: POST /api/v1/users/update/{id} (bearer-protected)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Username string `json:"userName"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), id, service.UpdateUserInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool        `json:"success"`
		User    *model.User `json:"user"`
	}{Success: true, User: user})
}

// HandleDelete removes an account.
//
// HTTP: POST /api/v1/users/delete/{id} (bearer-protected)
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "User deleted"})
}

// decodeMultipartRegister reads the registration fields from a multipart
// form and, when an avatar file is attached, stores it and records the
// resulting URL.
func (h *UserHandler) decodeMultipartRegister(r *http.Request) (service.RegisterInput, error) {
	var in service.RegisterInput

	if err := r.ParseMultipartForm(upload.MaxAvatarBytes + 1<<20); err != nil {
		return in, apperror.ValidationFailed("", "Invalid multipart form")
	}

	in.Username = r.FormValue("userName")
	in.FullName = r.FormValue("fullName")
	in.Email = r.FormValue("email")
	in.Password = r.FormValue("password")

	file, header, err := r.FormFile("avatar")
	switch err {
	case nil:
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, upload.MaxAvatarBytes+1))
		if readErr != nil {
			return in, apperror.ValidationFailed("avatar", "Could not read avatar file")
		}
		url, storeErr := h.avatars.Store(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
		if storeErr != nil {
			return in, storeErr
		}
		in.Avatar = url
	case http.ErrMissingFile:
		// no avatar attached; the service fills in the placeholder
	default:
		return in, apperror.ValidationFailed("avatar", "Could not read avatar file")
	}

	return in, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

// setRefreshCookie sets the refreshToken cookie that backs the
// /api/v1/auth/refresh endpoint.
//
// HttpOnly keeps it away from page scripts; SameSite=Strict keeps it off
// cross-site requests; the max age matches the refresh JWT's TTL.
func setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the cookie immediately.
func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
