package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GlensonAnsin/lumina/internal/audit"
	"github.com/GlensonAnsin/lumina/internal/auth"
	"github.com/GlensonAnsin/lumina/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeErrorDetails(w, r, http.StatusUnprocessableEntity, "validation failed", []map[string]string{
			{"field": "email", "message": "email and password are required"},
		})
		return
	}

	result, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.CountAuthAttempt("login", "denied")
			writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CountAuthAttempt("login", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": result.User.ID,
		"email":   result.User.Email,
	})
	writeSuccess(w, r, http.StatusOK, "login successful", result)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	token, expiresAt, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			obs.CountAuthAttempt("refresh", "denied")
			writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidRefreshToken.Error())
		case errors.Is(err, auth.ErrUserNotFound):
			obs.CountAuthAttempt("refresh", "denied")
			writeError(w, r, http.StatusUnauthorized, auth.ErrUserNotFound.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	obs.CountAuthAttempt("refresh", "ok")
	writeSuccess(w, r, http.StatusOK, "token refreshed", refreshResponse{
		AccessToken:     token,
		AccessExpiresAt: expiresAt,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Logout reports success whether or not the token existed, so the
	// endpoint cannot be used to probe token validity.
	if err := a.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.CountAuthAttempt("logout", "ok")
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeSuccess(w, r, http.StatusOK, "logged out", struct{}{})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeSuccess(w, r, http.StatusOK, "success", user)
}
