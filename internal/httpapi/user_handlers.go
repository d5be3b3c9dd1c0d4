package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/GlensonAnsin/lumina/internal/audit"
	"github.com/GlensonAnsin/lumina/internal/auth"
)

type userListResponse struct {
	Users []*auth.User  `json:"users"`
	Meta  auth.PageMeta `json:"meta"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "limit", 10)

	users, meta, err := a.auth.ListUsers(r.Context(), page, perPage)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeSuccess(w, r, http.StatusOK, "success", userListResponse{Users: users, Meta: meta})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	if !auth.HasRole(r.Context(), "admin") {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var in auth.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.auth.CreateUser(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "email already registered")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"created_user_id": user.ID,
		"email":           user.Email,
	})
	writeSuccess(w, r, http.StatusCreated, "user created", user)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
