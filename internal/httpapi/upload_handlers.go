package httpapi

import (
	"errors"
	"net/http"

	"github.com/GlensonAnsin/lumina/internal/audit"
	"github.com/GlensonAnsin/lumina/internal/storage"
)

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(storage.MaxFileSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	info, err := a.uploads.Save("file", header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidType):
			writeError(w, r, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, storage.ErrExtensionMismatch):
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, storage.ErrTooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "upload.store", map[string]any{
		"name": info.Name,
		"size": info.Size,
	})
	writeSuccess(w, r, http.StatusCreated, "file uploaded", info)
}
