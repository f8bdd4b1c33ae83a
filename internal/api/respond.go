package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Detail string            `json:"detail"`
	Code   domainerrors.Code `json:"code"`
}

var okResponse = map[string]bool{"ok": true}

var errMalformedBody = domainerrors.Validation("malformed request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status code and writes it as
// {"detail": ..., "code": ...}. Internal errors are logged and answered with
// a generic message.
func (api *Api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) {
		domainErr = domainerrors.Internal(err)
	}

	status := domainErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		api.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	if domainErr.Code == domainerrors.CodeUnauthenticated || domainErr.Code == domainerrors.CodeInvalidCredentials {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeJSON(w, status, errorResponse{Detail: domainErr.Message, Code: domainErr.Code})
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errMalformedBody.WithCause(err)
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domainerrors.Validationf("%s must be a positive integer", name)
	}
	return id, nil
}
