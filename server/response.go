package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/postboard/actions"
	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/store"
)

// Error codes carried in the code field of failed responses.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{Success: true, Data: data, Message: message})
}

func fail(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, Response{Success: false, Error: message, Code: code, Details: details})
}

var errBadBody = errors.New("invalid request body")

// decode reads one JSON object from the request body into v.
func decode(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	if dec.More() {
		return errBadBody
	}
	return nil
}

// writeError maps an error to its status and code. Unknown errors are logged
// and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *actions.ValidationError

	switch {
	case errors.As(err, &verr):
		fail(w, http.StatusBadRequest, CodeValidation, "invalid input", verr.Fields)
	case errors.Is(err, errBadBody):
		fail(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
	case errors.Is(err, actions.ErrValidation):
		fail(w, http.StatusBadRequest, CodeValidation, "invalid input", nil)
	case errors.Is(err, actions.ErrUnauthorized), errors.Is(err, auth.ErrUnauthenticated):
		fail(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required", nil)
	case errors.Is(err, actions.ErrForbidden), errors.Is(err, auth.ErrForbidden):
		fail(w, http.StatusForbidden, CodeForbidden, "permission denied", nil)
	case errors.Is(err, actions.ErrNotFound), errors.Is(err, store.ErrNotFound):
		fail(w, http.StatusNotFound, CodeNotFound, "resource not found", nil)
	case errors.Is(err, actions.ErrInvalidPassword),
		errors.Is(err, actions.ErrSelfDemotion),
		errors.Is(err, actions.ErrEmailTaken):
		fail(w, http.StatusBadRequest, CodeBadRequest, userMessage(err), nil)
	default:
		s.log.Error(r.Context(), "request failed",
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.Err(err),
		)
		fail(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}

func userMessage(err error) string {
	for _, target := range []error{actions.ErrInvalidPassword, actions.ErrSelfDemotion, actions.ErrEmailTaken} {
		if errors.Is(err, target) {
			return strings.TrimPrefix(target.Error(), "actions: ")
		}
	}
	return err.Error()
}
