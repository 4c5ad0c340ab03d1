package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"motoriz/internal/auth"
	"motoriz/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// fieldError is one entry of a validation response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationErrors flattens a joined validation error in field order.
func validationErrors(err error) []fieldError {
	var out []fieldError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *domain.ValidationError:
			out = append(out, fieldError{Field: x.Field, Message: x.Message})
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure renders err with the status statusFor picks. Validation
// failures carry every field problem.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusUnprocessableEntity:
		errs := validationErrors(err)
		msg := "validation failed"
		if len(errs) > 0 {
			msg = errs[0].Field + ": " + errs[0].Message
		}
		writeJSON(w, status, map[string]any{"error": msg, "fields": errs})
		return
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	writeError(w, status, err.Error())
}
