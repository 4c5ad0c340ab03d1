package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"motoriz/internal/auth"
	"motoriz/pkg/domain"
)

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "if the address is registered a reset link has been sent"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": s.auth.Profile(), "expiresAt": claims.ExpiresAt})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Profile())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if !s.decodeJSON(w, r, &p) {
		return
	}
	updated, err := s.auth.UpdateProfile(r.Context(), p)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordChange
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.auth.ChangePassword(r.Context(), req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
