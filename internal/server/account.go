package server

import (
	"errors"
	"net/http"

	"studio-portal/internal/auth"
	"studio-portal/internal/models"
	"studio-portal/internal/workflow"
)

type principalView struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

func viewOf(p models.Principal) principalView {
	return principalView{UserID: p.UserID, Email: p.Email, Role: p.Role}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}

	token, p, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeNotAuthenticated, Message: err.Error()}, nil)
		return
	}
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}

	auth.SetTokenCookie(w, token, s.issuer.TTL(), s.secure)
	s.logger.Info("login", "user_id", p.UserID, "role", string(p.Role))
	s.writeResult(w, r, nil, viewOf(p))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	s.writeResult(w, r, nil, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, r, nil, viewOf(auth.PrincipalFrom(r.Context())))
}
