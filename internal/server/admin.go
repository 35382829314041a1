package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio-portal/internal/admin"
	"studio-portal/internal/auth"
	"studio-portal/internal/models"
	"studio-portal/internal/workflow"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := admin.Build(r.Context(), s.db, s.now())
	s.writeResult(w, r, err, ov)
}

func (s *Server) handleInquiries(w http.ResponseWriter, r *http.Request) {
	inquiries, err := s.db.ListInquiries(r.Context())
	if inquiries == nil {
		inquiries = []models.Inquiry{}
	}
	s.writeResult(w, r, err, inquiries)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req workflow.NewSession
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if _, err := s.db.GetClient(r.Context(), req.ClientID); err != nil {
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeInvalidInput, Message: "unknown client", Cause: err}, nil)
		return
	}
	sess, err := s.studio.CreateSession(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResultStatus(w, r, http.StatusCreated, nil, sess)
}

func (s *Server) handleStartEditing(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.StartEditing(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	s.writeResult(w, r, err, sess)
}

func (s *Server) handlePublishRevision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	rev, err := s.studio.PublishRevision(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req.Filename)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResultStatus(w, r, http.StatusCreated, nil, rev)
}

func (s *Server) handleSetFinals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Finals []models.FinalAsset `json:"finals"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	sess, err := s.studio.SetFinals(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req.Finals)
	s.writeResult(w, r, err, sess)
}
