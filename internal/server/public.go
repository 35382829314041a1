package server

import (
	"embed"
	"html/template"
	"net/http"
	"net/mail"

	"github.com/google/uuid"

	"studio-portal/internal/models"
	"studio-portal/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

var landingTemplate = template.Must(template.ParseFS(templateFS, "templates/landing.html"))

type landingPage struct {
	Packages  []models.Package
	Occasions []models.Occasion
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	occasions, err := s.db.ListActiveOccasions(r.Context())
	if err != nil {
		s.logger.Error("failed to list occasions", "error", err)
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landingTemplate.Execute(w, landingPage{Packages: models.Packages, Occasions: occasions}); err != nil {
		s.logger.Error("failed to render landing page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		SessionType string `json:"sessionType"`
		DueDate     string `json:"dueDate"`
		Message     string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}

	in := &models.Inquiry{
		ID:          uuid.NewString(),
		Name:        s.clean(req.Name),
		Email:       s.clean(req.Email),
		Phone:       s.clean(req.Phone),
		SessionType: s.clean(req.SessionType),
		DueDate:     s.clean(req.DueDate),
		Message:     s.clean(req.Message),
		CreatedAt:   s.now(),
	}
	if in.Name == "" || in.Message == "" {
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeInvalidInput, Message: "name and message are required"}, nil)
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeInvalidInput, Message: "a valid email is required"}, nil)
		return
	}

	if err := s.db.SaveInquiry(r.Context(), in); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.logger.Info("inquiry received", "inquiry_id", in.ID, "session_type", in.SessionType)
	s.writeResultStatus(w, r, http.StatusCreated, nil, map[string]string{"id": in.ID})
}
