package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio-portal/internal/auth"
	"studio-portal/internal/media"
	"studio-portal/internal/models"
	"studio-portal/internal/workflow"
)

type sessionView struct {
	Session       *models.Session `json:"session"`
	StageLabel    string          `json:"stage_label"`
	Selected      int             `json:"selected"`
	Locked        bool            `json:"locked"`
	CanSelectMore bool            `json:"can_select_more"`
}

func newSessionView(m *workflow.SelectionManager) sessionView {
	sess := m.Session()
	return sessionView{
		Session:       workflow.ClientView(sess),
		StageLabel:    sess.CurrentStage.Label(),
		Selected:      m.Count(),
		Locked:        m.Locked(),
		CanSelectMore: !m.Locked() && m.CanSelectMore(),
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	sessions, err := s.db.ListSessionsForUser(r.Context(), p)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	out := make([]*models.Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, workflow.ClientView(sess))
	}
	s.writeResult(w, r, nil, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Selection(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newSessionView(m))
}

func (s *Server) handleSaveSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []models.SelectionItem `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	m, err := s.svc.Selection(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	for i := range req.Items {
		req.Items[i].Note = s.clean(req.Items[i].Note)
	}
	if err := m.Replace(req.Items); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if err := m.SaveDraft(r.Context()); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newSessionView(m))
}

func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	m, err := s.svc.Selection(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if m.Locked() {
		s.writeResult(w, r, workflow.ErrLockedState, nil)
		return
	}
	if !m.Toggle(req.Filename) {
		if strings.TrimSpace(req.Filename) == "" {
			s.writeResult(w, r, &workflow.Error{Code: workflow.CodeInvalidInput, Message: "filename is required"}, nil)
			return
		}
		s.writeResult(w, r, &workflow.Error{
			Code:    workflow.CodeLimitExceeded,
			Message: fmt.Sprintf("your package includes %d images", m.Session().PackageLimit),
		}, nil)
		return
	}
	if err := m.SaveDraft(r.Context()); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newSessionView(m))
}

func (s *Server) handleSelectionNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
		Note     string `json:"note"`
		FaceSwap bool   `json:"face_swap"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	m, err := s.svc.Selection(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if m.Locked() {
		s.writeResult(w, r, workflow.ErrLockedState, nil)
		return
	}
	if !m.Has(req.Filename) {
		s.writeResult(w, r, &workflow.Error{
			Code:    workflow.CodeInvalidInput,
			Message: fmt.Sprintf("%q is not selected", req.Filename),
		}, nil)
		return
	}
	m.UpdateNote(req.Filename, s.clean(req.Note), req.FaceSwap)
	if err := m.SaveDraft(r.Context()); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newSessionView(m))
}

func (s *Server) handleSubmitSelection(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Selection(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if err := m.Submit(r.Context()); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newSessionView(m))
}

type reviewView struct {
	Stage    models.Stage          `json:"stage"`
	Status   models.Status         `json:"status"`
	Latest   []models.RevisionItem `json:"latest"`
	Approved int                   `json:"approved"`
	Total    int                   `json:"total"`
	Ready    bool                  `json:"ready_to_advance"`
}

func newReviewView(m *workflow.ReviewManager) reviewView {
	approved, total := m.Progress()
	return reviewView{
		Stage:    m.Session().CurrentStage,
		Status:   m.Session().Status,
		Latest:   m.Latest(),
		Approved: approved,
		Total:    total,
		Ready:    m.ReadyToAdvance(),
	}
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Review(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newReviewView(m))
}

// reviewAction loads the review manager and the {filename} parameter, runs
// fn and renders the refreshed review.
func (s *Server) reviewAction(w http.ResponseWriter, r *http.Request, fn func(m *workflow.ReviewManager, filename string) error) {
	filename, err := filenameParam(r)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	m, err := s.svc.Review(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if err := fn(m, filename); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newReviewView(m))
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) handleApproveRevision(w http.ResponseWriter, r *http.Request) {
	s.reviewAction(w, r, func(m *workflow.ReviewManager, filename string) error {
		return m.Approve(r.Context(), filename)
	})
}

func (s *Server) handleRejectRevision(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.reviewAction(w, r, func(m *workflow.ReviewManager, filename string) error {
		return m.Reject(r.Context(), filename, s.clean(req.Comment))
	})
}

func (s *Server) handleCommentRevision(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.reviewAction(w, r, func(m *workflow.ReviewManager, filename string) error {
		return m.Comment(r.Context(), filename, s.clean(req.Comment))
	})
}

func (s *Server) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Review(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if err := m.ApproveAll(r.Context()); err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	s.writeResult(w, r, nil, newReviewView(m))
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Delivery(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	s.writeResult(w, r, err, d)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Delivery(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	if !d.Unlocked {
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeStageMismatch, Message: d.Message}, nil)
		return
	}
	if len(d.Assets) == 0 {
		s.writeResult(w, r, &workflow.Error{Code: workflow.CodeNotFound, Message: d.Message}, nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.ArchiveName))
	err = media.WriteArchive(r.Context(), w, d.Assets, s.opener)
	if errors.Is(err, media.ErrDuplicateEntry) {
		// Rejected before the first byte, so a JSON error can still go out.
		w.Header().Del("Content-Disposition")
		s.writeResult(w, r, err, nil)
		return
	}
	if err != nil {
		// Headers are gone; all we can do is cut the stream and log.
		s.logger.Error("archive download failed",
			"session_id", chi.URLParam(r, "id"), "error", err)
		return
	}
	s.logger.Info("archive downloaded",
		"session_id", chi.URLParam(r, "id"), "files", len(d.Assets), "archive", d.ArchiveName)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	filename, err := filenameParam(r)
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}
	p := auth.PrincipalFrom(r.Context())
	id := chi.URLParam(r, "id")
	if p.IsAdmin() {
		_, err = s.studio.Session(r.Context(), p, id)
	} else {
		_, err = s.svc.Session(r.Context(), p, id)
	}
	if err != nil {
		s.writeResult(w, r, err, nil)
		return
	}

	data, err := s.thumbs.Thumbnail(id, filename)
	switch {
	case errors.Is(err, media.ErrInvalidPath):
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	case errors.Is(err, media.ErrUnsupported):
		http.Error(w, "Not an image", http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("thumbnail failed", "session_id", id, "filename", filename, "error", err)
		http.Error(w, "Failed to generate thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(data)
}
