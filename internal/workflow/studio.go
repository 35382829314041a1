package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"studio-portal/internal/models"
)

// StudioStore is the Entity Store as seen by studio staff: no ownership
// filter, but the same conditional writes.
type StudioStore interface {
	LoadSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error
	InsertSession(ctx context.Context, s *models.Session) error
}

// Studio runs the photographer's side of the workflow: creating sessions,
// publishing edits and delivering finals.
type Studio struct {
	store StudioStore
	options
}

// NewStudio returns a Studio over store.
func NewStudio(store StudioStore, opts ...Option) *Studio {
	return &Studio{store: store, options: buildOptions(opts)}
}

// NewSession describes a session to book.
type NewSession struct {
	ClientID     string        `json:"client_id"`
	Title        string        `json:"title"`
	ChildName    string        `json:"child_name"`
	OccasionID   string        `json:"occasion_id"`
	SessionDate  *time.Time    `json:"session_date"`
	Package      string        `json:"package"`
	PackageLimit int           `json:"package_limit"`
	Assets       models.Assets `json:"assets"`
}

func (st *Studio) authorize(p models.Principal) error {
	if !p.Authenticated() {
		return ErrNotAuthenticated
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// CreateSession books a session in stage 1. A named package sets the limit
// unless an explicit PackageLimit is given.
func (st *Studio) CreateSession(ctx context.Context, p models.Principal, in NewSession) (*models.Session, error) {
	if err := st.authorize(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, newError(CodeInvalidInput, "client_id is required")
	}
	limit := in.PackageLimit
	if limit == 0 && in.Package != "" {
		pkg, ok := models.PackageByName(in.Package)
		if !ok {
			return nil, newError(CodeInvalidInput, "unknown package %q", in.Package)
		}
		limit = pkg.Photos
	}
	if limit < 1 {
		return nil, newError(CodeInvalidInput, "package limit must be positive")
	}

	now := st.now()
	sess := &models.Session{
		ID:           uuid.NewString(),
		ClientID:     in.ClientID,
		Title:        strings.TrimSpace(in.Title),
		ChildName:    strings.TrimSpace(in.ChildName),
		OccasionID:   in.OccasionID,
		SessionDate:  in.SessionDate,
		CurrentStage: models.StageSelecting,
		Status:       models.StatusActive,
		PackageLimit: limit,
		ClientData:   models.ClientData{}.Clone(),
		Assets:       in.Assets.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.store.InsertSession(ctx, sess); err != nil {
		return nil, storeError(err)
	}
	st.logger.Info("session created", "session_id", sess.ID, "client_id", sess.ClientID, "package_limit", limit)
	return sess, nil
}

// Session loads any session.
func (st *Studio) Session(ctx context.Context, p models.Principal, id string) (*models.Session, error) {
	if err := st.authorize(p); err != nil {
		return nil, err
	}
	sess, err := st.store.LoadSession(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

// StartEditing acknowledges a submitted selection.
func (st *Studio) StartEditing(ctx context.Context, p models.Principal, id string) (*models.Session, error) {
	sess, err := st.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusSubmitted {
		return nil, newError(CodeInvalidTransition, "cannot start editing a session that is %s", sess.Status)
	}
	status := models.StatusEditing
	if err := st.commit(ctx, p, sess, models.SessionPatch{Status: &status}, EventEditingStarted, ""); err != nil {
		return nil, err
	}
	return sess, nil
}

// PublishRevision appends the next edited version of a selected image for
// the client to review. The first version, or one following a rejection,
// is accepted; a version still pending or approved blocks a new one.
func (st *Studio) PublishRevision(ctx context.Context, p models.Principal, id, filename string) (models.RevisionItem, error) {
	sess, err := st.Session(ctx, p, id)
	if err != nil {
		return models.RevisionItem{}, err
	}
	if sess.CurrentStage != models.StageReviewing {
		return models.RevisionItem{}, newError(CodeStageMismatch, "session is not in review stage")
	}
	selected := false
	for _, item := range sess.ClientData.SelectionManifest {
		if item.Filename == filename {
			selected = true
			break
		}
	}
	if !selected {
		return models.RevisionItem{}, newError(CodeInvalidInput, "%q is not in the client's selection", filename)
	}

	data := sess.ClientData.Clone()
	version := 1
	if latest, ok := LatestRevisions(data.RevisionHistory)[filename]; ok {
		if latest.Status != models.RevisionRejected {
			return models.RevisionItem{}, newError(CodeInvalidTransition,
				"version %d of %q is %s", latest.Version, filename, latest.Status)
		}
		version = latest.Version + 1
	}
	rev := models.RevisionItem{
		Filename:  filename,
		Version:   version,
		Status:    models.RevisionPending,
		CreatedAt: st.now(),
	}
	data.RevisionHistory = append(data.RevisionHistory, rev)
	status := models.StatusReadyForReview
	if err := st.commit(ctx, p, sess, models.SessionPatch{ClientData: &data, Status: &status}, EventRevisionPublished, filename); err != nil {
		return models.RevisionItem{}, err
	}
	return rev, nil
}

// SetFinals replaces the list of delivered images. The delivery gate keeps
// them hidden until the session reaches stage 3.
func (st *Studio) SetFinals(ctx context.Context, p models.Principal, id string, finals []models.FinalAsset) (*models.Session, error) {
	sess, err := st.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	assets := sess.Assets.Clone()
	assets.Finals = finals
	if err := st.commit(ctx, p, sess, models.SessionPatch{Assets: &assets}, EventFinalsUpdated, ""); err != nil {
		return nil, err
	}
	return sess, nil
}

func (st *Studio) commit(ctx context.Context, p models.Principal, sess *models.Session, patch models.SessionPatch, evtType, filename string) error {
	patch.ExpectedRevision = sess.Revision
	if err := st.store.UpdateSession(ctx, sess.ID, patch); err != nil {
		st.logger.Warn("studio write rejected", "session_id", sess.ID, "user_id", p.UserID, "action", evtType, "error", err)
		return storeError(err)
	}
	finish(st.options, sess, patch, evtType, filename)
	st.logger.Info("session updated by studio",
		"session_id", sess.ID, "user_id", p.UserID, "action", evtType,
		"stage", int(sess.CurrentStage), "status", string(sess.Status))
	return nil
}
