package workflow

import (
	"context"
	"strings"

	"studio-portal/internal/models"
)

// ReviewManager acts on the revision history of a session in stage 2.
type ReviewManager struct {
	svc       *Service
	principal models.Principal
	session   *models.Session
}

// Session is the session the manager was loaded from, updated after writes.
func (m *ReviewManager) Session() *models.Session { return m.session }

// Latest returns the actionable revision of every image, by filename.
func (m *ReviewManager) Latest() []models.RevisionItem {
	return SortedLatest(m.session.ClientData.RevisionHistory)
}

// LatestFor returns the latest revision of one image.
func (m *ReviewManager) LatestFor(filename string) (models.RevisionItem, bool) {
	rev, ok := LatestRevisions(m.session.ClientData.RevisionHistory)[filename]
	return rev, ok
}

// Progress counts approved images against all images under review.
func (m *ReviewManager) Progress() (approved, total int) {
	for _, rev := range m.Latest() {
		total++
		if rev.Status == models.RevisionApproved {
			approved++
		}
	}
	return approved, total
}

// ReadyToAdvance reports whether ApproveAll would pass its guard.
func (m *ReviewManager) ReadyToAdvance() bool {
	return m.session.CurrentStage == models.StageReviewing && IsStageReadyToAdvance(m.session)
}

// Approve marks the latest version of filename approved. Approving an
// already-approved version succeeds without writing.
func (m *ReviewManager) Approve(ctx context.Context, filename string) error {
	return m.mutateLatest(ctx, filename, EventRevisionApproved, func(rev *models.RevisionItem) (bool, error) {
		switch rev.Status {
		case models.RevisionApproved:
			return false, nil
		case models.RevisionRejected:
			return false, ErrRevisionNotPending
		}
		rev.Status = models.RevisionApproved
		return true, nil
	})
}

// Reject asks for another edit of filename, with the client's feedback.
func (m *ReviewManager) Reject(ctx context.Context, filename, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return newError(CodeInvalidInput, "a comment is required to request a revision")
	}
	return m.mutateLatest(ctx, filename, EventRevisionRejected, func(rev *models.RevisionItem) (bool, error) {
		if rev.Status != models.RevisionPending {
			return false, ErrRevisionNotPending
		}
		rev.Status = models.RevisionRejected
		rev.ClientComment = comment
		return true, nil
	})
}

// Comment attaches feedback to the latest version without changing its status.
func (m *ReviewManager) Comment(ctx context.Context, filename, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return newError(CodeInvalidInput, "comment is empty")
	}
	return m.mutateLatest(ctx, filename, EventRevisionCommented, func(rev *models.RevisionItem) (bool, error) {
		rev.ClientComment = comment
		return true, nil
	})
}

// ApproveAll delivers the session once every image is approved.
func (m *ReviewManager) ApproveAll(ctx context.Context) error {
	if m.session.CurrentStage != models.StageReviewing {
		return newError(CodeStageMismatch, "session is not in review stage")
	}
	if !IsStageReadyToAdvance(m.session) {
		return ErrNotAllApproved
	}
	status := models.StatusCompleted
	stage := models.StageDelivered
	return m.svc.commit(ctx, m.principal, m.session, models.SessionPatch{
		Status: &status,
		Stage:  &stage,
	}, EventStageAdvanced, "")
}

// mutateLatest rewrites the whole history with fn applied to the latest
// version of filename. fn reports whether anything changed.
func (m *ReviewManager) mutateLatest(ctx context.Context, filename, evtType string, fn func(*models.RevisionItem) (bool, error)) error {
	if m.session.CurrentStage != models.StageReviewing {
		return newError(CodeStageMismatch, "session is not in review stage")
	}
	data := m.session.ClientData.Clone()
	i, ok := latestIndex(data.RevisionHistory)[filename]
	if !ok {
		return ErrRevisionNotFound
	}
	changed, err := fn(&data.RevisionHistory[i])
	if err != nil || !changed {
		return err
	}
	return m.svc.commit(ctx, m.principal, m.session,
		models.SessionPatch{ClientData: &data}, evtType, filename)
}
