package workflow

import (
	"context"
	"strings"

	"studio-portal/internal/models"
)

// SelectionManager holds a client's in-progress picks for one session.
// Items keep the order they were selected in.
type SelectionManager struct {
	svc       *Service
	principal models.Principal
	session   *models.Session
	order     []string
	items     map[string]models.SelectionItem
}

func newSelectionManager(svc *Service, p models.Principal, sess *models.Session) *SelectionManager {
	m := &SelectionManager{
		svc:       svc,
		principal: p,
		session:   sess,
		items:     make(map[string]models.SelectionItem, len(sess.ClientData.SelectionManifest)),
	}
	for _, item := range sess.ClientData.SelectionManifest {
		if _, dup := m.items[item.Filename]; dup {
			continue
		}
		m.order = append(m.order, item.Filename)
		m.items[item.Filename] = item
	}
	return m
}

// Session is the session the manager was loaded from, updated after writes.
func (m *SelectionManager) Session() *models.Session { return m.session }

// Locked reports whether the selection can no longer change.
func (m *SelectionManager) Locked() bool { return !CanModifySelection(m.session) }

// Count is the number of selected images.
func (m *SelectionManager) Count() int { return len(m.order) }

// Has reports whether filename is selected.
func (m *SelectionManager) Has(filename string) bool {
	_, ok := m.items[filename]
	return ok
}

// CanSelectMore reports whether another image fits in the package.
func (m *SelectionManager) CanSelectMore() bool {
	return len(m.order) < m.session.PackageLimit
}

// Items returns the selection in order.
func (m *SelectionManager) Items() []models.SelectionItem {
	out := make([]models.SelectionItem, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.items[name])
	}
	return out
}

// Toggle removes filename if selected, otherwise adds it when the package
// has room. It reports whether the selection changed; nothing changes once
// the session is locked.
func (m *SelectionManager) Toggle(filename string) bool {
	filename = strings.TrimSpace(filename)
	if filename == "" || m.Locked() {
		return false
	}
	if m.Has(filename) {
		delete(m.items, filename)
		for i, name := range m.order {
			if name == filename {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		return true
	}
	if !m.CanSelectMore() {
		return false
	}
	m.items[filename] = models.SelectionItem{
		Filename:   filename,
		SelectedAt: m.svc.now(),
	}
	m.order = append(m.order, filename)
	return true
}

// UpdateNote sets the editor note and face-swap request on a selected image.
// Unselected images and locked sessions are left alone.
func (m *SelectionManager) UpdateNote(filename, note string, faceSwap bool) bool {
	if m.Locked() {
		return false
	}
	item, ok := m.items[filename]
	if !ok {
		return false
	}
	item.Note = note
	item.FaceSwap = faceSwap
	m.items[filename] = item
	return true
}

// Replace swaps the whole selection for items, as when a client saves a
// draft built elsewhere. Duplicates are dropped, keeping the first.
func (m *SelectionManager) Replace(items []models.SelectionItem) error {
	if m.Locked() {
		return ErrLockedState
	}
	order := make([]string, 0, len(items))
	byName := make(map[string]models.SelectionItem, len(items))
	for _, item := range items {
		item.Filename = strings.TrimSpace(item.Filename)
		if item.Filename == "" {
			return newError(CodeInvalidInput, "selection with empty filename")
		}
		if _, dup := byName[item.Filename]; dup {
			continue
		}
		if item.SelectedAt.IsZero() {
			item.SelectedAt = m.svc.now()
		}
		order = append(order, item.Filename)
		byName[item.Filename] = item
	}
	m.order, m.items = order, byName
	return nil
}

// SaveDraft persists the current selection without submitting it.
func (m *SelectionManager) SaveDraft(ctx context.Context) error {
	if m.Locked() {
		return ErrLockedState
	}
	if len(m.order) > m.session.PackageLimit {
		return newError(CodeLimitExceeded, "cannot select more than %d images", m.session.PackageLimit)
	}
	data := m.session.ClientData.Clone()
	data.SelectionManifest = m.Items()
	return m.svc.commit(ctx, m.principal, m.session,
		models.SessionPatch{ClientData: &data}, EventSelectionSaved, "")
}

// Submit locks the selection and moves the session to review. The manifest,
// status and stage change in one write; a failed guard writes nothing.
func (m *SelectionManager) Submit(ctx context.Context) error {
	items := m.Items()
	if err := CanSubmitSelection(m.session, items); err != nil {
		return err
	}
	data := models.ClientData{
		SelectionManifest: items,
		RevisionHistory:   []models.RevisionItem{},
	}
	status := models.StatusSubmitted
	stage := models.StageReviewing
	return m.svc.commit(ctx, m.principal, m.session, models.SessionPatch{
		ClientData: &data,
		Status:     &status,
		Stage:      &stage,
	}, EventSelectionSubmitted, "")
}
