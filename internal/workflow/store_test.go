package workflow

import (
	"context"
	"sync"
	"time"

	"studio-portal/internal/models"
	"studio-portal/internal/storage"
)

// memStore is an in-memory Store and StudioStore with the same ownership and
// revision rules as the SQLite store.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	writes   int
	failWith error
}

func newMemStore(sessions ...*models.Session) *memStore {
	m := &memStore{sessions: make(map[string]*models.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func copySession(s *models.Session) *models.Session {
	out := *s
	out.ClientData = s.ClientData.Clone()
	out.Assets = s.Assets.Clone()
	return &out
}

func (m *memStore) ReadSession(_ context.Context, id string, owner models.Principal) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !owner.Authenticated() || s.OwnerUserID != owner.UserID {
		return nil, storage.ErrNotFound
	}
	return copySession(s), nil
}

func (m *memStore) WriteSession(ctx context.Context, id string, owner models.Principal, patch models.SessionPatch) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || !owner.Authenticated() || s.OwnerUserID != owner.UserID {
		return storage.ErrNotFound
	}
	return m.UpdateSession(ctx, id, patch)
}

func (m *memStore) LoadSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySession(s), nil
}

func (m *memStore) UpdateSession(_ context.Context, id string, patch models.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	s, ok := m.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	if s.Revision != patch.ExpectedRevision {
		return storage.ErrConflict
	}
	s.Apply(patch, time.Now())
	m.writes++
	return nil
}

func (m *memStore) InsertSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *memStore) get(id string) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.sessions[id])
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	owner    = models.Principal{UserID: "user-1", Email: "jane@example.com", Role: models.RoleClient}
	stranger = models.Principal{UserID: "user-2", Email: "eve@example.com", Role: models.RoleClient}
	staff    = models.Principal{UserID: "admin-1", Email: "studio@example.com", Role: models.RoleAdmin}
)

func activeSession(id string, limit int, picks ...string) *models.Session {
	s := &models.Session{
		ID:           id,
		ClientID:     "client-1",
		OwnerUserID:  owner.UserID,
		Title:        "Ada's Newborn",
		CurrentStage: models.StageSelecting,
		Status:       models.StatusActive,
		PackageLimit: limit,
		ClientData:   models.ClientData{}.Clone(),
		Assets:       models.Assets{}.Clone(),
	}
	for _, f := range picks {
		s.ClientData.SelectionManifest = append(s.ClientData.SelectionManifest, models.SelectionItem{Filename: f})
	}
	return s
}

func reviewingSession(id string, history ...models.RevisionItem) *models.Session {
	s := activeSession(id, 10)
	s.CurrentStage = models.StageReviewing
	s.Status = models.StatusReadyForReview
	s.ClientData.RevisionHistory = history
	for _, rev := range history {
		found := false
		for _, item := range s.ClientData.SelectionManifest {
			if item.Filename == rev.Filename {
				found = true
			}
		}
		if !found {
			s.ClientData.SelectionManifest = append(s.ClientData.SelectionManifest, models.SelectionItem{Filename: rev.Filename})
		}
	}
	return s
}

func rev(filename string, version int, status models.RevisionStatus) models.RevisionItem {
	return models.RevisionItem{Filename: filename, Version: version, Status: status}
}
