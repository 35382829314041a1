// Package workflow implements the three-stage client workflow of a photo
// session: selecting favorites, reviewing edits, and receiving finals.
//
// Every operation takes the calling Principal explicitly. Writes go through a
// Store that re-checks ownership and applies them only if the session has
// not changed since it was read.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"studio-portal/internal/models"
	"studio-portal/internal/storage"
)

// Store is the Entity Store as seen by client-facing operations. Both
// methods must filter by owner.
type Store interface {
	ReadSession(ctx context.Context, id string, owner models.Principal) (*models.Session, error)
	WriteSession(ctx context.Context, id string, owner models.Principal, patch models.SessionPatch) error
}

// Event types published after a successful write.
const (
	EventSelectionSaved     = "selection.saved"
	EventSelectionSubmitted = "selection.submitted"
	EventRevisionApproved   = "revision.approved"
	EventRevisionRejected   = "revision.rejected"
	EventRevisionCommented  = "revision.commented"
	EventStageAdvanced      = "stage.advanced"
	EventEditingStarted     = "editing.started"
	EventRevisionPublished  = "revision.published"
	EventFinalsUpdated      = "finals.updated"
)

// Event describes a committed change to a session.
type Event struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	Stage     models.Stage  `json:"stage"`
	Status    models.Status `json:"status"`
	Filename  string        `json:"filename,omitempty"`
	Revision  int64         `json:"revision"`
	At        time.Time     `json:"timestamp"`
}

// Notifier receives committed events. Publish must not block.
type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

type options struct {
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service or Studio.
type Option func(*options)

// WithNotifier sets where committed events are published.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithLogger sets the logger for transition logs.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func buildOptions(opts []Option) options {
	o := options{
		notifier: nopNotifier{},
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Service runs client-facing workflow operations.
type Service struct {
	store Store
	options
}

// NewService returns a Service over store.
func NewService(store Store, opts ...Option) *Service {
	return &Service{store: store, options: buildOptions(opts)}
}

// Session reads a session the principal owns.
func (s *Service) Session(ctx context.Context, p models.Principal, id string) (*models.Session, error) {
	if !p.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	sess, err := s.store.ReadSession(ctx, id, p)
	if err != nil {
		return nil, storeError(err)
	}
	return sess, nil
}

// Selection loads the session and returns a manager seeded with its manifest.
func (s *Service) Selection(ctx context.Context, p models.Principal, id string) (*SelectionManager, error) {
	sess, err := s.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return newSelectionManager(s, p, sess), nil
}

// Review loads the session and returns a manager over its revision history.
func (s *Service) Review(ctx context.Context, p models.Principal, id string) (*ReviewManager, error) {
	sess, err := s.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return &ReviewManager{svc: s, principal: p, session: sess}, nil
}

// Delivery loads the session and returns its delivery gate view.
func (s *Service) Delivery(ctx context.Context, p models.Principal, id string) (Delivery, error) {
	sess, err := s.Session(ctx, p, id)
	if err != nil {
		return Delivery{}, err
	}
	return NewDelivery(sess), nil
}

// commit writes patch for sess and, on success, mirrors it locally and
// publishes evtType.
func (s *Service) commit(ctx context.Context, p models.Principal, sess *models.Session, patch models.SessionPatch, evtType, filename string) error {
	patch.ExpectedRevision = sess.Revision
	if err := s.store.WriteSession(ctx, sess.ID, p, patch); err != nil {
		s.logger.Warn("session write rejected",
			"session_id", sess.ID, "user_id", p.UserID, "action", evtType, "error", err)
		return storeError(err)
	}
	finish(s.options, sess, patch, evtType, filename)
	s.logger.Info("session updated",
		"session_id", sess.ID, "user_id", p.UserID, "action", evtType,
		"stage", int(sess.CurrentStage), "status", string(sess.Status))
	return nil
}

func finish(o options, sess *models.Session, patch models.SessionPatch, evtType, filename string) {
	now := o.now()
	sess.Apply(patch, now)
	o.notifier.Publish(Event{
		Type:      evtType,
		SessionID: sess.ID,
		Stage:     sess.CurrentStage,
		Status:    sess.Status,
		Filename:  filename,
		Revision:  sess.Revision,
		At:        now,
	})
}

// storeError maps Entity Store failures onto the workflow taxonomy.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrConflict
	case errors.Is(err, models.ErrInvalidData):
		return &Error{Code: CodeInvalidInput, Message: err.Error(), Cause: err}
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return &Error{Code: CodeStoreWriteFailed, Message: ErrStoreWriteFailed.Message, Cause: err}
}
