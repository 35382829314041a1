package models

import (
	"fmt"
	"time"
)

// Stage is the position of a session in the client workflow.
type Stage int

const (
	StageSelecting Stage = 1
	StageReviewing Stage = 2
	StageDelivered Stage = 3
)

var stageLabels = map[Stage]string{
	StageSelecting: "Choosing your favorites",
	StageReviewing: "In the darkroom",
	StageDelivered: "Ready to cherish",
}

// Valid reports whether s is one of the three workflow stages.
func (s Stage) Valid() bool {
	return s >= StageSelecting && s <= StageDelivered
}

// Label returns the client-facing name of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Status is the fine-grained state of a session within its stage.
type Status string

const (
	StatusActive         Status = "active"
	StatusSubmitted      Status = "submitted"
	StatusEditing        Status = "editing"
	StatusReadyForReview Status = "ready_for_review"
	StatusCompleted      Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSubmitted, StatusEditing, StatusReadyForReview, StatusCompleted:
		return true
	}
	return false
}

// Session is a client photo session moving through the three-stage workflow.
type Session struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	OwnerUserID  string     `json:"-"`
	ClientName   string     `json:"client_name,omitempty"`
	Title        string     `json:"title"`
	ChildName    string     `json:"child_name,omitempty"`
	OccasionID   string     `json:"occasion_id,omitempty"`
	Occasion     string     `json:"occasion,omitempty"`
	SessionDate  *time.Time `json:"session_date,omitempty"`
	CurrentStage Stage      `json:"current_stage"`
	Status       Status     `json:"status"`
	PackageLimit int        `json:"package_limit"`
	ClientData   ClientData `json:"client_data"`
	Assets       Assets     `json:"assets"`
	Revision     int64      `json:"revision"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DisplayName is the title, falling back to the child's name.
func (s *Session) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.ChildName
}

// SessionPatch lists the columns a single write may change. Nil fields are
// left untouched. ExpectedRevision must match the stored revision for the
// write to apply.
type SessionPatch struct {
	ClientData       *ClientData
	Assets           *Assets
	Status           *Status
	Stage            *Stage
	ExpectedRevision int64
}

// Validate checks every field the patch sets.
func (p SessionPatch) Validate() error {
	if p.ClientData != nil {
		if err := p.ClientData.Validate(); err != nil {
			return err
		}
	}
	if p.Assets != nil {
		if err := p.Assets.Validate(); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidData, *p.Status)
	}
	if p.Stage != nil && !p.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %d", ErrInvalidData, *p.Stage)
	}
	return nil
}

// Apply copies the patch onto s and advances its revision, mirroring what
// the store does on a successful write.
func (s *Session) Apply(p SessionPatch, at time.Time) {
	if p.ClientData != nil {
		s.ClientData = p.ClientData.Clone()
	}
	if p.Assets != nil {
		s.Assets = p.Assets.Clone()
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Stage != nil {
		s.CurrentStage = *p.Stage
	}
	s.Revision++
	s.UpdatedAt = at
}
