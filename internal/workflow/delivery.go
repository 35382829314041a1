package workflow

import (
	"studio-portal/internal/media"
	"studio-portal/internal/models"
)

const (
	lockedMessage    = "Your final edited photos will appear here once they're ready for download."
	preparingMessage = "Your final photos are being uploaded and will appear here shortly."
)

// IsUnlocked reports whether finals may be shown for a session at stage.
func IsUnlocked(stage models.Stage) bool {
	return stage >= models.StageDelivered
}

// Delivery is what the client sees of their finals. Assets and ArchiveName
// are only filled when Unlocked.
type Delivery struct {
	Unlocked    bool                `json:"unlocked"`
	Stage       models.Stage        `json:"stage"`
	StageLabel  string              `json:"stage_label"`
	Message     string              `json:"message,omitempty"`
	Assets      []models.FinalAsset `json:"assets,omitempty"`
	ArchiveName string              `json:"archive_name,omitempty"`
}

// NewDelivery applies the delivery gate to s.
func NewDelivery(s *models.Session) Delivery {
	d := Delivery{
		Unlocked:   IsUnlocked(s.CurrentStage),
		Stage:      s.CurrentStage,
		StageLabel: s.CurrentStage.Label(),
	}
	if !d.Unlocked {
		d.Message = lockedMessage
		return d
	}
	d.Assets = s.Assets.Clone().Finals
	if len(d.Assets) == 0 {
		d.Message = preparingMessage
		return d
	}
	d.ArchiveName = media.ArchiveName(s.Title, s.ChildName)
	return d
}

// ClientView returns a copy of s safe to show its owner: finals and the final
// gallery link stay hidden until the session is delivered.
func ClientView(s *models.Session) *models.Session {
	out := *s
	out.ClientData = s.ClientData.Clone()
	out.Assets = s.Assets.Clone()
	if !IsUnlocked(s.CurrentStage) {
		out.Assets.FinalURL = ""
		out.Assets.Finals = []models.FinalAsset{}
	}
	return &out
}
