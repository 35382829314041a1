// Package admin summarises every session for studio staff.
package admin

import (
	"context"
	"fmt"
	"time"

	"studio-portal/internal/models"
)

// Lister returns every session, most recently updated first.
type Lister interface {
	ListAllSessions(ctx context.Context) ([]*models.Session, error)
}

// Stats counts sessions by stage.
type Stats struct {
	Total              int `json:"total"`
	Selecting          int `json:"selecting"`
	Reviewing          int `json:"reviewing"`
	Delivered          int `json:"delivered"`
	CompletedThisMonth int `json:"completed_this_month"`
}

// Row is one session in the studio's project table.
type Row struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ClientName string        `json:"client_name"`
	Occasion   string        `json:"occasion,omitempty"`
	Stage      models.Stage  `json:"stage"`
	StageLabel string        `json:"stage_label"`
	Status     models.Status `json:"status"`
	Selected   int           `json:"selected"`
	Limit      int           `json:"limit"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Progress renders the selection count as "selected of limit".
func (r Row) Progress() string {
	return fmt.Sprintf("%d of %d", r.Selected, r.Limit)
}

// Overview is the admin dashboard.
type Overview struct {
	Stats    Stats `json:"stats"`
	Sessions []Row `json:"sessions"`
}

// Build loads every session and summarises it. now decides which month
// counts as "this month".
func Build(ctx context.Context, l Lister, now time.Time) (Overview, error) {
	sessions, err := l.ListAllSessions(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list sessions: %w", err)
	}
	return Summarize(sessions, now), nil
}

// Summarize computes the overview of sessions, keeping their order.
func Summarize(sessions []*models.Session, now time.Time) Overview {
	ov := Overview{Sessions: make([]Row, 0, len(sessions))}
	year, month, _ := now.Date()
	for _, s := range sessions {
		ov.Stats.Total++
		switch s.CurrentStage {
		case models.StageSelecting:
			ov.Stats.Selecting++
		case models.StageReviewing:
			ov.Stats.Reviewing++
		case models.StageDelivered:
			ov.Stats.Delivered++
		}
		if s.Status == models.StatusCompleted {
			y, m, _ := s.UpdatedAt.In(now.Location()).Date()
			if y == year && m == month {
				ov.Stats.CompletedThisMonth++
			}
		}

		ov.Sessions = append(ov.Sessions, Row{
			ID:         s.ID,
			Name:       s.DisplayName(),
			ClientName: s.ClientName,
			Occasion:   s.Occasion,
			Stage:      s.CurrentStage,
			StageLabel: s.CurrentStage.Label(),
			Status:     s.Status,
			Selected:   len(s.ClientData.SelectionManifest),
			Limit:      s.PackageLimit,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	return ov
}
