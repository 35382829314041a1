package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"studio-portal/internal/models"
)

const sessionColumns = `
	s.id, s.client_id, c.user_id, c.full_name, s.title, s.child_name,
	COALESCE(s.occasion_id, ''), COALESCE(o.name, ''), s.session_date,
	s.current_stage, s.status, s.package_limit, s.client_data, s.assets,
	s.revision, s.created_at, s.updated_at`

const sessionFrom = `
	FROM sessions s
	JOIN clients c ON c.id = s.client_id
	LEFT JOIN occasions o ON o.id = s.occasion_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	s := &models.Session{}
	var sessionDate sql.NullTime
	err := row.Scan(
		&s.ID, &s.ClientID, &s.OwnerUserID, &s.ClientName, &s.Title, &s.ChildName,
		&s.OccasionID, &s.Occasion, &sessionDate,
		&s.CurrentStage, &s.Status, &s.PackageLimit, &s.ClientData, &s.Assets,
		&s.Revision, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sessionDate.Valid {
		t := sessionDate.Time
		s.SessionDate = &t
	}
	return s, nil
}

// ReadSession returns the session only if it belongs to the principal.
func (db *DB) ReadSession(ctx context.Context, id string, owner models.Principal) (*models.Session, error) {
	if !owner.Authenticated() {
		return nil, ErrNotFound
	}
	row := db.QueryRowContext(ctx,
		"SELECT"+sessionColumns+sessionFrom+" WHERE s.id = ? AND c.user_id = ?",
		id, owner.UserID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	return s, nil
}

// WriteSession applies patch to a session owned by the principal, provided
// the stored revision still equals patch.ExpectedRevision.
func (db *DB) WriteSession(ctx context.Context, id string, owner models.Principal, patch models.SessionPatch) error {
	if !owner.Authenticated() {
		return ErrNotFound
	}
	return db.writeSession(ctx, id, owner.UserID, patch)
}

// LoadSession reads a session without an ownership filter. Studio use only.
func (db *DB) LoadSession(ctx context.Context, id string) (*models.Session, error) {
	row := db.QueryRowContext(ctx, "SELECT"+sessionColumns+sessionFrom+" WHERE s.id = ?", id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return s, nil
}

// UpdateSession is WriteSession without an ownership filter. Studio use only.
func (db *DB) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	return db.writeSession(ctx, id, "", patch)
}

func (db *DB) writeSession(ctx context.Context, id, ownerUserID string, patch models.SessionPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	if patch.ClientData != nil {
		sets = append(sets, "client_data = ?")
		args = append(args, *patch.ClientData)
	}
	if patch.Assets != nil {
		sets = append(sets, "assets = ?")
		args = append(args, *patch.Assets)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Stage != nil {
		sets = append(sets, "current_stage = ?")
		args = append(args, int(*patch.Stage))
	}
	sets = append(sets, "updated_at = ?", "revision = revision + 1")
	args = append(args, db.now())

	where := "id = ? AND revision = ?"
	args = append(args, id, patch.ExpectedRevision)
	if ownerUserID != "" {
		where += " AND client_id IN (SELECT id FROM clients WHERE user_id = ?)"
		args = append(args, ownerUserID)
	}

	query := "UPDATE sessions SET " + strings.Join(sets, ", ") + " WHERE " + where
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a missing or foreign row apart from a stale revision.
	existsQuery := "SELECT 1 FROM sessions WHERE id = ?"
	existsArgs := []any{id}
	if ownerUserID != "" {
		existsQuery += " AND client_id IN (SELECT id FROM clients WHERE user_id = ?)"
		existsArgs = append(existsArgs, ownerUserID)
	}
	var one int
	err = db.QueryRowContext(ctx, existsQuery, existsArgs...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return ErrConflict
}

// InsertSession stores a new session. ID, timestamps and revision are taken
// from s as given.
func (db *DB) InsertSession(ctx context.Context, s *models.Session) error {
	if s.PackageLimit < 1 {
		return fmt.Errorf("%w: package limit must be positive", models.ErrInvalidData)
	}
	if err := s.ClientData.Validate(); err != nil {
		return err
	}
	if err := s.Assets.Validate(); err != nil {
		return err
	}
	var occasionID any
	if s.OccasionID != "" {
		occasionID = s.OccasionID
	}
	var sessionDate any
	if s.SessionDate != nil {
		sessionDate = *s.SessionDate
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, client_id, occasion_id, title, child_name, session_date,
			current_stage, status, package_limit, client_data, assets, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ClientID, occasionID, s.Title, s.ChildName, sessionDate,
		int(s.CurrentStage), string(s.Status), s.PackageLimit, s.ClientData, s.Assets,
		s.Revision, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListSessionsForUser returns the principal's sessions, most recently updated first.
func (db *DB) ListSessionsForUser(ctx context.Context, owner models.Principal) ([]*models.Session, error) {
	if !owner.Authenticated() {
		return nil, nil
	}
	return db.querySessions(ctx,
		"SELECT"+sessionColumns+sessionFrom+" WHERE c.user_id = ? ORDER BY s.updated_at DESC",
		owner.UserID)
}

// ListAllSessions returns every session, most recently updated first.
func (db *DB) ListAllSessions(ctx context.Context) ([]*models.Session, error) {
	return db.querySessions(ctx, "SELECT"+sessionColumns+sessionFrom+" ORDER BY s.updated_at DESC")
}

func (db *DB) querySessions(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
