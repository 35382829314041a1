package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"studio-portal/internal/models"
)

// CreateUser saves a login identity. Emails are stored lower-cased.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail looks a user up for login.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (db *DB) queryUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE "+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// CreateClient saves a client profile.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	now := db.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (id, user_id, full_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.FullName, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetClient returns a client by id.
func (db *DB) GetClient(ctx context.Context, id string) (*models.Client, error) {
	c := &models.Client{}
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, email, phone, created_at, updated_at
		FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// SaveOccasion inserts an occasion or updates it in place, keeping the
// sessions booked on it linked.
func (db *DB) SaveOccasion(ctx context.Context, o *models.Occasion) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO occasions (id, name, description, image_url, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_url = excluded.image_url,
			active = excluded.active`,
		o.ID, o.Name, o.Description, o.ImageURL, o.Active, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save occasion: %w", err)
	}
	return nil
}

// ListActiveOccasions returns occasions shown on the landing page.
func (db *DB) ListActiveOccasions(ctx context.Context) ([]models.Occasion, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, image_url, active, created_at
		FROM occasions WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list occasions: %w", err)
	}
	defer rows.Close()

	var out []models.Occasion
	for rows.Next() {
		var o models.Occasion
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.ImageURL, &o.Active, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan occasion: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveInquiry stores a landing-page contact request.
func (db *DB) SaveInquiry(ctx context.Context, in *models.Inquiry) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = db.now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO inquiries (id, name, email, phone, session_type, due_date, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Email, in.Phone, in.SessionType, in.DueDate, in.Message, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("save inquiry: %w", err)
	}
	return nil
}

// ListInquiries returns contact requests, newest first.
func (db *DB) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, email, phone, session_type, due_date, message, created_at
		FROM inquiries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	var out []models.Inquiry
	for rows.Next() {
		var in models.Inquiry
		if err := rows.Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &in.SessionType, &in.DueDate, &in.Message, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
