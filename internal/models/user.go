package models

import "time"

// Role separates studio staff from clients.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Principal is the authenticated caller of a workflow operation.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// IsAdmin reports whether the principal is studio staff.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// User is a login identity.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Client is the studio's customer record, linked to a login.
type Client struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Occasion is a kind of shoot offered by the studio.
type Occasion struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Inquiry is a booking request left on the landing page.
type Inquiry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	SessionType string    `json:"session_type,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
