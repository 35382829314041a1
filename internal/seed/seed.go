// Package seed loads demo users, clients, occasions and sessions from YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"studio-portal/internal/auth"
	"studio-portal/internal/models"
	"studio-portal/internal/storage"
	"studio-portal/internal/workflow"
)

// Fixtures is the YAML document accepted by Load.
type Fixtures struct {
	Occasions []Occasion `yaml:"occasions"`
	Users     []User     `yaml:"users"`
}

// Occasion is a shoot type offered on the landing page.
type Occasion struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ImageURL    string `yaml:"image_url"`
	Inactive    bool   `yaml:"inactive"`
}

// User is a login. Users with a client block also get a client profile and
// may own sessions.
type User struct {
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Role     string  `yaml:"role"`
	Client   *Client `yaml:"client"`
}

// Client is the profile and bookings of a client user.
type Client struct {
	FullName string    `yaml:"full_name"`
	Phone    string    `yaml:"phone"`
	Sessions []Session `yaml:"sessions"`
}

// Session is a booked shoot.
type Session struct {
	Title        string              `yaml:"title"`
	ChildName    string              `yaml:"child_name"`
	Occasion     string              `yaml:"occasion"`
	Date         string              `yaml:"date"`
	Package      string              `yaml:"package"`
	PackageLimit int                 `yaml:"package_limit"`
	PreviewURL   string              `yaml:"preview_url"`
	Finals       []models.FinalAsset `yaml:"finals"`
}

// Store is what seeding writes to.
type Store interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	CreateClient(ctx context.Context, c *models.Client) error
	SaveOccasion(ctx context.Context, o *models.Occasion) error
}

// Report counts what was created. Users already present are counted in
// Skipped and left untouched, with their client profile and sessions.
type Report struct {
	Occasions int
	Users     int
	Clients   int
	Sessions  int
	Skipped   int
}

// Parse decodes fixtures from r, rejecting unknown fields.
func Parse(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return fx, nil
}

// Validate checks fx completely so Apply fails before its first write.
func (fx Fixtures) Validate() error {
	known := make(map[string]bool, len(fx.Occasions))
	for _, o := range fx.Occasions {
		if o.ID == "" || o.Name == "" {
			return fmt.Errorf("occasion needs id and name: %+v", o)
		}
		known[o.ID] = true
	}
	emails := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return errors.New("user without email")
		}
		if emails[email] {
			return fmt.Errorf("user %s listed twice", u.Email)
		}
		emails[email] = true
		if _, err := u.role(); err != nil {
			return err
		}
		if u.Password == "" {
			return fmt.Errorf("user %s: password is required", u.Email)
		}
		if u.Client == nil {
			continue
		}
		for _, sess := range u.Client.Sessions {
			if _, err := sess.newSession(""); err != nil {
				return err
			}
			if sess.Occasion != "" && !known[sess.Occasion] {
				return fmt.Errorf("session %q: unknown occasion %q", sess.Title, sess.Occasion)
			}
		}
	}
	return nil
}

func (u User) role() (models.Role, error) {
	role := models.Role(strings.ToLower(u.Role))
	if role == "" {
		role = models.RoleClient
	}
	if role != models.RoleClient && role != models.RoleAdmin {
		return "", fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
	}
	return role, nil
}

func (s Session) newSession(clientID string) (workflow.NewSession, error) {
	in := workflow.NewSession{
		ClientID:     clientID,
		Title:        s.Title,
		ChildName:    s.ChildName,
		OccasionID:   s.Occasion,
		Package:      s.Package,
		PackageLimit: s.PackageLimit,
		Assets:       models.Assets{PreviewURL: s.PreviewURL, Finals: s.Finals},
	}
	if s.PackageLimit == 0 {
		if _, ok := models.PackageByName(s.Package); !ok {
			return in, fmt.Errorf("session %q: unknown package %q", s.Title, s.Package)
		}
	}
	if err := in.Assets.Validate(); err != nil {
		return in, fmt.Errorf("session %q: %w", s.Title, err)
	}
	if s.Date != "" {
		d, err := time.Parse(time.DateOnly, s.Date)
		if err != nil {
			return in, fmt.Errorf("session %q: bad date: %w", s.Title, err)
		}
		in.SessionDate = &d
	}
	return in, nil
}

// Apply writes fx. Occasions are upserted; users whose email already exists
// are skipped, so applying the same file twice changes nothing. Sessions are
// booked through studio so they start the workflow exactly as staff-created
// ones do.
func Apply(ctx context.Context, store Store, studio *workflow.Studio, fx Fixtures) (Report, error) {
	var rep Report
	if err := fx.Validate(); err != nil {
		return rep, err
	}

	for _, o := range fx.Occasions {
		err := store.SaveOccasion(ctx, &models.Occasion{
			ID:          o.ID,
			Name:        o.Name,
			Description: o.Description,
			ImageURL:    o.ImageURL,
			Active:      !o.Inactive,
		})
		if err != nil {
			return rep, err
		}
		rep.Occasions++
	}

	staff := models.Principal{UserID: "seed", Role: models.RoleAdmin}
	for _, u := range fx.Users {
		_, err := store.UserByEmail(ctx, u.Email)
		if err == nil {
			rep.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return rep, fmt.Errorf("user %s: %w", u.Email, err)
		}

		role, _ := u.role()
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return rep, fmt.Errorf("user %s: %w", u.Email, err)
		}
		user := &models.User{ID: uuid.NewString(), Email: u.Email, PasswordHash: hash, Role: role}
		if err := store.CreateUser(ctx, user); err != nil {
			return rep, err
		}
		rep.Users++

		if u.Client == nil {
			continue
		}
		client := &models.Client{
			ID:       uuid.NewString(),
			UserID:   user.ID,
			FullName: u.Client.FullName,
			Email:    user.Email,
			Phone:    u.Client.Phone,
		}
		if err := store.CreateClient(ctx, client); err != nil {
			return rep, err
		}
		rep.Clients++

		for _, s := range u.Client.Sessions {
			in, err := s.newSession(client.ID)
			if err != nil {
				return rep, err
			}
			if _, err := studio.CreateSession(ctx, staff, in); err != nil {
				return rep, fmt.Errorf("session %q: %w", s.Title, err)
			}
			rep.Sessions++
		}
	}
	return rep, nil
}
