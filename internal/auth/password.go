package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"studio-portal/internal/models"
	"studio-portal/internal/storage"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore finds login identities.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authenticator checks credentials and issues tokens.
type Authenticator struct {
	Users  UserStore
	Issuer *Issuer
}

// Login verifies email and password and returns a signed token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, models.Principal, error) {
	u, err := a.Users.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return "", models.Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Principal{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", models.Principal{}, ErrInvalidCredentials
	}
	p := models.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
	token, err := a.Issuer.Issue(p)
	if err != nil {
		return "", models.Principal{}, fmt.Errorf("issue token: %w", err)
	}
	return token, p, nil
}
