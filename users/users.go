package users

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the closed set of application roles. Role decides which screens a user sees.
type RoleType string

const (
	RoleAdmin RoleType = "admin" // Can manage users and see privileged screens
	RoleUser  RoleType = "user"  // Regular dashboard user
)

// DefaultName is the placeholder display name given to self-healed profiles.
const DefaultName = "Nuovo Utente"

// MinPasswordLength matches the identity provider's minimum.
const MinPasswordLength = 6

// ParseRole maps unknown or empty values to RoleUser.
func ParseRole(s string) RoleType {
	if RoleType(strings.ToLower(strings.TrimSpace(s))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Profile is the user profile record kept in the "users" collection.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      RoleType  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// DefaultProfile is the profile created for a principal that has none.
func DefaultProfile(id, email string, now time.Time) *Profile {
	return &Profile{
		ID:        id,
		Email:     email,
		Name:      DefaultName,
		Role:      RoleUser,
		CreatedAt: now,
	}
}

// Credentials are kept apart from the profile and never serialized to clients.
type Credentials struct {
	UserID       string `json:"-"`
	Email        string `json:"-"`
	PasswordHash string `json:"-"`
}

// NormalizeEmail is the key under which credentials are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks the password is at least MinPasswordLength characters long.
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the stored hash.
func (c *Credentials) CheckPassword(password string) bool {
	return CheckPasswordHash(password, c.PasswordHash)
}
