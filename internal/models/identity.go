package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Identity roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Identity is the stored login record of a student or administrator.
type Identity struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    string    `gorm:"size:64;uniqueIndex;not null" json:"student_id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetPassword replaces the stored hash with a salted bcrypt hash of pwd.
func (i *Identity) SetPassword(pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	i.PasswordHash = hash
	return nil
}

// CheckPassword reports whether pwd matches the stored hash.
func (i Identity) CheckPassword(pwd string) bool {
	if i.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(pwd)) == nil
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool {
	return NormalizeRole(i.Role) == RoleAdmin
}

// HashPassword returns a bcrypt hash of pwd.
func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeRole lowercases and trims a role tag.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	StudentID string
	Role      string
}

// IsAdmin reports whether the caller holds the administrator role.
func (p Principal) IsAdmin() bool {
	return NormalizeRole(p.Role) == RoleAdmin
}
