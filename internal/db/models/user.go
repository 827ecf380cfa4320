package models

import (
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthSource represents the authentication source for a principal.
type AuthSource string

const (
	// AuthSourceLocal indicates the principal signs in with a local password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC indicates the principal signs in via OpenID Connect.
	AuthSourceOIDC AuthSource = "oidc"
)

// User is an authenticated identity (principal).
// A restaurant account is a user; its ID is the owner id of every
// restaurant-scoped record it creates.
type User struct {
	// ID is the principal id.
	ID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	// Email is the unique sign-in address.
	Email string `gorm:"unique;size:255;not null"`
	// Password is the Argon2id hash (local sign-in only).
	Password string `gorm:"size:255"`
	// DisplayName is shown in the admin console.
	DisplayName string `gorm:"size:200"`
	// Active indicates whether the principal may sign in.
	Active bool `gorm:"not null"`
	// AuthSource indicates how this principal authenticates.
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the OIDC subject for federated principals.
	ExternalID string `gorm:"size:255;index"`
	// LastLoginAt is set on every successful sign-in.
	LastLoginAt *time.Time
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a random id to principals created without one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return nil
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hashedPassword, nil
}

// VerifyPassword verifies a plaintext password against the stored hash
// in constant time.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Str("principal_id", u.ID.String()).Msg("failed to verify password")
		return false
	}

	return match
}
