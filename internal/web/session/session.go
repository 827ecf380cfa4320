// Package session keeps signed-in sessions in a fiber.Storage backend.
//
// A session is a JSON document stored under a random id; the id travels in
// an HTTP-only cookie. Sessions end when they are destroyed on sign-out, when
// their expiry passes, or when the backend drops the key.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
)

const (
	// DefaultCookieName is used when the config names no cookie.
	DefaultCookieName = "session"
	// DefaultExpiry is used when the config sets no expiry.
	DefaultExpiry = 12 * time.Hour
)

var (
	// ErrSessionNotFound is returned when no session is stored under the id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned for a stored session past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrStorageNil is returned when the manager has no backend.
	ErrStorageNil = errors.New("session storage is nil")
)

// Data represents the session data structure.
type Data struct {
	PrincipalID uuid.UUID `json:"principalId"`
	Email       string    `json:"email"`
	// IDToken is kept for OIDC sessions to end the provider session on sign-out.
	IDToken   string    `json:"idToken,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LiveAt reports whether the session is still valid at now.
func (d *Data) LiveAt(now time.Time) bool {
	return d.PrincipalID != uuid.Nil && now.Before(d.ExpiresAt)
}

// Manager creates, reads and destroys sessions.
type Manager struct {
	storage fiber.Storage
	expiry  time.Duration
	cookie  string
	secure  bool
	now     func() time.Time
}

// NewManager creates a session manager on storage.
func NewManager(storage fiber.Storage, cfg config.Session) *Manager {
	m := &Manager{
		storage: storage,
		expiry:  cfg.ExpiryTime,
		cookie:  cfg.CookieName,
		secure:  cfg.CookieSecure,
		now:     time.Now,
	}

	if m.expiry <= 0 {
		m.expiry = DefaultExpiry
	}

	if m.cookie == "" {
		m.cookie = DefaultCookieName
	}

	return m
}

// WithClock replaces the manager's time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Storage returns the backend, shared with other short-lived state.
func (m *Manager) Storage() fiber.Storage {
	return m.storage
}

// Expiry returns the session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Create stores a new session for the principal and returns its id.
func (m *Manager) Create(principalID uuid.UUID, email, idToken string) (string, *Data, error) {
	if m.storage == nil {
		return "", nil, ErrStorageNil
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := m.now().UTC()
	data := &Data{
		PrincipalID: principalID,
		Email:       email,
		IDToken:     idToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.expiry),
	}

	out, err := json.Marshal(data)
	if err != nil {
		return "", nil, err
	}

	if err = m.storage.Set(sessionID, out, m.expiry); err != nil {
		return "", nil, fmt.Errorf("failed to write session: %w", err)
	}

	return sessionID, data, nil
}

// Read reads the session data for the given session ID.
func (m *Manager) Read(sessionID string) (*Data, error) {
	if m.storage == nil {
		return nil, ErrStorageNil
	}

	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	raw, err := m.storage.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if len(raw) == 0 {
		return nil, ErrSessionNotFound
	}

	data := new(Data)
	if err = json.Unmarshal(raw, data); err != nil {
		log.Warn().Err(err).Msg("dropping undecodable session")
		m.drop(sessionID)

		return nil, ErrSessionNotFound
	}

	if !data.LiveAt(m.now()) {
		m.drop(sessionID)
		return nil, ErrSessionExpired
	}

	return data, nil
}

// Destroy deletes the session.
func (m *Manager) Destroy(sessionID string) error {
	if m.storage == nil {
		return ErrStorageNil
	}

	if sessionID == "" {
		return nil
	}

	return m.storage.Delete(sessionID)
}

func (m *Manager) drop(sessionID string) {
	if err := m.storage.Delete(sessionID); err != nil {
		log.Warn().Err(err).Msg("failed to delete session")
	}
}

// IsSessionLive reports whether the session exists and has not expired.
// Only a backend failure is returned as error.
func (m *Manager) IsSessionLive(_ context.Context, sessionID string) (bool, error) {
	_, err := m.Read(sessionID)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return false, nil
	default:
		return false, err
	}
}

// CookieValue returns the session id sent by the client.
func (m *Manager) CookieValue(c *fiber.Ctx) string {
	return c.Cookies(m.cookie)
}

// SetCookie sends the session cookie.
func (m *Manager) SetCookie(c *fiber.Ctx, sessionID string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(m.expiry.Seconds()),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
