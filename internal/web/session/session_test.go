package session

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
)

var testPrincipal = uuid.MustParse("7d4f3b9e-2c1a-4e8b-9f6d-0a5c3e7b1d42")

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *clock) {
	t.Helper()

	storage, err := NewMemoryStorage(16)
	require.NoError(t, err)

	c := &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}

	return NewManager(storage, config.Session{ExpiryTime: time.Hour}).WithClock(c.Now), c
}

func TestManagerLifecycle(t *testing.T) {
	m, c := newTestManager(t)

	sid, data, err := m.Create(testPrincipal, "owner@bistro.test", "")
	require.NoError(t, err)
	assert.Len(t, sid, 64)
	assert.Equal(t, c.now.Add(time.Hour), data.ExpiresAt)

	got, err := m.Read(sid)
	require.NoError(t, err)
	assert.Equal(t, testPrincipal, got.PrincipalID)
	assert.Equal(t, "owner@bistro.test", got.Email)

	live, err := m.IsSessionLive(context.Background(), sid)
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, m.Destroy(sid))

	_, err = m.Read(sid)
	require.ErrorIs(t, err, ErrSessionNotFound)

	live, err = m.IsSessionLive(context.Background(), sid)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestManagerExpiry(t *testing.T) {
	m, c := newTestManager(t)

	sid, _, err := m.Create(testPrincipal, "owner@bistro.test", "")
	require.NoError(t, err)

	// the document outlives its own expiry when the backend keeps it longer
	c.now = c.now.Add(time.Hour)

	_, err = m.Read(sid)
	require.ErrorIs(t, err, ErrSessionExpired)

	live, err := m.IsSessionLive(context.Background(), sid)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestManagerEdgeCases(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Read("")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.storage.Set("garbage", []byte("{not json"), 0))
	_, err = m.Read("garbage")
	require.ErrorIs(t, err, ErrSessionNotFound)

	raw, err := m.storage.Get("garbage")
	require.NoError(t, err)
	assert.Nil(t, raw, "undecodable sessions are dropped")

	require.NoError(t, m.Destroy(""))

	var nilManager Manager
	_, err = nilManager.Read("x")
	require.ErrorIs(t, err, ErrStorageNil)
}

type failingStorage struct{ MemoryStorage }

var errBackend = errors.New("connection refused")

func (*failingStorage) Get(string) ([]byte, error) { return nil, errBackend }

func TestIsSessionLiveReportsBackendFailure(t *testing.T) {
	m := NewManager(&failingStorage{}, config.Session{})

	live, err := m.IsSessionLive(context.Background(), "abc")
	require.ErrorIs(t, err, errBackend)
	assert.False(t, live)
}

func TestCookies(t *testing.T) {
	m := NewManager(nil, config.Session{CookieName: "qr", CookieSecure: true, ExpiryTime: time.Minute})

	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		m.SetCookie(c, "abc")
		return nil
	})
	app.Get("/read", func(c *fiber.Ctx) error {
		return c.SendString(m.CookieValue(c))
	})
	app.Get("/clear", func(c *fiber.Ctx) error {
		m.ClearCookie(c)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/set", nil))
	require.NoError(t, err)

	cookie := resp.Header.Get(fiber.HeaderSetCookie)
	assert.Contains(t, cookie, "qr=abc")
	assert.Contains(t, cookie, "max-age=60")
	assert.Contains(t, cookie, "secure")
	assert.Contains(t, cookie, "HttpOnly")

	req := httptest.NewRequest(fiber.MethodGet, "/read", nil)
	req.Header.Set(fiber.HeaderCookie, "qr=abc")

	resp, err = app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/clear", nil))
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), "qr=;")
}

func TestMemoryStorage(t *testing.T) {
	s, err := NewMemoryStorage(2)
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set("a", []byte("1"), time.Minute))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, s.Set("", []byte("x"), 0))

	v, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(time.Minute)

	v, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, v, "expired at its deadline")

	v, err = s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	require.NoError(t, s.Set("c", []byte("3"), 0))
	require.NoError(t, s.Set("d", []byte("4"), 0))

	v, err = s.Get("b")
	require.NoError(t, err)
	assert.Nil(t, v, "evicted by size")

	require.NoError(t, s.Reset())

	v, err = s.Get("d")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, s.Close())
}
