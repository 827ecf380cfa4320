package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SessionChecker is the session backend the gate asks.
type SessionChecker interface {
	// IsSessionLive reports whether the session exists and has not expired.
	IsSessionLive(ctx context.Context, sessionID string) (bool, error)
}

// Gate validates that a session is still live before any permission decision
// is trusted. It holds no state of its own; every call asks the backend.
type Gate struct {
	sessions SessionChecker
}

// NewGate creates a new session gate.
func NewGate(sessions SessionChecker) *Gate {
	return &Gate{sessions: sessions}
}

// Check reports liveness. Backend failures return an error wrapping
// ErrStoreUnavailable and never a live answer.
func (g *Gate) Check(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	live, err := g.sessions.IsSessionLive(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check session: %w", ErrStoreUnavailable, err)
	}

	return live, nil
}

// IsSessionLive reports whether the session is live, false on any error.
func (g *Gate) IsSessionLive(ctx context.Context, sessionID string) bool {
	live, err := g.Check(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("session liveness check failed closed")
		return false
	}

	return live
}

// RequireLiveSession returns ErrSessionExpired if the session is not live.
func (g *Gate) RequireLiveSession(ctx context.Context, sessionID string) error {
	live, err := g.Check(ctx, sessionID)
	if err != nil {
		return err
	}

	if !live {
		return ErrSessionExpired
	}

	return nil
}
