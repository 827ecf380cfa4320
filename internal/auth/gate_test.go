package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	live map[string]bool
	err  error
}

func (f fakeSessions) IsSessionLive(_ context.Context, sessionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}

	return f.live[sessionID], nil
}

func TestGate(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		sessions      fakeSessions
		sessionID     string
		expectedLive  bool
		expectedError error
	}{
		{
			name:          "empty session id",
			sessions:      fakeSessions{},
			sessionID:     "",
			expectedError: ErrSessionExpired,
		},
		{
			name:          "unknown session",
			sessions:      fakeSessions{live: map[string]bool{"a": true}},
			sessionID:     "b",
			expectedError: ErrSessionExpired,
		},
		{
			name:         "live session",
			sessions:     fakeSessions{live: map[string]bool{"a": true}},
			sessionID:    "a",
			expectedLive: true,
		},
		{
			name:          "backend down",
			sessions:      fakeSessions{err: errBackendDown},
			sessionID:     "a",
			expectedError: ErrStoreUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewGate(tc.sessions)

			assert.Equal(t, tc.expectedLive, gate.IsSessionLive(ctx, tc.sessionID))

			err := gate.RequireLiveSession(ctx, tc.sessionID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
		})
	}
}
