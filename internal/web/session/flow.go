package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// FlowCookieName carries the pre sign-in flow id.
	FlowCookieName = "qrmenu_flow"
	// FlowTTL bounds how long a sign-in at the identity provider may take.
	FlowTTL = 10 * time.Minute

	flowKeyState  = "state"
	flowKeyReturn = "return"
)

// ErrFlowStateMismatch is returned when the callback state is unknown, used or expired.
var ErrFlowStateMismatch = errors.New("sign-in state does not match")

// Flows keeps the CSRF state of external sign-ins in a short-lived fiber
// session on the same backend as the signed-in sessions.
type Flows struct {
	store *fibersession.Store
}

// NewFlows creates the flow store.
func NewFlows(storage fiber.Storage, secure bool) *Flows {
	return &Flows{
		store: fibersession.New(fibersession.Config{
			Storage:        storage,
			Expiration:     FlowTTL,
			KeyLookup:      "cookie:" + FlowCookieName,
			CookiePath:     "/",
			CookieSecure:   secure,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
	}
}

// Begin remembers state and the page to return to after sign-in.
func (f *Flows) Begin(c *fiber.Ctx, state, returnTo string) error {
	sess, err := f.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to open sign-in flow: %w", err)
	}

	sess.Set(flowKeyState, state)
	sess.Set(flowKeyReturn, returnTo)

	if err = sess.Save(); err != nil {
		return fmt.Errorf("failed to save sign-in flow: %w", err)
	}

	return nil
}

// Finish checks state against the one remembered by Begin and returns the
// page to return to. A flow can be finished once.
func (f *Flows) Finish(c *fiber.Ctx, state string) (string, error) {
	sess, err := f.store.Get(c)
	if err != nil {
		return "", fmt.Errorf("failed to open sign-in flow: %w", err)
	}

	want, _ := sess.Get(flowKeyState).(string)
	returnTo, _ := sess.Get(flowKeyReturn).(string)

	if err = sess.Destroy(); err != nil {
		return "", fmt.Errorf("failed to close sign-in flow: %w", err)
	}

	if want == "" || state == "" || subtle.ConstantTimeCompare([]byte(want), []byte(state)) != 1 {
		return "", ErrFlowStateMismatch
	}

	return returnTo, nil
}
