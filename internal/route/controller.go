package route

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
)

// DefaultTimeout bounds the joined resolution of one navigation.
const DefaultTimeout = 5 * time.Second

// SessionGate answers session liveness.
type SessionGate interface {
	Check(ctx context.Context, sessionID string) (bool, error)
}

// Resolver recomputes a principal's permission set.
type Resolver interface {
	Refresh(ctx context.Context, principalID uuid.UUID) (*auth.ResolvedPermissions, error)
}

// Request is one navigation attempt.
type Request struct {
	SessionID   string
	PrincipalID uuid.UUID
	Meta        Meta
	// URL is the requested path and query.
	URL string
}

// Controller resolves navigations.
type Controller struct {
	gate     SessionGate
	resolver Resolver
	timeout  time.Duration
	paths    Paths
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds the joined resolution. Zero or less keeps DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPaths sets the redirect locations.
func WithPaths(paths Paths) Option {
	return func(c *Controller) {
		c.paths = paths.withDefaults()
	}
}

// NewController creates a new navigation controller.
func NewController(gate SessionGate, resolver Resolver, opts ...Option) *Controller {
	c := &Controller{
		gate:     gate,
		resolver: resolver,
		timeout:  DefaultTimeout,
		paths:    DefaultPaths(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Paths returns the redirect locations of the controller.
func (c *Controller) Paths() Paths {
	return c.paths
}

// Navigate starts resolving a navigation and returns immediately. The
// returned Navigation reports Pending until it settles.
func (c *Controller) Navigate(ctx context.Context, req Request) *Navigation {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	nav := &Navigation{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go c.run(ctx, nav, req)

	return nav
}

// Resolve navigates and waits for the decision. It returns Pending when ctx
// is cancelled first.
func (c *Controller) Resolve(ctx context.Context, req Request) Decision {
	return c.Navigate(ctx, req).Wait(ctx)
}

func (c *Controller) run(ctx context.Context, nav *Navigation, req Request) {
	defer nav.cancel()

	start := time.Now()
	in := Input{
		PrincipalID: req.PrincipalID,
		Meta:        req.Meta,
		URL:         req.URL,
	}

	// one failing check must not cancel the other, both results are needed
	var g errgroup.Group

	g.Go(func() error {
		in.SessionLive, in.SessionErr = c.gate.Check(ctx, req.SessionID)
		return nil
	})

	if req.PrincipalID != uuid.Nil {
		g.Go(func() error {
			rp, err := c.resolver.Refresh(ctx, req.PrincipalID)
			in.Admin, in.PermissionsErr = rp.IsAdmin(), err

			return nil
		})
	}

	settled := make(chan struct{})

	go func() {
		_ = g.Wait()
		close(settled)
	}()

	select {
	case <-settled:
	case <-ctx.Done():
	}

	// a result racing the deadline is not trusted
	if err := ctx.Err(); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			nav.Abandon()
			return
		}

		log.Warn().Str("principal_id", req.PrincipalID.String()).Str("url", req.URL).
			Dur("timeout", c.timeout).Msg("navigation resolution timed out")

		nav.settle(Decision{State: Denied, Location: c.paths.deniedFor(req.URL), Err: auth.ErrResolutionTimeout}, start)

		return
	}

	decision := c.paths.Decide(in)
	if decision.State == Denied {
		log.Warn().Err(decision.Err).Str("principal_id", req.PrincipalID.String()).Str("url", req.URL).
			Msg("navigation denied")
	}

	nav.settle(decision, start)
}

// Navigation is one in-flight or settled navigation.
type Navigation struct {
	mu        sync.Mutex
	decision  Decision
	abandoned bool
	done      chan struct{}
	cancel    context.CancelFunc
}

// settle records the terminal decision unless the navigation was abandoned
// or already settled.
func (n *Navigation) settle(d Decision, start time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.abandoned || n.decision.State.Terminal() {
		return false
	}

	n.decision = d
	close(n.done)

	decisionsTotal.WithLabelValues(d.State.String()).Inc()
	resolutionSeconds.Observe(time.Since(start).Seconds())

	return true
}

// Decision returns the current decision, Pending until settled.
func (n *Navigation) Decision() Decision {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.decision
}

// Done is closed once the navigation settled or was abandoned.
func (n *Navigation) Done() <-chan struct{} {
	return n.done
}

// Abandoned reports whether Abandon won over settling.
func (n *Navigation) Abandoned() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.abandoned
}

// Abandon cancels in-flight resolution. An abandoned navigation stays
// Pending. Abandoning a settled navigation does nothing.
func (n *Navigation) Abandon() {
	n.mu.Lock()

	if n.abandoned || n.decision.State.Terminal() {
		n.mu.Unlock()
		return
	}

	n.abandoned = true
	close(n.done)
	n.mu.Unlock()

	n.cancel()
	abandonedTotal.Inc()
}

// Wait blocks until the navigation settles or ctx is done, in which case the
// navigation is abandoned.
func (n *Navigation) Wait(ctx context.Context) Decision {
	select {
	case <-n.done:
	case <-ctx.Done():
		n.Abandon()
	}

	return n.Decision()
}
