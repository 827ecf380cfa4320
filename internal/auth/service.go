package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

const (
	// DefaultCacheSize is the number of principals kept in the resolved permission cache.
	DefaultCacheSize = 1024
	// DefaultMaxAge bounds how long a cached set is served without asking the store.
	DefaultMaxAge = time.Minute
)

// Invalidator drops cached permission sets after a role or assignment change.
type Invalidator interface {
	// Invalidate drops the cached set of one principal.
	Invalidate(principalID uuid.UUID)
	// InvalidateAll drops every cached set.
	InvalidateAll()
}

// Service resolves permission sets and answers authorization questions.
// It is safe for concurrent use.
type Service struct {
	store Store
	cache *lru.Cache[uuid.UUID, *ResolvedPermissions]
	group singleflight.Group
	now   func() time.Time
	// maxAge bounds changes made by other instances that never reach
	// Invalidate on this one.
	maxAge time.Duration

	// mu guards epoch together with cache writes, so that a resolution
	// started before an invalidation can never repopulate the cache.
	mu    sync.Mutex
	epoch uint64
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to evaluate assignment expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxAge sets how long a cached set is served before it is resolved
// again. Zero or less keeps sets until they are invalidated or expire.
func WithMaxAge(maxAge time.Duration) Option {
	return func(s *Service) {
		s.maxAge = maxAge
	}
}

// NewService creates a new auth service on the given store.
func NewService(store Store, cacheSize int, opts ...Option) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[uuid.UUID, *ResolvedPermissions](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission cache: %w", err)
	}

	s := &Service{
		store:  store,
		cache:  cache,
		now:    time.Now,
		maxAge: DefaultMaxAge,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Resolve returns the principal's resolved permission set, from cache when
// the cached set is still valid.
func (s *Service) Resolve(ctx context.Context, principalID uuid.UUID) (*ResolvedPermissions, error) {
	if principalID == uuid.Nil {
		return nil, ErrNoPrincipal
	}

	if rp, ok := s.cache.Get(principalID); ok {
		if rp.validAt(s.now(), s.maxAge) {
			cacheLookupsTotal.WithLabelValues("hit").Inc()
			return rp, nil
		}

		cacheLookupsTotal.WithLabelValues("expired").Inc()
	} else {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	return s.resolve(ctx, principalID)
}

// Refresh recomputes the principal's permission set from the store and
// replaces the cached one.
func (s *Service) Refresh(ctx context.Context, principalID uuid.UUID) (*ResolvedPermissions, error) {
	if principalID == uuid.Nil {
		return nil, ErrNoPrincipal
	}

	return s.resolve(ctx, principalID)
}

// resolve collapses concurrent resolutions of the same principal within one
// invalidation epoch.
func (s *Service) resolve(ctx context.Context, principalID uuid.UUID) (*ResolvedPermissions, error) {
	epoch := s.currentEpoch()
	key := fmt.Sprintf("%s:%d", principalID, epoch)

	resultChan := s.group.DoChan(key, func() (any, error) {
		return s.compute(ctx, principalID, epoch)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			// a shared call cancelled by another caller says nothing about ours
			if res.Shared && ctx.Err() == nil && isContextErr(res.Err) {
				return s.compute(ctx, principalID, epoch)
			}

			return nil, res.Err
		}

		rp, _ := res.Val.(*ResolvedPermissions)

		return rp, nil
	}
}

func (s *Service) compute(ctx context.Context, principalID uuid.UUID, epoch uint64) (*ResolvedPermissions, error) {
	start := time.Now()
	defer func() {
		resolutionSeconds.Observe(time.Since(start).Seconds())
	}()

	rp, err := s.load(ctx, principalID)
	if err != nil {
		resolutionsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("principal_id", principalID.String()).Msg("failed to resolve permissions")

		return nil, err
	}

	resolutionsTotal.WithLabelValues("ok").Inc()

	s.mu.Lock()
	if s.epoch == epoch {
		s.cache.Add(principalID, rp)
	}
	s.mu.Unlock()

	log.Debug().Str("principal_id", principalID.String()).Str("role", rp.RoleName()).
		Int("permissions", rp.Len()).Msg("permissions resolved")

	return rp, nil
}

// load runs the resolution algorithm against the store.
func (s *Service) load(ctx context.Context, principalID uuid.UUID) (*ResolvedPermissions, error) {
	assignments, err := s.store.FetchRoleAssignments(ctx, principalID)
	if err != nil {
		return nil, err
	}

	for i := range assignments {
		if assignments[i].Role.ID != 0 {
			continue
		}

		// role row missing from the join, ask for it directly
		role, errRole := s.store.FetchRole(ctx, assignments[i].RoleID)

		switch {
		case errors.Is(errRole, ErrRoleNotFound):
			log.Warn().Str("principal_id", principalID.String()).Uint("role_id", assignments[i].RoleID).
				Msg("assignment references a missing role")
		case errRole != nil:
			return nil, errRole
		default:
			assignments[i].Role = *role
		}
	}

	now := s.now()
	granting := Granting(assignments, now)
	rolePermissions := make(map[uint][]models.Permission, len(granting))

	for _, a := range granting {
		if _, ok := rolePermissions[a.RoleID]; ok {
			continue
		}

		permissions, errPerm := s.store.FetchRolePermissions(ctx, a.RoleID)
		if errPerm != nil {
			return nil, errPerm
		}

		rolePermissions[a.RoleID] = permissions
	}

	return newResolvedPermissions(principalID, granting, rolePermissions, now), nil
}

func (s *Service) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.epoch
}

// Invalidate drops the principal's cached set. It must be called after any
// change to the principal's assignments.
func (s *Service) Invalidate(principalID uuid.UUID) {
	s.mu.Lock()
	s.epoch++
	s.cache.Remove(principalID)
	s.mu.Unlock()

	invalidationsTotal.WithLabelValues("principal").Inc()
	log.Debug().Str("principal_id", principalID.String()).Msg("permission cache invalidated")
}

// InvalidateAll drops every cached set. It must be called after a role's
// permissions, level or active flag change, or a role is deleted.
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	s.epoch++
	s.cache.Purge()
	s.mu.Unlock()

	invalidationsTotal.WithLabelValues("all").Inc()
	log.Debug().Msg("permission cache purged")
}

// Can reports whether the principal holds the permission.
// Any resolution error yields false.
func (s *Service) Can(ctx context.Context, principalID uuid.UUID, resource, action string) bool {
	has, err := s.HasPermission(ctx, principalID, Key(resource, action))
	if err != nil {
		log.Warn().Err(err).Str("principal_id", principalID.String()).
			Str("permission", Key(resource, action).String()).Msg("permission check failed closed")

		return false
	}

	return has
}

// HasPermission checks if a principal holds a specific permission.
func (s *Service) HasPermission(ctx context.Context, principalID uuid.UUID, permission PermissionKey) (bool, error) {
	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return false, err
	}

	return rp.Has(permission), nil
}

// HasAnyPermission checks if a principal holds at least one of the given permissions.
func (s *Service) HasAnyPermission(ctx context.Context, principalID uuid.UUID, permissions []PermissionKey) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return false, err
	}

	for _, p := range permissions {
		if rp.Has(p) {
			return true, nil
		}
	}

	return false, nil
}

// HasAllPermissions checks if a principal holds all the given permissions.
func (s *Service) HasAllPermissions(ctx context.Context, principalID uuid.UUID, permissions []PermissionKey) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return false, err
	}

	for _, p := range permissions {
		if !rp.Has(p) {
			return false, nil
		}
	}

	return true, nil
}

// Permissions returns the principal's permissions in "resource.action" form.
func (s *Service) Permissions(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return rp.Names(), nil
}

// EffectiveRole returns the principal's effective role, nil when it holds none.
func (s *Service) EffectiveRole(ctx context.Context, principalID uuid.UUID) (*models.Role, error) {
	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return nil, err
	}

	return rp.Role, nil
}

// IsAdmin reports whether the principal's effective role reaches LevelAdmin.
func (s *Service) IsAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return false, err
	}

	return rp.IsAdmin(), nil
}

// IsSuperAdmin reports whether the principal's effective role is LevelSuperAdmin.
func (s *Service) IsSuperAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	rp, err := s.Resolve(ctx, principalID)
	if err != nil {
		return false, err
	}

	return rp.IsSuperAdmin(), nil
}

// Catalogue returns every permission row known to the store.
func (s *Service) Catalogue(ctx context.Context) ([]models.Permission, error) {
	return s.store.FetchPermissions(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
