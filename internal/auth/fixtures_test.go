package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

var (
	testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	roleSuperAdmin = models.Role{ID: 1, Name: "super_admin", HierarchyLevel: LevelSuperAdmin, IsActive: true, IsSystemRole: true}
	roleAdmin      = models.Role{ID: 2, Name: "admin", HierarchyLevel: LevelAdmin, IsActive: true, IsSystemRole: true}
	roleRestaurant = models.Role{ID: 3, Name: "restaurant", HierarchyLevel: LevelRestaurant, IsActive: true, IsSystemRole: true}

	permRolesManage = models.Permission{ID: 1, Name: "manage_roles", Resource: "roles", Action: "manage"}
	permMenuWrite   = models.Permission{ID: 2, Name: "edit_menu", Resource: "menu", Action: "write"}
	permMenuRead    = models.Permission{ID: 3, Name: "view_menu", Resource: "menu", Action: "read"}
	permAdminView   = models.Permission{ID: 4, Name: "view_admin_dashboard", Resource: "admin_dashboard", Action: "view"}
)

var errBackendDown = errors.New("connection refused")

// fakeStore is an in-memory Store honouring the is_active filter contract.
type fakeStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID][]models.UserRole
	roles       map[uint]models.Role
	rolePerms   map[uint][]models.Permission
	err         error
	fetches     int
	skipPreload bool

	// when set, FetchRoleAssignments signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assignments: make(map[uuid.UUID][]models.UserRole),
		roles:       make(map[uint]models.Role),
		rolePerms:   make(map[uint][]models.Permission),
	}
}

func (f *fakeStore) addRole(role models.Role, permissions ...models.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.roles[role.ID] = role
	f.rolePerms[role.ID] = permissions
}

func (f *fakeStore) assign(principalID uuid.UUID, assignment models.UserRole) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assignment.UserID = principalID
	if assignment.ID == 0 {
		assignment.ID = uint(len(f.assignments[principalID]) + 1) //nolint:gosec
	}

	f.assignments[principalID] = append(f.assignments[principalID], assignment)
}

func (f *fakeStore) setActive(principalID uuid.UUID, roleID uint, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.assignments[principalID] {
		if f.assignments[principalID][i].RoleID == roleID {
			f.assignments[principalID][i].IsActive = active
		}
	}
}

func (f *fakeStore) block() (entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entered = make(chan struct{})
	f.release = make(chan struct{})

	return f.entered, f.release
}

func (f *fakeStore) unblock() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entered = nil
	f.release = nil
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *fakeStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetches
}

func (f *fakeStore) FetchRoleAssignments(ctx context.Context, principalID uuid.UUID) ([]models.UserRole, error) {
	f.mu.Lock()
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}

		select {
		case <-release:
		case <-ctx.Done():
			return nil, unavailable(ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	if f.err != nil {
		return nil, unavailable(f.err)
	}

	var out []models.UserRole

	for _, a := range f.assignments[principalID] {
		if !a.IsActive {
			continue
		}

		if role, ok := f.roles[a.RoleID]; ok && !f.skipPreload {
			a.Role = role
		}

		out = append(out, a)
	}

	return out, nil
}

func (f *fakeStore) FetchRolePermissions(_ context.Context, roleID uint) ([]models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, unavailable(f.err)
	}

	return append([]models.Permission(nil), f.rolePerms[roleID]...), nil
}

func (f *fakeStore) FetchRole(_ context.Context, roleID uint) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, unavailable(f.err)
	}

	role, ok := f.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}

	return &role, nil
}

func (f *fakeStore) FetchPermissions(_ context.Context) ([]models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, unavailable(f.err)
	}

	var out []models.Permission
	for _, perms := range f.rolePerms {
		out = append(out, perms...)
	}

	return out, nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// fakeInvalidator records invalidations.
type fakeInvalidator struct {
	mu        sync.Mutex
	principal []uuid.UUID
	all       int
}

func (f *fakeInvalidator) Invalidate(principalID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.principal = append(f.principal, principalID)
}

func (f *fakeInvalidator) InvalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.all++
}

func (f *fakeInvalidator) snapshot() ([]uuid.UUID, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uuid.UUID(nil), f.principal...), f.all
}
