// Package auth provides authentication and authorization for the admin console.
//
// Authorization is role based. A principal holds any number of role
// assignments (models.UserRole); each active, unexpired assignment of an
// active role contributes that role's permissions. The resolved permission
// set is the union of those contributions keyed by (resource, action).
//
// # Role hierarchy
//
// Roles are ordered by HierarchyLevel. The effective role of a principal is
// the granting role with the highest level, ties going to the earliest
// assignment. Admin checks compare levels against LevelAdmin and
// LevelSuperAdmin; role names are never compared.
//
// # Resolution
//
// Service resolves and caches permission sets per principal. Any change to a
// principal's assignments, or to a role it may hold, must be followed by
// Invalidate or InvalidateAll. Resolution fails closed: a store error makes
// Can return false and Resolve return an error wrapping ErrStoreUnavailable.
//
// # Sessions and tenants
//
// Gate answers whether a session is still live by asking the session backend
// on every call. AssertOwnedOrAdmin confines non-admin principals to records
// they own.
//
// Example usage:
//
//	store := auth.NewGormStore(db)
//	authService, err := auth.NewService(store, 1024)
//
//	// fail-closed check
//	if authService.Can(ctx, principalID, "menu", "write") { ... }
//
//	// after revoking an assignment
//	authService.Invalidate(principalID)
//
//	// protect an API route
//	app.Post("/admin/api/roles",
//	    auth.RequirePermission(authService, auth.PermRolesManage),
//	    handler,
//	)
package auth
