package auth

import (
	"fmt"
	"sort"
	"strings"
)

// PermissionKey identifies a permission. Two permissions are the same
// capability when resource and action match, whatever their names.
type PermissionKey struct {
	Resource string
	Action   string
}

// Key builds a normalized PermissionKey.
func Key(resource, action string) PermissionKey {
	return PermissionKey{
		Resource: strings.ToLower(strings.TrimSpace(resource)),
		Action:   strings.ToLower(strings.TrimSpace(action)),
	}
}

// ParseKey parses "resource.action". The action is the part after the last dot.
func ParseKey(s string) (PermissionKey, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return PermissionKey{}, fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}

	return Key(s[:i], s[i+1:]), nil
}

// String returns the "resource.action" form.
func (k PermissionKey) String() string {
	return k.Resource + "." + k.Action
}

// Permission keys known to the application.
var (
	// PermRolesManage allows creating, editing and deleting roles (manage_roles).
	PermRolesManage = PermissionKey{Resource: "roles", Action: "manage"}
	// PermUsersManage allows granting and revoking role assignments and (de)activating principals.
	PermUsersManage = PermissionKey{Resource: "users", Action: "manage"}
	// PermUsersRead allows listing principals and their assignments.
	PermUsersRead = PermissionKey{Resource: "users", Action: "read"}
	// PermRestaurantsManage allows acting on any restaurant's records.
	PermRestaurantsManage = PermissionKey{Resource: "restaurants", Action: "manage"}
	// PermSubscriptionsManage allows managing subscription plans.
	PermSubscriptionsManage = PermissionKey{Resource: "subscriptions", Action: "manage"}
	// PermAdminDashboardView allows viewing the admin console dashboard.
	PermAdminDashboardView = PermissionKey{Resource: "admin_dashboard", Action: "view"}
	// PermDashboardView allows viewing the restaurant dashboard.
	PermDashboardView = PermissionKey{Resource: "dashboard", Action: "view"}
	// PermMenuRead allows reading menu items.
	PermMenuRead = PermissionKey{Resource: "menu", Action: "read"}
	// PermMenuWrite allows creating, editing and deleting menu items.
	PermMenuWrite = PermissionKey{Resource: "menu", Action: "write"}
	// PermTablesWrite allows managing dining tables and their QR codes.
	PermTablesWrite = PermissionKey{Resource: "tables", Action: "write"}
	// PermOrdersRead allows reading orders.
	PermOrdersRead = PermissionKey{Resource: "orders", Action: "read"}
	// PermOrdersWrite allows changing order status.
	PermOrdersWrite = PermissionKey{Resource: "orders", Action: "write"}
)

// CatalogueEntry describes a permission row created by the seed.
type CatalogueEntry struct {
	Name        string
	Key         PermissionKey
	Description string
}

// Catalogue returns every permission the application knows, sorted by key.
func Catalogue() []CatalogueEntry {
	entries := []CatalogueEntry{
		{"manage_roles", PermRolesManage, "Create, edit and delete roles"},
		{"manage_users", PermUsersManage, "Grant and revoke roles, activate and deactivate accounts"},
		{"view_users", PermUsersRead, "List accounts and their roles"},
		{"manage_restaurants", PermRestaurantsManage, "Act on any restaurant's data"},
		{"manage_subscriptions", PermSubscriptionsManage, "Manage subscription plans"},
		{"view_admin_dashboard", PermAdminDashboardView, "View the admin console"},
		{"view_dashboard", PermDashboardView, "View the restaurant dashboard"},
		{"view_menu", PermMenuRead, "Read menu items"},
		{"edit_menu", PermMenuWrite, "Create, edit and delete menu items"},
		{"edit_tables", PermTablesWrite, "Manage tables and QR codes"},
		{"view_orders", PermOrdersRead, "Read orders"},
		{"edit_orders", PermOrdersWrite, "Change order status"},
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})

	return entries
}
