package auth

import "errors"

var (
	// ErrStoreUnavailable is returned when the permission store could not answer.
	// Callers must treat it as "unknown" and deny.
	ErrStoreUnavailable = errors.New("permission store unavailable")

	// ErrSessionExpired is returned when a session is missing, revoked or past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrTenantViolation is returned when a principal touches a record owned by another tenant.
	// The error never tells whether the record exists.
	ErrTenantViolation = errors.New("not permitted")

	// ErrResolutionTimeout is returned when session and permission resolution did not settle in time.
	ErrResolutionTimeout = errors.New("access resolution timed out")

	// ErrPermissionDenied is returned when a principal lacks a required permission.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoPrincipal is returned when an operation needs a principal and got the nil id.
	ErrNoPrincipal = errors.New("no principal")

	// ErrRoleNotFound is returned when a role referenced by an assignment does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrInvalidPermission is returned when a permission string is not in resource.action form.
	ErrInvalidPermission = errors.New("invalid permission, expected resource.action")

	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
	ErrOIDCDisabled = errors.New("oidc authentication is disabled")

	// ErrInvalidOldPassword is returned when the provided old password does not match.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrEmailExists is returned when signing up with an email that is already registered.
	ErrEmailExists = errors.New("principal with this email already exists")

	// ErrUserAccountDisabled is returned when a deactivated principal tries to sign in.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a principal cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrDefaultRoleMissing is returned when the configured default role is not seeded.
	ErrDefaultRoleMissing = errors.New("default role does not exist")
)
