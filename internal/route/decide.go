package route

import (
	"github.com/google/uuid"
)

// Input is everything a decision depends on, gathered after both
// resolutions settled.
type Input struct {
	PrincipalID uuid.UUID
	// SessionLive is the answer of the session gate.
	SessionLive bool
	// SessionErr is set when the session gate could not answer.
	SessionErr error
	// Admin reports whether the effective role is at admin level.
	Admin bool
	// PermissionsErr is set when permission resolution failed.
	PermissionsErr error
	Meta           Meta
	// URL is the requested path and query.
	URL string
}

// Decide applies the access rules with the default paths.
func Decide(in Input) Decision {
	return DefaultPaths().Decide(in)
}

// Decide applies the access rules in order, the first match wins.
func (p Paths) Decide(in Input) Decision {
	p = p.withDefaults()
	path := pathOf(in.URL)
	signedIn := in.PrincipalID != uuid.Nil

	// public pages: a signed-in principal is sent home
	if !in.Meta.RequireAuth {
		if signedIn && in.SessionErr == nil && in.SessionLive {
			if in.PermissionsErr == nil && in.Admin {
				return Decision{State: RedirectAdminHome, Location: p.AdminHome}
			}

			return Decision{State: RedirectHome, Location: p.Home}
		}

		return Decision{State: Allowed}
	}

	if in.SessionErr != nil {
		return Decision{State: Denied, Location: p.deniedFor(in.URL), Err: in.SessionErr}
	}

	if !signedIn || !in.SessionLive {
		return Decision{State: RedirectLogin, Location: p.loginFor(in.URL, p.IsAdminPath(path))}
	}

	if in.PermissionsErr != nil {
		return Decision{State: Denied, Location: p.deniedFor(in.URL), Err: in.PermissionsErr}
	}

	if in.Meta.AdminOnly && !in.Admin {
		return Decision{State: RedirectLogin, Location: p.loginFor(in.URL, true)}
	}

	// admins are kept inside the admin area, shared routes included
	if in.Admin && !p.IsAdminPath(path) {
		return Decision{State: RedirectAdminHome, Location: p.AdminHome}
	}

	return Decision{State: Allowed}
}
