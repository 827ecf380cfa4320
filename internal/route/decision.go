package route

import "fmt"

// State is the state of one navigation.
type State int

const (
	// Pending means session liveness or permission resolution has not settled.
	Pending State = iota
	// Allowed means the page may render.
	Allowed
	// RedirectLogin sends the visitor to a sign-in page.
	RedirectLogin
	// RedirectHome sends a signed-in principal to its home page.
	RedirectHome
	// RedirectAdminHome sends an admin to the admin home page.
	RedirectAdminHome
	// Denied refuses the navigation; the location offers a retry.
	Denied
)

var stateNames = map[State]string{ //nolint:gochecknoglobals
	Pending:           "pending",
	Allowed:           "allowed",
	RedirectLogin:     "redirect_login",
	RedirectHome:      "redirect_home",
	RedirectAdminHome: "redirect_admin_home",
	Denied:            "denied",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s != Pending
}

// Meta describes how a route is protected.
type Meta struct {
	// RequireAuth routes need a live session and a principal.
	RequireAuth bool
	// AdminOnly routes need an effective role at admin level.
	AdminOnly bool
}

// Decision is the outcome of a navigation.
type Decision struct {
	State State
	// Location is the redirect target, empty for Pending and Allowed.
	Location string
	// Err is the cause of a Denied decision.
	Err error
}

// Redirects reports whether the decision sends the visitor elsewhere.
func (d Decision) Redirects() bool {
	return d.Location != ""
}
