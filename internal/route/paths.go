package route

import (
	"net/url"
	"strings"
)

const (
	// DefaultAdminPrefix is the path prefix of the admin area.
	DefaultAdminPrefix = "/admin"
	// DefaultLoginPath is the general sign-in page.
	DefaultLoginPath = "/login"
	// DefaultAdminLoginPath is the admin sign-in page.
	DefaultAdminLoginPath = "/admin/login"
	// DefaultHomePath is the home page of restaurant principals.
	DefaultHomePath = "/dashboard"
	// DefaultAdminHomePath is the home page of admins.
	DefaultAdminHomePath = "/admin/dashboard"
	// DefaultAccessDeniedPath is where denied navigations are sent.
	DefaultAccessDeniedPath = "/access-denied"
	// DefaultReturnParam carries the originally requested URL.
	DefaultReturnParam = "redirect"
)

// Paths are the locations decisions redirect to.
type Paths struct {
	AdminPrefix  string
	Login        string
	AdminLogin   string
	Home         string
	AdminHome    string
	AccessDenied string
	ReturnParam  string
}

// DefaultPaths returns the built-in locations.
func DefaultPaths() Paths {
	return Paths{
		AdminPrefix:  DefaultAdminPrefix,
		Login:        DefaultLoginPath,
		AdminLogin:   DefaultAdminLoginPath,
		Home:         DefaultHomePath,
		AdminHome:    DefaultAdminHomePath,
		AccessDenied: DefaultAccessDeniedPath,
		ReturnParam:  DefaultReturnParam,
	}
}

// withDefaults fills every empty location from DefaultPaths.
func (p Paths) withDefaults() Paths {
	d := DefaultPaths()

	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	fill(&p.AdminPrefix, d.AdminPrefix)
	fill(&p.Login, d.Login)
	fill(&p.AdminLogin, d.AdminLogin)
	fill(&p.Home, d.Home)
	fill(&p.AdminHome, d.AdminHome)
	fill(&p.AccessDenied, d.AccessDenied)
	fill(&p.ReturnParam, d.ReturnParam)

	p.AdminPrefix = strings.TrimSuffix(p.AdminPrefix, "/")

	return p
}

// IsAdminPath reports whether path lies inside the admin prefix.
func (p Paths) IsAdminPath(path string) bool {
	path = strings.ToLower(path)
	prefix := strings.ToLower(p.AdminPrefix)

	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// loginFor returns the sign-in location for a requested URL, carrying it as
// the return parameter.
func (p Paths) loginFor(requested string, admin bool) string {
	target := p.Login
	if admin {
		target = p.AdminLogin
	}

	return withReturn(target, p.ReturnParam, requested)
}

func (p Paths) deniedFor(requested string) string {
	return withReturn(p.AccessDenied, p.ReturnParam, requested)
}

func withReturn(target, param, requested string) string {
	if requested == "" {
		return target
	}

	return target + "?" + url.Values{param: []string{requested}}.Encode()
}

// pathOf strips the query from a requested URL.
func pathOf(requested string) string {
	if i := strings.IndexAny(requested, "?#"); i >= 0 {
		requested = requested[:i]
	}

	if requested == "" {
		return "/"
	}

	return requested
}
