package route

import (
	"sort"
	"strings"
)

type entry struct {
	prefix string
	meta   Meta
}

// Table maps request paths to route Meta by longest matching prefix.
// Paths matching no entry require authentication.
type Table struct {
	entries  []entry
	bypass   []string
	fallback Meta
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{fallback: Meta{RequireAuth: true}}
}

// DefaultTable returns the page table of the application for the given paths.
func DefaultTable(p Paths) *Table {
	p = p.withDefaults()

	return NewTable().
		Add(p.Login, Meta{}).
		Add("/signup", Meta{}).
		Add(p.AdminLogin, Meta{}).
		Add(p.Home, Meta{RequireAuth: true}).
		Add(p.AdminPrefix, Meta{RequireAuth: true, AdminOnly: true}).
		Bypass("/static", "/logout", p.AccessDenied, "/api", p.AdminPrefix+"/api", "/metrics", "/auth/oidc")
}

// Add registers meta for every path under prefix.
func (t *Table) Add(prefix string, meta Meta) *Table {
	t.entries = append(t.entries, entry{prefix: normalizePrefix(prefix), meta: meta})

	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].prefix) > len(t.entries[j].prefix)
	})

	return t
}

// Bypass registers prefixes the navigation controller never sees.
func (t *Table) Bypass(prefixes ...string) *Table {
	for _, prefix := range prefixes {
		t.bypass = append(t.bypass, normalizePrefix(prefix))
	}

	return t
}

// Lookup returns the meta of the longest registered prefix of path.
func (t *Table) Lookup(path string) Meta {
	path = strings.ToLower(pathOf(path))

	for _, e := range t.entries {
		if hasPathPrefix(path, e.prefix) {
			return e.meta
		}
	}

	return t.fallback
}

// Bypassed reports whether path is excluded from navigation control.
func (t *Table) Bypassed(path string) bool {
	path = strings.ToLower(pathOf(path))

	for _, prefix := range t.bypass {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func normalizePrefix(prefix string) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix != "/" {
		prefix = strings.TrimSuffix(prefix, "/")
	}

	return prefix
}

func hasPathPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}

	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
