// Package navigation builds the page context returned with dashboard
// responses: breadcrumbs and the menu a principal is allowed to see.
package navigation

import (
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
)

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// MenuItem is a link shown to principals holding Permission.
type MenuItem struct {
	Title      string             `json:"title"`
	URL        string             `json:"url"`
	Permission auth.PermissionKey `json:"-"`
}

// Section groups menu items.
type Section struct {
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string           `json:"activeSection"`
	ActivePage    string           `json:"activePage"`
	Breadcrumbs   []BreadcrumbItem `json:"breadcrumbs"`
	PageTitle     string           `json:"pageTitle"`
	Menu          []Section        `json:"menu"`
}

// NewContext creates a new navigation context.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   make([]BreadcrumbItem, 0),
		Menu:          make([]Section, 0),
	}
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// WithMenu keeps the sections and items of menu that rp grants. Sections
// left without items are dropped.
func (c *Context) WithMenu(menu []Section, rp *auth.ResolvedPermissions) *Context {
	c.Menu = make([]Section, 0, len(menu))

	for _, section := range menu {
		visible := Section{Title: section.Title, Items: make([]MenuItem, 0, len(section.Items))}

		for _, item := range section.Items {
			if rp.Has(item.Permission) {
				visible.Items = append(visible.Items, item)
			}
		}

		if len(visible.Items) > 0 {
			c.Menu = append(c.Menu, visible)
		}
	}

	return c
}

// IsActive checks if the given section and page match the current context.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive checks if the given section is active.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}
