// Package dashboard provides the home pages of restaurant principals and
// admins. Both answer with the principal's access and the menu it may see.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/navigation"
)

// Menu is the restaurant console menu.
var Menu = []navigation.Section{ //nolint:gochecknoglobals
	{Title: "Restaurant", Items: []navigation.MenuItem{
		{Title: "Menu", URL: "/dashboard/menu", Permission: auth.PermMenuRead},
		{Title: "Tables", URL: "/dashboard/tables", Permission: auth.PermTablesWrite},
		{Title: "Orders", URL: "/dashboard/orders", Permission: auth.PermOrdersRead},
	}},
}

// AdminMenu is the admin console menu.
var AdminMenu = []navigation.Section{ //nolint:gochecknoglobals
	{Title: "Platform", Items: []navigation.MenuItem{
		{Title: "Restaurants", URL: "/admin/restaurants", Permission: auth.PermRestaurantsManage},
		{Title: "Subscriptions", URL: "/admin/subscriptions", Permission: auth.PermSubscriptionsManage},
	}},
	{Title: "Access", Items: []navigation.MenuItem{
		{Title: "Users", URL: "/admin/users", Permission: auth.PermUsersRead},
		{Title: "Roles", URL: "/admin/roles", Permission: auth.PermRolesManage},
	}},
}

// Page is the dashboard response.
type Page struct {
	PrincipalID string              `json:"principalId"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Level       int                 `json:"level"`
	Permissions []string            `json:"permissions"`
	Navigation  *navigation.Context `json:"navigation"`
	Stats       map[string]int64    `json:"stats,omitempty"`
}

// Service is the dashboard handler service.
type Service struct {
	deps  *handler.Deps
	paths route.Paths
}

// Init initializes the dashboard handler. Page access is decided by the
// navigation middleware; the permission checks here guard direct calls.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.paths = route.DefaultPaths()

	if deps.Routes != nil {
		s.paths = deps.Routes.Paths()
	}

	app.Get(s.paths.Home, auth.RequirePermission(deps.Auth, auth.PermDashboardView), s.Home)
	app.Get(s.paths.AdminHome, auth.RequirePermission(deps.Auth, auth.PermAdminDashboardView), s.AdminHome)

	return nil
}

// Home renders the restaurant dashboard.
func (s *Service) Home(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", "dashboard", "home").
		AddBreadcrumb("Home", s.paths.Home, true)

	return c.JSON(s.page(c, nav, Menu))
}

// AdminHome renders the admin dashboard with platform counters.
func (s *Service) AdminHome(c *fiber.Ctx) error {
	nav := navigation.NewContext("Admin", "admin", "home").
		AddBreadcrumb("Admin", s.paths.AdminHome, true)

	page := s.page(c, nav, AdminMenu)
	page.Stats = make(map[string]int64, 3)

	counters := map[string]any{
		"principals": &models.User{},
		"roles":      &models.Role{},
		"menuItems":  &models.MenuItem{},
	}

	for name, model := range counters {
		var n int64
		if err := s.deps.DB.WithContext(c.UserContext()).Model(model).Count(&n).Error; err != nil {
			log.Warn().Err(err).Str("counter", name).Msg("failed to count dashboard stat")
			continue
		}

		page.Stats[name] = n
	}

	return c.JSON(page)
}

// page builds the response from the set resolved by RequirePermission.
func (s *Service) page(c *fiber.Ctx, nav *navigation.Context, menu []navigation.Section) *Page {
	rp := auth.PermissionsFromContext(c)

	var email string
	if data := authmw.SessionFromContext(c); data != nil {
		email = data.Email
	}

	return &Page{
		PrincipalID: rp.PrincipalID.String(),
		Email:       email,
		Role:        rp.RoleName(),
		Level:       rp.Level(),
		Permissions: rp.Names(),
		Navigation:  nav.WithMenu(menu, rp),
	}
}
