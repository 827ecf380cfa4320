// Package settings exposes the values the application keeps about itself,
// such as the state of the seeded roles, to super admins.
package settings

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/setting"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// Path is the base path for the settings handler.
	Path = handler.RootPath + "admin/api/settings"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25
	maxPageSize     = 100
)

// View is a stored setting.
type View struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Page is one page of settings.
type Page struct {
	Items       []View `json:"items"`
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	TotalItems  int    `json:"totalItems"`
	TotalPages  int    `json:"totalPages"`
	HasPrevPage bool   `json:"hasPrevPage"`
	HasNextPage bool   `json:"hasNextPage"`
	SearchQuery string `json:"searchQuery,omitempty"`
}

// Service is the settings handler service.
type Service struct {
	deps *handler.Deps
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Gate == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	app.Get(Path, authmw.RequireSession(deps.Gate),
		auth.RequirePermission(deps.Auth, auth.PermRolesManage), s.List)

	return nil
}

// List returns the settings matching ?search=, one page at a time.
func (s *Service) List(c *fiber.Ctx) error {
	page, pageSize := paginationParams(c)
	search := c.Query("search")

	stored, err := setting.GetAll(c.UserContext(), s.deps.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to list settings")
		return handler.Error(c, fiber.StatusInternalServerError, "failed to list settings")
	}

	views := make([]View, 0, len(stored))
	for i := range stored {
		if includeSetting(&stored[i], search) {
			views = append(views, View{Name: stored[i].Name, Value: string(stored[i].Value)})
		}
	}

	totalItems := len(views)
	totalPages, page := totalPagesAndAdjust(totalItems, pageSize, page)
	start, end := pageSliceBounds(totalItems, pageSize, page)

	return c.JSON(Page{
		Items:       views[start:end],
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
		SearchQuery: search,
	})
}

func paginationParams(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}

// includeSetting matches the search case-insensitively on name and value.
func includeSetting(s *models.Setting, search string) bool {
	if search == "" {
		return true
	}

	search = strings.ToLower(search)

	return strings.Contains(strings.ToLower(s.Name), search) ||
		strings.Contains(strings.ToLower(string(s.Value)), search)
}

// totalPagesAndAdjust computes total pages and moves page into range.
func totalPagesAndAdjust(totalItems, pageSize, page int) (int, int) {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

func pageSliceBounds(totalItems, pageSize, page int) (int, int) {
	start := (page - 1) * pageSize

	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	if start > end {
		start = end
	}

	return start, end
}
