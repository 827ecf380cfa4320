// Package menu provides the restaurant API for menu items, tables and
// orders. Every call is confined to the caller's restaurant unless the
// caller is an admin.
package menu

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	menuctl "github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/menu"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// ItemsPath is the base path of menu items.
	ItemsPath = handler.APIPath + "/menu-items"
	// TablesPath is the base path of dining tables.
	TablesPath = handler.APIPath + "/tables"
	// OrdersPath is the base path of orders.
	OrdersPath = handler.APIPath + "/orders"

	paramRestaurant = "restaurant"
)

var errInvalidID = errors.New("invalid id")

// ItemView is a menu item as returned by the API.
type ItemView struct {
	ID           uint      `json:"id"`
	RestaurantID uuid.UUID `json:"restaurantId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	PriceCents   int64     `json:"priceCents"`
	Available    bool      `json:"available"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ActiveForm enables or disables a table.
type ActiveForm struct {
	Active bool `json:"active"`
}

// StatusForm moves an order to a new status.
type StatusForm struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=pending confirmed served cancelled"`
}

func newItemView(i *models.MenuItem) ItemView {
	return ItemView{
		ID:           i.ID,
		RestaurantID: i.RestaurantID,
		Name:         i.Name,
		Description:  i.Description,
		Category:     i.Category,
		PriceCents:   i.PriceCents,
		Available:    i.Available,
		UpdatedAt:    i.UpdatedAt,
	}
}

// Service is the menu handler service.
type Service struct {
	deps *handler.Deps
	menu *menuctl.Manager
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Gate == nil || deps.Validator == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.menu = menuctl.New(deps.DB, deps.Auth)

	requireSession := authmw.RequireSession(deps.Gate)

	app.Route(ItemsPath, func(router fiber.Router) {
		router.Use(requireSession)
		router.Get(handler.RootPath, auth.RequirePermission(deps.Auth, auth.PermMenuRead), s.ListItems)
		router.Post(handler.RootPath, auth.RequirePermission(deps.Auth, auth.PermMenuWrite), s.CreateItem)
		router.Put("/:id", auth.RequirePermission(deps.Auth, auth.PermMenuWrite), s.UpdateItem)
		router.Delete("/:id", auth.RequirePermission(deps.Auth, auth.PermMenuWrite), s.DeleteItem)
	})

	app.Put(TablesPath+"/:id/active", requireSession,
		auth.RequirePermission(deps.Auth, auth.PermTablesWrite), s.SetTableActive)
	app.Put(OrdersPath+"/:id/status", requireSession,
		auth.RequirePermission(deps.Auth, auth.PermOrdersWrite), s.SetOrderStatus)

	return nil
}

// restaurant returns the restaurant named by ?restaurant=, the caller's own
// when absent. The tenant guard decides whether the caller may use it.
func restaurant(c *fiber.Ctx, principalID uuid.UUID) (uuid.UUID, error) {
	raw := c.Query(paramRestaurant)
	if raw == "" {
		return principalID, nil
	}

	return uuid.Parse(raw)
}

func recordID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}

	return uint(id), true
}

// ListItems lists a restaurant's menu.
func (s *Service) ListItems(c *fiber.Ctx) error {
	principalID, _ := auth.PrincipalFromContext(c)

	restaurantID, err := restaurant(c, principalID)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	items, err := s.menu.ListItems(c.UserContext(), principalID, restaurantID)
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]ItemView, 0, len(items))
	for i := range items {
		out = append(out, newItemView(&items[i]))
	}

	return c.JSON(out)
}

// CreateItem adds an item to a restaurant's menu.
func (s *Service) CreateItem(c *fiber.Ctx) error {
	principalID, _ := auth.PrincipalFromContext(c)

	restaurantID, err := restaurant(c, principalID)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	in, ok := s.itemInput(c)
	if !ok {
		return nil
	}

	item, err := s.menu.CreateItem(c.UserContext(), principalID, restaurantID, *in)
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newItemView(item))
}

// UpdateItem replaces a menu item.
func (s *Service) UpdateItem(c *fiber.Ctx) error {
	id, ok := recordID(c)
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	in, ok := s.itemInput(c)
	if !ok {
		return nil
	}

	principalID, _ := auth.PrincipalFromContext(c)

	item, err := s.menu.UpdateItem(c.UserContext(), principalID, id, *in)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(newItemView(item))
}

// DeleteItem removes a menu item.
func (s *Service) DeleteItem(c *fiber.Ctx) error {
	id, ok := recordID(c)
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	principalID, _ := auth.PrincipalFromContext(c)

	if err := s.menu.DeleteItem(c.UserContext(), principalID, id); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetTableActive enables or disables a table's QR code.
func (s *Service) SetTableActive(c *fiber.Ctx) error {
	id, ok := recordID(c)
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	form := new(ActiveForm)
	if err := c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	principalID, _ := auth.PrincipalFromContext(c)

	if err := s.menu.SetTableActive(c.UserContext(), principalID, id, form.Active); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetOrderStatus moves an order along its lifecycle.
func (s *Service) SetOrderStatus(c *fiber.Ctx) error {
	id, ok := recordID(c)
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	form := new(StatusForm)
	if err := c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	if err := s.deps.Validator.Struct(form); err != nil {
		return handler.BadRequest(c, err)
	}

	principalID, _ := auth.PrincipalFromContext(c)

	order, err := s.menu.SetOrderStatus(c.UserContext(), principalID, id, form.Status)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{"id": order.ID, "status": order.Status})
}

func (s *Service) itemInput(c *fiber.Ctx) (*menuctl.ItemInput, bool) {
	in := new(menuctl.ItemInput)

	if err := c.BodyParser(in); err != nil {
		_ = handler.BadRequest(c, err)
		return nil, false
	}

	if err := s.deps.Validator.Struct(in); err != nil {
		_ = handler.BadRequest(c, err)
		return nil, false
	}

	return in, true
}

// fail maps controller errors. Tenant violations get the same generic
// denial as a missing permission.
func (s *Service) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrTenantViolation), errors.Is(err, auth.ErrStoreUnavailable):
		return auth.Deny(c, err)
	case errors.Is(err, menuctl.ErrNotFound):
		return handler.Error(c, fiber.StatusNotFound, menuctl.ErrNotFound.Error())
	case errors.Is(err, menuctl.ErrInvalidStatus):
		return handler.Error(c, fiber.StatusConflict, menuctl.ErrInvalidStatus.Error())
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("restaurant record change failed")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
