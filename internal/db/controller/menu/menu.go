// Package menu changes restaurant-scoped records: menu items, dining
// tables and orders. Every call names the acting principal and is confined
// to that principal's restaurant unless it is an admin.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

const whereOwned = "id = ? AND restaurant_id = ?"

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned to admins for a record that does not exist.
	// Other principals get auth.ErrTenantViolation instead.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidStatus is returned for an unknown or unreachable order status.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Guard decides whether a principal may act on a restaurant's records.
// *auth.Service implements it.
type Guard interface {
	AssertOwnedOrAdmin(ctx context.Context, principalID, ownerID uuid.UUID) error
	IsAdmin(ctx context.Context, principalID uuid.UUID) (bool, error)
}

// ItemInput carries the editable fields of a menu item.
type ItemInput struct {
	Name        string `json:"name"        validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Category    string `json:"category"    validate:"max=100"`
	PriceCents  int64  `json:"priceCents"  validate:"gte=0"`
	Available   bool   `json:"available"`
}

// transitions lists the statuses an order may move to from each status.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderServed, models.OrderCancelled},
}

// Manager applies tenant-scoped changes.
type Manager struct {
	db    *gorm.DB
	guard Guard
}

// New creates a new menu manager.
func New(db *gorm.DB, guard Guard) *Manager {
	return &Manager{db: db, guard: guard}
}

// ListItems returns the restaurant's menu items.
func (m *Manager) ListItems(ctx context.Context, principalID, restaurantID uuid.UUID) ([]models.MenuItem, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	if err := m.guard.AssertOwnedOrAdmin(ctx, principalID, restaurantID); err != nil {
		return nil, err
	}

	var items []models.MenuItem

	err := m.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).
		Order("category, name").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}

	return items, nil
}

// CreateItem adds an item to the restaurant's menu.
func (m *Manager) CreateItem(
	ctx context.Context, principalID, restaurantID uuid.UUID, in ItemInput,
) (*models.MenuItem, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	if err := m.guard.AssertOwnedOrAdmin(ctx, principalID, restaurantID); err != nil {
		return nil, err
	}

	item := models.MenuItem{
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     in.Category,
		PriceCents:   in.PriceCents,
		Available:    in.Available,
	}

	if err := m.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	return &item, nil
}

// UpdateItem replaces the editable fields of a menu item.
func (m *Manager) UpdateItem(ctx context.Context, principalID uuid.UUID, id uint, in ItemInput) (*models.MenuItem, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	var item models.MenuItem
	if err := m.authorize(ctx, principalID, &item, id); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Category = in.Category
	item.PriceCents = in.PriceCents
	item.Available = in.Available

	res := m.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where(whereOwned, id, item.RestaurantID).
		Updates(map[string]any{
			"name":        item.Name,
			"description": item.Description,
			"category":    item.Category,
			"price_cents": item.PriceCents,
			"available":   item.Available,
		})
	if err := affected(res, "menu item"); err != nil {
		return nil, err
	}

	return &item, nil
}

// DeleteItem removes a menu item.
func (m *Manager) DeleteItem(ctx context.Context, principalID uuid.UUID, id uint) error {
	if m.db == nil {
		return ErrDBNil
	}

	var item models.MenuItem
	if err := m.authorize(ctx, principalID, &item, id); err != nil {
		return err
	}

	res := m.db.WithContext(ctx).Where(whereOwned, id, item.RestaurantID).Delete(&models.MenuItem{})

	return affected(res, "menu item")
}

// SetTableActive enables or disables a dining table's QR code.
func (m *Manager) SetTableActive(ctx context.Context, principalID uuid.UUID, id uint, active bool) error {
	if m.db == nil {
		return ErrDBNil
	}

	var table models.DiningTable
	if err := m.authorize(ctx, principalID, &table, id); err != nil {
		return err
	}

	res := m.db.WithContext(ctx).Model(&models.DiningTable{}).
		Where(whereOwned, id, table.RestaurantID).
		Update("active", active)

	return affected(res, "table")
}

// SetOrderStatus moves an order along its lifecycle.
func (m *Manager) SetOrderStatus(
	ctx context.Context, principalID uuid.UUID, id uint, status models.OrderStatus,
) (*models.Order, error) {
	if m.db == nil {
		return nil, ErrDBNil
	}

	var order models.Order
	if err := m.authorize(ctx, principalID, &order, id); err != nil {
		return nil, err
	}

	if !allowed(order.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatus, order.Status, status)
	}

	// the status guard makes concurrent transitions from the same state lose
	res := m.db.WithContext(ctx).Model(&models.Order{}).
		Where(whereOwned+" AND status = ?", id, order.RestaurantID, order.Status).
		Update("status", status)
	if err := affected(res, "order"); err != nil {
		return nil, err
	}

	order.Status = status

	return &order, nil
}

func allowed(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

func ownerOf(record any) uuid.UUID {
	switch r := record.(type) {
	case *models.MenuItem:
		return r.RestaurantID
	case *models.DiningTable:
		return r.RestaurantID
	case *models.Order:
		return r.RestaurantID
	default:
		return uuid.Nil
	}
}

// authorize loads the record and runs the tenant guard on its owner.
// A missing record looks the same as a foreign one to non-admins.
func (m *Manager) authorize(ctx context.Context, principalID uuid.UUID, record any, id uint) error {
	err := m.db.WithContext(ctx).First(record, id).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin, errAdmin := m.guard.IsAdmin(ctx, principalID)
		if errAdmin == nil && admin {
			return ErrNotFound
		}

		log.Warn().Str("principal_id", principalID.String()).Uint("id", id).Str("record", fmt.Sprintf("%T", record)).
			Msg("tenant check on a missing record")

		return auth.ErrTenantViolation
	case err != nil:
		return fmt.Errorf("failed to load %T: %w", record, err)
	}

	return m.guard.AssertOwnedOrAdmin(ctx, principalID, ownerOf(record))
}

func affected(res *gorm.DB, what string) error {
	if res.Error != nil {
		return fmt.Errorf("failed to change %s: %w", what, res.Error)
	}

	// the record moved or vanished between the guard and the write
	if res.RowsAffected == 0 {
		return auth.ErrTenantViolation
	}

	return nil
}
