package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderServed    OrderStatus = "served"
	OrderCancelled OrderStatus = "cancelled"
)

// MenuItem is a dish or drink on a restaurant's menu.
type MenuItem struct {
	ID uint `gorm:"primaryKey"`
	// RestaurantID is the owning principal.
	RestaurantID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	Name         string    `gorm:"size:200;not null"`
	Description  string    `gorm:"size:1000"`
	Category     string    `gorm:"size:100"`
	// PriceCents avoids float rounding.
	PriceCents int64 `gorm:"not null"`
	Available  bool  `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the database table name for the MenuItem model.
func (MenuItem) TableName() string {
	return "menu_items"
}

// DiningTable is a table carrying a QR code that links to the menu.
type DiningTable struct {
	ID           uint      `gorm:"primaryKey"`
	RestaurantID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	Label        string    `gorm:"size:50;not null"`
	Seats        int
	Active       bool `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the DiningTable model.
func (DiningTable) TableName() string {
	return "dining_tables"
}

// Order is a customer order placed at a table.
type Order struct {
	ID           uint        `gorm:"primaryKey"`
	RestaurantID uuid.UUID   `gorm:"type:varchar(36);not null;index"`
	TableID      *uint       `gorm:"index"`
	Status       OrderStatus `gorm:"type:varchar(20);not null"`
	TotalCents   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the database table name for the Order model.
func (Order) TableName() string {
	return "orders"
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Setting{},
		&User{},
		&Role{},
		&Permission{},
		&RolePermission{},
		&UserRole{},
		&RoleAuditEvent{},
		&MenuItem{},
		&DiningTable{},
		&Order{},
	}
}
