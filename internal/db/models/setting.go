// Package models contains database model definitions.
package models

// Setting is a named value kept by the application itself, such as the
// version of the seeded reference data.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique;size:100;not null"`
	Value []byte
}
