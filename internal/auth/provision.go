package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// provision creates a principal and assigns it the named role in one transaction.
func provision(ctx context.Context, db *gorm.DB, user *models.User, roleName string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role

		err := tx.Where("name = ?", roleName).First(&role).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("%w: %s", ErrDefaultRoleMissing, roleName)
		case err != nil:
			return fmt.Errorf("failed to load default role: %w", err)
		}

		if err = tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create principal: %w", err)
		}

		assignment := models.UserRole{
			UserID:     user.ID,
			RoleID:     role.ID,
			IsActive:   true,
			AssignedAt: time.Now().UTC(),
		}

		if err = tx.Omit("Role").Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to assign default role: %w", err)
		}

		return nil
	})
}
