package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
)

// LocalProvider handles email and password sign-in against the local database.
type LocalProvider struct {
	db          *gorm.DB
	invalidator Invalidator
	defaultRole string
}

const whereID = "id = ?"

// NewLocalProvider creates a new local authentication provider.
// New principals are assigned defaultRole.
func NewLocalProvider(db *gorm.DB, invalidator Invalidator, defaultRole string) *LocalProvider {
	return &LocalProvider{
		db:          db,
		invalidator: invalidator,
		defaultRole: defaultRole,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate authenticates a principal against the local database.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).
		Where("email = ? AND auth_source = ?", normalizeEmail(email), models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now

	if err = p.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return &user, nil
}

// SignUp creates an active local principal holding the default role.
func (p *LocalProvider) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = normalizeEmail(email)

	var count int64
	if err := p.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if count > 0 {
		return nil, ErrEmailExists
	}

	hashedPassword, err := models.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:       email,
		Password:    hashedPassword,
		DisplayName: displayName,
		Active:      true,
		AuthSource:  models.AuthSourceLocal,
	}

	if err = provision(ctx, p.db, &user, p.defaultRole); err != nil {
		return nil, err
	}

	return &user, nil
}

// ChangePassword changes a principal's password.
func (p *LocalProvider) ChangePassword(ctx context.Context, principalID uuid.UUID, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.WithContext(ctx).Where("id = ? AND auth_source = ?", principalID, models.AuthSourceLocal).
		First(&user).Error; err != nil {
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	hashedPassword, err := models.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, principalID).
		Update("password", hashedPassword).Error
}

// SetActive activates or deactivates a principal. A deactivated principal
// resolves to an empty permission set.
func (p *LocalProvider) SetActive(ctx context.Context, principalID uuid.UUID, active bool) error {
	res := p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, principalID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update principal: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	p.invalidator.Invalidate(principalID)

	return nil
}

// GetPrincipal retrieves a principal by id.
func (p *LocalProvider) GetPrincipal(ctx context.Context, principalID uuid.UUID) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).First(&user, whereID, principalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
