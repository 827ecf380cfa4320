package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CheckOwnedOrAdmin returns ErrTenantViolation unless the principal owns the
// record or is an admin.
func CheckOwnedOrAdmin(principalID, ownerID uuid.UUID, isAdmin bool) error {
	if isAdmin {
		return nil
	}

	if principalID != uuid.Nil && principalID == ownerID {
		return nil
	}

	return ErrTenantViolation
}

// AssertOwnedOrAdmin confines a principal to records of its own tenant.
// Admins cross tenants. When the admin question cannot be answered the
// principal is treated as a non-admin.
func (s *Service) AssertOwnedOrAdmin(ctx context.Context, principalID, ownerID uuid.UUID) error {
	if principalID == uuid.Nil {
		return ErrTenantViolation
	}

	if principalID == ownerID {
		return nil
	}

	admin, err := s.IsAdmin(ctx, principalID)
	if err != nil {
		log.Warn().Err(err).Str("principal_id", principalID.String()).Msg("tenant check failed closed")
		return fmt.Errorf("%w: %w", ErrTenantViolation, err)
	}

	if err = CheckOwnedOrAdmin(principalID, ownerID, admin); err != nil {
		log.Warn().Str("principal_id", principalID.String()).Str("owner_id", ownerID.String()).
			Msg("tenant boundary violation")

		return err
	}

	return nil
}
