package app

import (
	"fmt"

	"github.com/adarsh140528/Horizon-Bank/internal/domain"
	"github.com/google/uuid"
)

// RequireOwnerOrAdmin allows the account's own principal or an administrator.
func RequireOwnerOrAdmin(p domain.Principal, accountID uuid.UUID) error {
	if p.AccountID == accountID || p.IsAdmin() {
		return nil
	}
	return fmt.Errorf("account %s: %w", accountID, domain.ErrForbidden)
}

// RequireAdmin allows administrators only.
func RequireAdmin(p domain.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return fmt.Errorf("admin role required: %w", domain.ErrForbidden)
}
