package service

import (
	"context"
	"fmt"

	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

// Bootstrap administrator credentials, seeded only into an empty store.
// The first real admin should change this password immediately.
const (
	BootstrapAdminEmail    = "admin@dashboard.com"
	BootstrapAdminPassword = "admin123"
)

// SeedBootstrapAdmin creates the reserved bootstrap administrator iff no
// account exists yet. Returns true when the admin was created. The store
// having any user at all, even an inactive one, suppresses seeding, so
// exactly one account can ever hold the bootstrap identity at
// initialization.
func SeedBootstrapAdmin(ctx context.Context, st *store.Store) (bool, error) {
	hasUser, err := st.HasAnyUser(ctx)
	if err != nil {
		return false, fmt.Errorf("check for existing users: %w", err)
	}
	if hasUser {
		return false, nil
	}

	hash, err := HashPassword(BootstrapAdminPassword)
	if err != nil {
		return false, err
	}

	admin := &model.User{
		Email:        BootstrapAdminEmail,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := st.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("seed bootstrap admin: %w", err)
	}
	return true, nil
}
