package users

import (
	"context"
	"time"
)

// UserRepo is the principal store. Lookups return errors.ErrNotFound when no
// row matches and errors.ErrStoreUnavailable for infrastructure faults.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, tenantID, username string) (*User, error)
	UsernameExists(ctx context.Context, tenantID, username string) (bool, error)
	List(ctx context.Context, tenantID string, offset, limit int) ([]*User, error)
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	SetRoles(ctx context.Context, id string, roles []string) error
	SetPasswordHash(ctx context.Context, id, hash string) error

	// Self-service profile data. Preferences are stored as an opaque JSON
	// document; GetPreferences returns "" when none were saved.
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	SetPhotoURL(ctx context.Context, id, url string, at time.Time) error
	GetPreferences(ctx context.Context, id string) (string, error)
	SetPreferences(ctx context.Context, id, prefs string, at time.Time) error
}

// RoleRepo holds the roles defined for each tenant.
type RoleRepo interface {
	UpsertRole(ctx context.Context, role *Role) error
	ListRoles(ctx context.Context, tenantID string) ([]*Role, error)
}
