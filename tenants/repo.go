package tenants

import "context"

// Repo returns errors.ErrNotFound when no tenant matches.
type Repo interface {
	Upsert(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	GetByCode(ctx context.Context, code string) (*Tenant, error)
}
