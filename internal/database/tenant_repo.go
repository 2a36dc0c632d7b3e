package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-hris-auth/tenants"
)

const tenantColumns = `id, code, name, active, created_at`

type TenantRepo struct {
	db *pgxpool.Pool
}

var _ tenants.Repo = (*TenantRepo)(nil)

func NewTenantRepo(db *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Upsert(ctx context.Context, t *tenants.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.Code = tenants.NormalizeCode(t.Code)
	query := `
		INSERT INTO companies (id, code, name, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, active = EXCLUDED.active`
	_, err := r.db.Exec(ctx, query, t.ID, t.Code, t.Name, t.Active, t.CreatedAt)
	return storeErr("tenants.Upsert", err)
}

func (r *TenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM companies WHERE id = $1`, tenantID)
	t, err := scanTenant(row)
	return t, storeErr("tenants.Get", err)
}

func (r *TenantRepo) GetByCode(ctx context.Context, code string) (*tenants.Tenant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM companies WHERE code = $1`, tenants.NormalizeCode(code))
	t, err := scanTenant(row)
	return t, storeErr("tenants.GetByCode", err)
}

func scanTenant(row pgx.Row) (*tenants.Tenant, error) {
	t := &tenants.Tenant{}
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
