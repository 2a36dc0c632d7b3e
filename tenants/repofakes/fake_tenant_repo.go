package tenantrepofakes

import (
	"context"
	"sync"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	codes   map[string]string // code to tenant id
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
		codes:   make(map[string]string),
	}
}

func (tr *FakeTenantRepo) Upsert(_ context.Context, tenantData *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tenantData.ID == "" {
		tenantData.ID = uuid.New().String()
	}
	tenantData.Code = tenants.NormalizeCode(tenantData.Code)
	c := *tenantData
	tr.tenants[c.ID] = &c
	tr.codes[c.Code] = c.ID
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	t, ok := tr.tenants[tenantID]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (tr *FakeTenantRepo) GetByCode(ctx context.Context, code string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	id, ok := tr.codes[tenants.NormalizeCode(code)]
	tr.lock.RUnlock()
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return tr.Get(ctx, id)
}
