package server

import (
	"context"
	"fmt"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/tenants"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/rs/zerolog/log"
)

type demoUser struct {
	username  string
	email     string
	password  string
	firstName string
	lastName  string
	role      string
}

type demoCompany struct {
	code  string
	name  string
	users []demoUser
}

var systemRoles = []string{users.RoleAdmin, users.RoleFinance, users.RoleStandardUser}

var demoCompanies = []demoCompany{
	{code: "FINTEQ", name: "Finteq", users: []demoUser{
		{"finteq_admin", "admin@finteq.local", "admin123", "Finteq", "Admin", users.RoleAdmin},
		{"finteq_finance", "finance@finteq.local", "finance123", "Finteq", "Finance", users.RoleFinance},
		{"finteq_user", "user@finteq.local", "user123", "Finteq", "User", users.RoleStandardUser},
	}},
	{code: "ANB", name: "AnB", users: []demoUser{
		{"anb_admin", "admin@anb.local", "admin123", "AnB", "Admin", users.RoleAdmin},
		{"anb_finance", "finance@anb.local", "finance123", "AnB", "Finance", users.RoleFinance},
		{"anb_user", "user@anb.local", "user123", "AnB", "User", users.RoleStandardUser},
	}},
}

// InitialiseDemoData creates the demo companies, their system roles and
// sample users. Existing companies and users are left alone.
func InitialiseDemoData(ctx context.Context, tenantRepo tenants.Repo, roleRepo users.RoleRepo, userService *users.Service) error {
	log.Info().Msg("🔧 Bootstrap: seeding demo data...")

	for _, dc := range demoCompanies {
		company, err := initialiseCompany(ctx, tenantRepo, dc.code, dc.name)
		if err != nil {
			return fmt.Errorf("failed to bootstrap company %s: %w", dc.code, err)
		}

		for _, name := range systemRoles {
			if err := roleRepo.UpsertRole(ctx, &users.Role{TenantID: company.ID, Name: name}); err != nil {
				return fmt.Errorf("failed to bootstrap role %s for %s: %w", name, dc.code, err)
			}
		}

		for _, du := range dc.users {
			_, err := userService.CreateUser(ctx, users.CreateUserRequest{
				TenantID:  company.ID,
				Username:  du.username,
				Password:  du.password,
				Email:     du.email,
				FirstName: du.firstName,
				LastName:  du.lastName,
				Roles:     []string{du.role},
			})
			switch {
			case autherrors.Is(err, autherrors.ErrConflict):
				continue
			case err != nil:
				return fmt.Errorf("failed to bootstrap user %s: %w", du.username, err)
			}
			log.Info().Str("company", dc.code).Str("username", du.username).Str("role", du.role).Msg("👤 demo user created")
		}
	}

	log.Info().Msg("✅ Bootstrap: demo data ready")
	return nil
}

func initialiseCompany(ctx context.Context, tenantRepo tenants.Repo, code, name string) (*tenants.Tenant, error) {
	company, err := tenantRepo.GetByCode(ctx, code)
	if err == nil {
		return company, nil
	}
	if !autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, err
	}

	company = &tenants.Tenant{Code: code, Name: name, Active: true}
	if err := tenantRepo.Upsert(ctx, company); err != nil {
		return nil, err
	}
	log.Info().Str("company", code).Str("id", company.ID).Msg("🏢 demo company created")
	return company, nil
}
