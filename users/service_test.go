package users_test

import (
	"context"
	"strings"
	"testing"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-hris-auth/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testTenantID     = "tenant-finteq"
	testOtherTenant  = "tenant-anb"
	testUsername     = "jane.doe"
	testUserPassword = "password123"
)

// testFixture holds the user service and its fake repo
type testFixture struct {
	repo    *fakeuserrepo.FakeUserRepo
	hasher  *users.PasswordHasher
	service *users.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	repo := fakeuserrepo.NewFakeUserRepo()
	hasher := users.NewPasswordHasher(bcrypt.MinCost)
	service, err := users.NewService(repo, repo, hasher)
	require.NoError(t, err)

	ctx := context.Background()
	for _, name := range []string{users.RoleAdmin, users.RoleFinance, users.RoleStandardUser} {
		require.NoError(t, repo.UpsertRole(ctx, &users.Role{TenantID: testTenantID, Name: name}))
	}
	require.NoError(t, repo.UpsertRole(ctx, &users.Role{TenantID: testOtherTenant, Name: "Auditor"}))

	return &testFixture{repo: repo, hasher: hasher, service: service}
}

func validRequest() users.CreateUserRequest {
	return users.CreateUserRequest{
		TenantID:  testTenantID,
		Username:  " Jane.Doe ",
		Password:  testUserPassword,
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Roles:     []string{"finance", "Finance", "Standard User"},
	}
}

// TestCreateUser checks the stored user is normalized, hashed and active
func TestCreateUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateUser(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, testUsername, created.Username)
	require.Equal(t, []string{users.RoleFinance, users.RoleStandardUser}, created.Roles)
	require.True(t, created.Active)
	require.False(t, created.DateJoined.IsZero())

	stored, err := f.repo.GetByUsername(ctx, testTenantID, "JANE.DOE")
	require.NoError(t, err)
	require.Equal(t, created.ID, stored.ID)
	require.NotEqual(t, testUserPassword, stored.PasswordHash)
	matched, _ := f.hasher.Verify(testUserPassword, stored.PasswordHash)
	require.True(t, matched)
}

// TestCreateUserDuplicateUsername checks usernames are unique per tenant only
func TestCreateUserDuplicateUsername(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateUser(ctx, validRequest())
	require.NoError(t, err)

	_, err = f.service.CreateUser(ctx, validRequest())
	require.ErrorIs(t, err, autherrors.ErrConflict)

	other := validRequest()
	other.TenantID = testOtherTenant
	other.Roles = []string{"Auditor"}
	_, err = f.service.CreateUser(ctx, other)
	require.NoError(t, err)
}

// TestCreateUserRoleValidation checks missing and unknown roles are rejected
func TestCreateUserRoleValidation(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		message string
	}{
		{"no roles", nil, "at least one role"},
		{"unknown role", []string{"Finance", "Payroll", "Auditor"}, "Payroll, Auditor"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			req := validRequest()
			req.Roles = tc.roles

			_, err := f.service.CreateUser(context.Background(), req)
			require.ErrorIs(t, err, autherrors.ErrValidation)
			require.Contains(t, err.Error(), tc.message)

			exists, err := f.repo.UsernameExists(context.Background(), testTenantID, testUsername)
			require.NoError(t, err)
			require.False(t, exists)
		})
	}
}

// TestNewServiceRequiresDependencies checks constructor validation
func TestNewServiceRequiresDependencies(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	_, err := users.NewService(nil, repo, users.NewPasswordHasher(0))
	require.Error(t, err)
	_, err = users.NewService(repo, nil, users.NewPasswordHasher(0))
	require.Error(t, err)
	_, err = users.NewService(repo, repo, nil)
	require.Error(t, err)
}

// TestCreateUserPasswordTooLong checks bcrypt's length limit surfaces as a validation error
func TestCreateUserPasswordTooLong(t *testing.T) {
	f := setupTestFixture(t)
	req := validRequest()
	req.Password = strings.Repeat("p", 100)

	_, err := f.service.CreateUser(context.Background(), req)
	require.ErrorIs(t, err, autherrors.ErrValidation)

	exists, err := f.repo.UsernameExists(context.Background(), testTenantID, testUsername)
	require.NoError(t, err)
	require.False(t, exists)
}

// TestListUsersScopedToTenant checks paging only returns the requested tenant's users
func TestListUsersScopedToTenant(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		req := validRequest()
		req.Username = name
		_, err := f.service.CreateUser(ctx, req)
		require.NoError(t, err)
	}
	outsider := validRequest()
	outsider.TenantID = testOtherTenant
	outsider.Roles = []string{"Auditor"}
	_, err := f.service.CreateUser(ctx, outsider)
	require.NoError(t, err)

	page, err := f.service.ListUsers(ctx, testTenantID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "alice", page[0].Username)
	require.Equal(t, "bob", page[1].Username)

	page, err = f.service.ListUsers(ctx, testTenantID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "carol", page[0].Username)

	_, err = f.service.ListUsers(ctx, "", 0, 10)
	require.ErrorIs(t, err, autherrors.ErrValidation)
}

// TestProfileRoundTrip checks profile edits, photo and preferences are stored per user
func TestProfileRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	user, err := f.service.CreateUser(ctx, validRequest())
	require.NoError(t, err)

	_, profile, err := f.service.Profile(ctx, testTenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Jane", profile.FirstName)
	require.True(t, profile.UpdatedAt.IsZero())

	require.NoError(t, f.service.UpdateProfile(ctx, testTenantID, user.ID, users.ProfileUpdate{
		FirstName:  " Janet ",
		LastName:   "Doe",
		Phone:      "+44 20 7946 0000",
		Department: "Finance",
		JobTitle:   "Controller",
	}))
	require.NoError(t, f.service.UpdatePhoto(ctx, testTenantID, user.ID, "https://cdn.example.com/janet.png"))

	got, profile, err := f.service.Profile(ctx, testTenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Janet", got.FirstName)
	require.Equal(t, "Janet", profile.FirstName)
	require.Equal(t, "Controller", profile.JobTitle)
	require.Equal(t, "https://cdn.example.com/janet.png", profile.PhotoURL)
	require.False(t, profile.UpdatedAt.IsZero())

	prefs, err := f.service.Preferences(ctx, testTenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, users.DefaultPreferences, prefs)

	require.NoError(t, f.service.UpdatePreferences(ctx, testTenantID, user.ID, `{"theme":"dark"}`))
	prefs, err = f.service.Preferences(ctx, testTenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, `{"theme":"dark"}`, prefs)

	require.NoError(t, f.service.UpdatePreferences(ctx, testTenantID, user.ID, "  "))
	prefs, err = f.service.Preferences(ctx, testTenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, users.DefaultPreferences, prefs)

	require.ErrorIs(t, f.service.UpdatePhoto(ctx, testTenantID, user.ID, " "), autherrors.ErrValidation)
}

// TestProfileHiddenAcrossTenants checks a user id from another tenant reads as not found
func TestProfileHiddenAcrossTenants(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	user, err := f.service.CreateUser(ctx, validRequest())
	require.NoError(t, err)

	_, _, err = f.service.Profile(ctx, testOtherTenant, user.ID)
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	require.ErrorIs(t, f.service.UpdateProfile(ctx, testOtherTenant, user.ID, users.ProfileUpdate{}), autherrors.ErrNotFound)
	require.ErrorIs(t, f.service.UpdatePreferences(ctx, testOtherTenant, user.ID, "{}"), autherrors.ErrNotFound)
	_, err = f.service.Preferences(ctx, "", "missing")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}
