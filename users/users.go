package users

import (
	"slices"
	"strings"
	"time"
)

// Role names seeded for every tenant.
const (
	RoleAdmin        = "Admin"
	RoleFinance      = "Finance"
	RoleStandardUser = "Standard User"
)

// Role is a named permission set scoped to one tenant.
type Role struct {
	ID       string `json:"id,omitempty"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// User is an authenticable principal within a tenant. Roles always holds the
// current assignment as read from the store.
type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	TenantID     string    `json:"tenant_id"`             // Owning tenant
	Username     string    `json:"username"`              // Unique within the tenant, case insensitive
	Email        string    `json:"email,omitempty"`       // Optional contact address
	PasswordHash string    `json:"-"`                     // bcrypt hash - never serialize
	FirstName    string    `json:"first_name,omitempty"`  // First name of the user
	LastName     string    `json:"last_name,omitempty"`   // Last name of the user
	Active       bool      `json:"active"`                // Inactive users can't log in or refresh
	Roles        []string  `json:"roles,omitempty"`       // Role names within the tenant
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user was created
	LastLogin    time.Time `json:"last_login,omitempty"`  // Last successful login
}

// HasRole checks role membership case insensitively.
func (u *User) HasRole(role string) bool {
	return slices.ContainsFunc(u.Roles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// NormalizeUsername is the form usernames are compared and stored in.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
