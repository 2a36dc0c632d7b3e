package tenants

import (
	"strings"
	"time"
)

// Tenant is a company. Users, roles and throttle state are scoped to it and
// clients address it by Code at login.
type Tenant struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"` // Upper case, unique (e.g. "FINTEQ")
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
