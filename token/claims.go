package token

import "github.com/golang-jwt/jwt/v5"

// Claims is the access token payload. Subject holds the user id and ID the jti.
type Claims struct {
	TenantID string   `json:"company_id"`
	Username string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether role is one of the token's roles.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
