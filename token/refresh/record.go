package refresh

import (
	"time"

	"github.com/jrsteele09/go-hris-auth/users"
)

// State of a record in its rotation chain.
type State string

const (
	StateIssued  State = "issued"  // active
	StateRotated State = "rotated" // revoked, replaced by a successor
	StateRevoked State = "revoked" // revoked at logout, chain ends here
	StateExpired State = "expired" // never revoked but past ExpiresAt
)

// Metadata describes the client presenting or receiving a secret.
type Metadata struct {
	IP        string
	UserAgent string
}

// Record is the server side of a refresh secret. Only the hash of the secret
// is kept. Records link to their successor through ReplacedBy.
type Record struct {
	ID          string
	UserID      string
	TokenHash   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	ReplacedBy  string
	CreatedByIP string
	UserAgent   string
	RevokedByIP string

	// User is the bound principal with its current roles, populated by lookups.
	User *users.User
}

// IsActive is true while the record is neither revoked nor expired.
func (r *Record) IsActive(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

func (r *Record) State(now time.Time) State {
	switch {
	case r.RevokedAt != nil && r.ReplacedBy != "":
		return StateRotated
	case r.RevokedAt != nil:
		return StateRevoked
	case !now.Before(r.ExpiresAt):
		return StateExpired
	}
	return StateIssued
}
