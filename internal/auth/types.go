package auth

import (
	"context"
	"time"
)

// The two fixed access levels. There is no hierarchy beyond what the
// permission table grants each of them.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

// ValidRole reports whether role is one of the fixed roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleAnalyst
}

// Identity is an account record with a role. The password hash never leaves
// the server; LastLogin is mutated only by a successful login.
type Identity struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// IdentityUpdate applies partial changes to an identity. Nil fields are left
// untouched.
type IdentityUpdate struct {
	Email        *string
	PasswordHash *string
	Role         *string
	IsActive     *bool
}

// IdentityStore describes the persistence operations the auth subsystem
// requires. Username lookups are case-sensitive exact matches.
type IdentityStore interface {
	Create(ctx context.Context, identity *Identity) error
	Find(ctx context.Context, id string) (*Identity, error)
	FindByUsername(ctx context.Context, username string) (*Identity, error)
	List(ctx context.Context) ([]*Identity, error)
	Update(ctx context.Context, id string, upd IdentityUpdate) (*Identity, error)
	UpdateLastLogin(ctx context.Context, id string, when time.Time) error
	Delete(ctx context.Context, id string) error
}
