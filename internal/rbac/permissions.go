// Package rbac holds the static role-to-permission table and the pure
// authorization checks built on it. The table is fixed at compile time;
// there is no runtime grant management.
package rbac

import "cyberguard.org/internal/auth"

// Grant names a single resource/action pair.
type Grant struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// rolePermissions is the full permission table. Anything not listed here is
// denied.
var rolePermissions = map[string][]Grant{
	auth.RoleAdmin: {
		{"dashboard", "read"},
		{"threats", "read"},
		{"threats", "write"},
		{"threats", "delete"},
		{"logs", "read"},
		{"logs", "export"},
		{"analytics", "read"},
		{"settings", "read"},
		{"settings", "write"},
		{"users", "read"},
		{"users", "write"},
		{"users", "delete"},
	},
	auth.RoleAnalyst: {
		{"dashboard", "read"},
		{"threats", "read"},
		{"logs", "read"},
		{"logs", "export"},
		{"analytics", "read"},
	},
}

// Authorize reports whether role holds the resource/action grant. Unknown
// roles, resources and actions all return false.
func Authorize(role, resource, action string) bool {
	for _, g := range rolePermissions[role] {
		if g.Resource == resource && g.Action == action {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the grants held by role.
func Permissions(role string) []Grant {
	grants := rolePermissions[role]
	out := make([]Grant, len(grants))
	copy(out, grants)
	return out
}

// routeGrants maps each UI route to the grant required to open it.
var routeGrants = map[string]Grant{
	"/dashboard": {"dashboard", "read"},
	"/threats":   {"threats", "read"},
	"/logs":      {"logs", "read"},
	"/analytics": {"analytics", "read"},
	"/settings":  {"settings", "read"},
}

// CanAccessRoute reports whether role may open the given UI route. Routes
// outside the table are denied.
func CanAccessRoute(role, route string) bool {
	grant, ok := routeGrants[route]
	if !ok {
		return false
	}
	return Authorize(role, grant.Resource, grant.Action)
}
