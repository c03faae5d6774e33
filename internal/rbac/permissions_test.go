package rbac

import (
	"testing"

	"cyberguard.org/internal/auth"
)

var allResources = []string{"dashboard", "threats", "logs", "analytics", "settings", "users"}
var allActions = []string{"read", "write", "delete", "export"}

func TestAdminGrants(t *testing.T) {
	granted := []Grant{
		{"dashboard", "read"},
		{"threats", "read"}, {"threats", "write"}, {"threats", "delete"},
		{"logs", "read"}, {"logs", "export"},
		{"analytics", "read"},
		{"settings", "read"}, {"settings", "write"},
		{"users", "read"}, {"users", "write"}, {"users", "delete"},
	}
	assertExactGrants(t, auth.RoleAdmin, granted)
}

func TestAnalystGrants(t *testing.T) {
	granted := []Grant{
		{"dashboard", "read"},
		{"threats", "read"},
		{"logs", "read"}, {"logs", "export"},
		{"analytics", "read"},
	}
	assertExactGrants(t, auth.RoleAnalyst, granted)
}

// assertExactGrants checks every resource/action combination, so anything
// granted outside the expected set fails too.
func assertExactGrants(t *testing.T, role string, granted []Grant) {
	t.Helper()
	want := map[Grant]bool{}
	for _, g := range granted {
		want[g] = true
	}
	for _, resource := range allResources {
		for _, action := range allActions {
			got := Authorize(role, resource, action)
			if got != want[Grant{resource, action}] {
				t.Errorf("Authorize(%q, %q, %q) = %v, want %v", role, resource, action, got, !got)
			}
		}
	}
}

func TestAuthorizeUnknownInputs(t *testing.T) {
	cases := [][3]string{
		{"", "threats", "read"},
		{"superuser", "threats", "read"},
		{auth.RoleAdmin, "reports", "read"},
		{auth.RoleAdmin, "threats", "approve"},
		{auth.RoleAdmin, "", ""},
	}
	for _, c := range cases {
		if Authorize(c[0], c[1], c[2]) {
			t.Errorf("Authorize(%q, %q, %q) = true, want false", c[0], c[1], c[2])
		}
	}
}

func TestAuthorizeIsIdempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		if !Authorize(auth.RoleAnalyst, "logs", "export") {
			t.Fatal("grant disappeared between calls")
		}
		if Authorize(auth.RoleAnalyst, "users", "read") {
			t.Fatal("denial flipped between calls")
		}
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	grants := Permissions(auth.RoleAnalyst)
	if len(grants) == 0 {
		t.Fatal("no grants for analyst")
	}
	grants[0] = Grant{"users", "delete"}
	if Authorize(auth.RoleAnalyst, "users", "delete") {
		t.Fatal("mutating the returned slice changed the table")
	}
}

func TestCanAccessRoute(t *testing.T) {
	cases := []struct {
		role  string
		route string
		want  bool
	}{
		{auth.RoleAdmin, "/dashboard", true},
		{auth.RoleAdmin, "/settings", true},
		{auth.RoleAnalyst, "/dashboard", true},
		{auth.RoleAnalyst, "/threats", true},
		{auth.RoleAnalyst, "/logs", true},
		{auth.RoleAnalyst, "/analytics", true},
		{auth.RoleAnalyst, "/settings", false},
		{auth.RoleAdmin, "/admin", false},
		{auth.RoleAdmin, "", false},
		{"", "/dashboard", false},
	}
	for _, tc := range cases {
		if got := CanAccessRoute(tc.role, tc.route); got != tc.want {
			t.Errorf("CanAccessRoute(%q, %q) = %v, want %v", tc.role, tc.route, got, tc.want)
		}
	}
}
