package rbac

// MenuItem describes one navigation entry and the grant gating it.
type MenuItem struct {
	Name      string `json:"name"`
	Route     string `json:"route"`
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	AdminOnly bool   `json:"admin_only"`
}

// DefaultMenu is the full navigation tree before per-role filtering.
var DefaultMenu = []MenuItem{
	{Name: "Dashboard", Route: "/dashboard", Resource: "dashboard", Action: "read"},
	{Name: "Threats", Route: "/threats", Resource: "threats", Action: "read"},
	{Name: "Audit Logs", Route: "/logs", Resource: "logs", Action: "read"},
	{Name: "Analytics", Route: "/analytics", Resource: "analytics", Action: "read"},
	{Name: "Settings", Route: "/settings", Resource: "settings", Action: "read", AdminOnly: true},
}

// FilterMenuItems returns the entries of items visible to role: the role
// must hold the entry's grant, and admin-only entries require the admin role
// regardless of grants.
func FilterMenuItems(role string, items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if item.AdminOnly && role != "admin" {
			continue
		}
		if !Authorize(role, item.Resource, item.Action) {
			continue
		}
		out = append(out, item)
	}
	return out
}
