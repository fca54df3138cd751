package domain

import "testing"

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role, required Role
		want           bool
	}{
		{RoleAdmin, RoleWarehouse, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleSupervisor, RoleAdmin, false},
		{RoleSupervisor, RoleTechnician, true},
		{RoleTechnician, RoleTechnician, true},
		{RoleWarehouse, RoleTechnician, false},
		{Role("intern"), RoleWarehouse, false},
		{RoleAdmin, Role("bogus"), false},
	}
	for _, c := range cases {
		if got := HasPermission(c.role, c.required); got != c.want {
			t.Fatalf("HasPermission(%q, %q) = %v, want %v", c.role, c.required, got, c.want)
		}
	}
}
