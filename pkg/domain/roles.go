package domain

// Role identifies an operator role. Roles form a strict hierarchy used for
// permission checks; authentication itself is an external concern.
type Role string

const (
	RoleWarehouse  Role = "warehouse"
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleWarehouse:  1,
	RoleTechnician: 2,
	RoleSupervisor: 3,
	RoleAdmin:      4,
}

// HasPermission reports whether role meets or exceeds required. Unknown
// roles never qualify.
func HasPermission(role, required Role) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	q, ok := roleRank[required]
	if !ok {
		return false
	}
	return r >= q
}
