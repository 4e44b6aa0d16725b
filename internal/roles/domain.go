package roles

import "fmt"

// Role is a numeric rank; a lower rank carries more privilege.
type Role int

// Role ranks.
const (
	Admin        Role = 1
	Management   Role = 2
	Operating    Role = 3
	Resident     Role = 4
	Registered   Role = 5
	Unregistered Role = 6
)

var roleNames = map[Role]string{
	Admin:        "Admin",
	Management:   "ManagementUser",
	Operating:    "OperatingUser",
	Resident:     "ResidentUser",
	Registered:   "RegisteredUser",
	Unregistered: "UnregisteredUser",
}

// All lists every role in rank order.
func All() []Role {
	return []Role{Admin, Management, Operating, Resident, Registered, Unregistered}
}

// Valid reports whether r is a known rank.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Group is a named set of ranks used by the access gate.
type Group struct {
	Name    string
	members map[Role]struct{}
}

// NewGroup builds a Group from its member ranks.
func NewGroup(name string, members ...Role) Group {
	set := make(map[Role]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return Group{Name: name, members: set}
}

// Contains reports direct membership, without the Admin override.
func (g Group) Contains(r Role) bool {
	_, ok := g.members[r]
	return ok
}

// Allows reports whether r may access g. Admin is granted every group.
func (g Group) Allows(r Role) bool {
	return r == Admin || g.Contains(r)
}

// Predefined groups.
var (
	Residents    = NewGroup("Residents", Admin, Resident, Registered)
	Staff        = NewGroup("Staff", Admin, Management, Operating)
	ManagementUp = NewGroup("Management", Admin, Management)
	Everyone     = NewGroup("All", All()...)
)

// Record is a row of the user_roles lookup table.
type Record struct {
	ID   Role   `json:"userRoleId"`
	Name string `json:"userRoleName"`
}
