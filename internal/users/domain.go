package users

import (
	"time"

	"github.com/pmws/pmws/internal/roles"
)

// Status selects which accounts a listing returns.
type Status string

// Listing filters.
const (
	StatusAll       Status = "all"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Summary is the administrative view of an account and its person.
type Summary struct {
	AccountID      int64      `json:"userId"`
	Username       string     `json:"username"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	ContactNumber  string     `json:"contactNumber"`
	Role           roles.Role `json:"userRoleId"`
	EmployeeRoleID *int64     `json:"employeeRoleId"`
	Approved       bool       `json:"isApproved"`
	Suspended      bool       `json:"isSuspended"`
	Deleted        bool       `json:"isDeleted"`
	CreatedAt      time.Time  `json:"createdOn"`
	ModifiedAt     time.Time  `json:"modifiedOn"`
}
