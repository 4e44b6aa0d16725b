package auth

import (
	"time"

	"github.com/pmws/pmws/internal/roles"
)

// Person is the demographic record an account is bound to.
type Person struct {
	ID                   int64
	FirstName            string
	LastName             string
	IdentificationNumber string
	ContactNumber        string
	Email                string
	IsApartment          bool
	Apartment            string
	Building             string
	Street               string
	Region               string
	City                 string
	Country              string
	IsForeigner          bool
	CreatedAt            time.Time
}

// Account binds a login identifier and credential to a Person.
type Account struct {
	ID             int64
	PersonID       int64
	Username       string
	PasswordHash   string
	Role           roles.Role
	EmployeeRoleID *int64
	Approved       bool
	Suspended      bool
	Deleted        bool
	// ResetToken holds the signed reset token outstanding for this account.
	ResetToken *string

	// Contact details joined from the person row.
	Email         string
	ContactNumber string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewAccount carries the columns written when an account is created.
type NewAccount struct {
	PersonID     int64
	Username     string
	PasswordHash string
	Role         roles.Role
	CreatedBy    *int64
}

// AccountUpdate lists the columns to change. Nil fields are left untouched.
type AccountUpdate struct {
	PasswordHash    *string
	ResetToken      *string
	ClearResetToken bool
	Approved        *bool
	Suspended       *bool
	Deleted         *bool
	ModifiedBy      *int64
	// ExpectResetToken restricts the update to the row still holding this
	// reset token. A mismatch reports shared.ErrNotFound.
	ExpectResetToken *string
}

// Empty reports whether the update would change nothing.
func (u AccountUpdate) Empty() bool {
	return u.PasswordHash == nil && u.ResetToken == nil && !u.ClearResetToken &&
		u.Approved == nil && u.Suspended == nil && u.Deleted == nil
}

// UniqueField names a person column that must not repeat across persons.
type UniqueField string

// Person uniqueness dimensions checked at signup.
const (
	FieldEmail                UniqueField = "email"
	FieldIdentificationNumber UniqueField = "identification_number"
	FieldContactNumber        UniqueField = "contact_number"
)

// SignupInput is the person and credential payload of a self-registration.
type SignupInput struct {
	Person
	// Username defaults to the identification number when empty.
	Username string
	Password string
	Role     roles.Role
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Username  string     `json:"username"`
	Role      roles.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// ResetIssue is returned when a reset token has been issued and dispatched.
type ResetIssue struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func boolPtr(v bool) *bool { return &v }
