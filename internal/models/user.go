package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleCustomer    UserRole = "customer"
	RoleGarageOwner UserRole = "garage_owner"
	RoleAdmin       UserRole = "admin"
)

// AllUserRoles lists every role in display order.
var AllUserRoles = []UserRole{RoleCustomer, RoleGarageOwner, RoleAdmin}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleGarageOwner, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	PhoneNumber   string    `db:"phone_number" json:"phone_number"`
	Role          UserRole  `db:"role" json:"role"`
	GarageName    *string   `db:"garage_name" json:"garage_name,omitempty"`
	GarageAddress *string   `db:"garage_address" json:"garage_address,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
