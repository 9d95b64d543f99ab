package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteProfile is returned when a user row lacks the fields its role requires.
var ErrIncompleteProfile = errors.New("incomplete profile")

// Profile is the role specific view of a user. Exactly one concrete type exists per role.
type Profile interface {
	ProfileRole() UserRole
	profile()
}

// BaseProfile holds the fields every role shares.
type BaseProfile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	PhoneNumber string   `json:"phone_number"`
	Role        UserRole `json:"role"`
	IsActive    bool     `json:"is_active"`
}

// ProfileRole returns the role the profile was built for.
func (b BaseProfile) ProfileRole() UserRole { return b.Role }

func (BaseProfile) profile() {}

// CustomerProfile describes a motorist.
type CustomerProfile struct {
	BaseProfile
}

// GarageOwnerProfile describes a garage operator. Garage fields are always present.
type GarageOwnerProfile struct {
	BaseProfile
	GarageName    string `json:"garage_name"`
	GarageAddress string `json:"garage_address"`
}

// AdminProfile describes a platform administrator.
type AdminProfile struct {
	BaseProfile
}

// NewProfile selects the profile variant for the user's role.
func NewProfile(u User) (Profile, error) {
	base := BaseProfile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
	}
	switch u.Role {
	case RoleCustomer:
		return CustomerProfile{BaseProfile: base}, nil
	case RoleAdmin:
		return AdminProfile{BaseProfile: base}, nil
	case RoleGarageOwner:
		name, address := deref(u.GarageName), deref(u.GarageAddress)
		if name == "" || address == "" {
			return nil, fmt.Errorf("%w: garage owner %s requires garage name and address", ErrIncompleteProfile, u.ID)
		}
		return GarageOwnerProfile{BaseProfile: base, GarageName: name, GarageAddress: address}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrIncompleteProfile, u.Role)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
