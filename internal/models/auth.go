package models

import "github.com/golang-jwt/jwt/v5"

// Principal is the authenticated caller of a core operation.
type Principal struct {
	ID   string
	Role UserRole
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether the principal is the given owner.
func (p Principal) Owns(ownerID string) bool { return p.ID != "" && p.ID == ownerID }

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity used by services.
func (c *JWTClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	return Principal{ID: c.UserID, Role: c.Role}
}
