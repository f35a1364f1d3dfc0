package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the identity carries the admin role.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Identity is the resolved caller of a request. A nil identity is anonymous.
type Identity struct {
	UserID string
	Role   UserRole
}

// IdentityFromClaims converts validated claims into an Identity.
func IdentityFromClaims(claims *JWTClaims) *Identity {
	if claims == nil {
		return nil
	}
	return &Identity{UserID: claims.UserID, Role: claims.Role}
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Owns reports whether the identity is the given owner.
func (i *Identity) Owns(ownerID string) bool {
	return i != nil && i.UserID != "" && i.UserID == ownerID
}
