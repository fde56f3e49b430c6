package models

import "github.com/golang-jwt/jwt/v5"

// JwtCustomClaims carries the identity and role of the caller. The dispatch
// endpoints only admit STAFF or ADMIN roles.
type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
