package models

import "github.com/golang-jwt/jwt/v5"

// MemberRole represents the caller's role within their group. Tokens are
// minted by the external admin system; this service only validates them.
type MemberRole string

const (
	RoleCoordinator MemberRole = "COORDINATOR"
	RoleMember      MemberRole = "MEMBER"
	RoleAuditor     MemberRole = "AUDITOR"
)

// JWTClaims represents the JWT payload for access tokens. GroupID scopes
// every invite operation: a caller only ever sees their own group's rows.
type JWTClaims struct {
	UserID  string     `json:"user_id"`
	GroupID string     `json:"group_id"`
	Role    MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
