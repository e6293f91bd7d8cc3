package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the organisation-wide role carried by the identity
// provider's access token.
type UserRole string

const (
	RoleUser         UserRole = "USER"
	RoleAnalyst      UserRole = "ANALYST"
	RoleSupervisor   UserRole = "SUPERVISOR"
	RoleManager      UserRole = "MANAGER"
	RoleChiefManager UserRole = "CHIEF_MANAGER"
	RoleAdmin        UserRole = "ADMIN"
)

// Claims is the decoded bearer-token payload. Authentication itself is
// external; this service only consumes the resulting identity and role.
type Claims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
