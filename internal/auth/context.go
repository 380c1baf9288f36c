package auth

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
)

// UserContext holds the authenticated caller
type UserContext struct {
	// UserID is 0 for system callers authenticated by API key
	UserID   uint
	Username string
	Email    string
	Role     domain.UserRole
	IsSystem bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// RoleSystem is the casbin subject for API key callers
const RoleSystem = "system"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// SystemUser is the identity attached to requests carrying the admin API key
func SystemUser() *UserContext {
	return &UserContext{
		Username: "system",
		Email:    "system@localhost",
		Role:     domain.UserRoleAdmin,
		IsSystem: true,
	}
}

// Subject returns the casbin subject for the caller
func (u *UserContext) Subject() string {
	if u.IsSystem {
		return RoleSystem
	}
	return string(u.Role)
}

// UserIDPtr returns the id to store on audit rows; nil for system callers
func (u *UserContext) UserIDPtr() *uint {
	if u.IsSystem || u.UserID == 0 {
		return nil
	}
	id := u.UserID
	return &id
}

// UserIDFromContext returns the acting user id, or nil when there is none
func UserIDFromContext(ctx context.Context) *uint {
	if user, ok := FromContext(ctx); ok {
		return user.UserIDPtr()
	}
	return nil
}
