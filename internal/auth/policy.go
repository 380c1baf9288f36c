package auth

import (
	"fmt"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Resources guarded by RequirePermission
const (
	ResourceClients       = "clients"
	ResourceProjects      = "projects"
	ResourceDeals         = "deals"
	ResourceDocuments     = "documents"
	ResourceTickets       = "tickets"
	ResourceInvoices      = "invoices"
	ResourceBilling       = "billing"
	ResourceReviews       = "reviews"
	ResourceActivity      = "activity"
	ResourceEmail         = "email"
	ResourceSystemUpdates = "system_updates"
)

// Actions
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Policy is the role-to-permission table, held in memory and read-only
// once built
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the default policy: admins and system callers may do
// anything; staff may read everything and work tickets.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	rules := [][]string{
		{string(domain.UserRoleAdmin), "*", "*"},
		{string(domain.UserRoleStaff), "*", ActionRead},
		{string(domain.UserRoleStaff), ResourceTickets, ActionWrite},
		{string(domain.UserRoleStaff), ResourceDeals, ActionWrite},
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to add policies: %w", err)
	}
	if _, err := enforcer.AddRoleForUser(RoleSystem, string(domain.UserRoleAdmin)); err != nil {
		return nil, fmt.Errorf("failed to add system role: %w", err)
	}

	return &Policy{enforcer: enforcer}, nil
}

// Allow reports whether the caller may perform action on resource
func (p *Policy) Allow(user *UserContext, resource, action string) (bool, error) {
	allowed, err := p.enforcer.Enforce(user.Subject(), resource, action)
	if err != nil {
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return allowed, nil
}

