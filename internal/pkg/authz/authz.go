// Package authz gates usecases by role using a casbin RBAC model.
//
// The role hierarchy is static: ADMIN inherits every USER permission through
// a grouping rule, which gives the ordinal check USER < ADMIN.
package authz

import (
	"context"
	"log/slog"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
)

// Roles, ordered from least to most privileged.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Objects and actions referenced by policies.
const (
	ObjectAccount   = "account"
	ObjectOperation = "operation"
	ObjectAdmin     = "admin"

	ActionRead  = "read"
	ActionWrite = "write"
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

var policies = [][]string{
	{RoleUser, ObjectAccount, "*"},
	{RoleUser, ObjectOperation, "*"},
	{RoleAdmin, ObjectAdmin, "*"},
}

var groupings = [][]string{
	{RoleAdmin, RoleUser},
}

// NewEnforcer builds an in-memory enforcer loaded with the static role policies.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if _, err := e.AddPolicies(policies); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicies(groupings); err != nil {
		return nil, err
	}

	return e, nil
}

// Gate checks the identity attached to a request context against the enforcer.
type Gate struct {
	enforcer *casbin.Enforcer
}

// NewGate returns a Gate backed by e.
func NewGate(e *casbin.Enforcer) *Gate {
	return &Gate{enforcer: e}
}

// Authorize returns the caller identity when its role may perform act on obj.
// It fails with CodeUnauthorized when ctx carries no identity and with
// CodeForbidden when the role is not allowed.
func (g *Gate) Authorize(ctx context.Context, obj, act string) (session.Identity, error) {
	id, ok := session.GetIdentity(ctx)
	if !ok {
		return session.Identity{}, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	allowed, err := g.enforcer.Enforce(id.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", id.UserID, "error", err)
		return session.Identity{}, goerror.NewServer(err)
	}

	if !allowed {
		slog.WarnContext(ctx, "role not allowed", "user_id", id.UserID, "role", id.Role, "obj", obj, "act", act)
		return session.Identity{}, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return id, nil
}
