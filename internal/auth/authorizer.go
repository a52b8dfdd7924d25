// Package auth resolves who is calling and what they may do.
//
// A Session is created explicitly and passed to every handler; there is no
// ambient "unlocked" flag. Permissions come from a casbin RBAC policy over
// the ledger's resources.
package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
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
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Resources guarded by the policy.
const (
	ObjEntries    = "entries"
	ObjSummaries  = "summaries"
	ObjCompliance = "compliance"
	ObjSettings   = "settings"
	ObjExports    = "exports"
)

// Actions on resources.
const (
	ActRead   = "read"
	ActWrite  = "write"
	ActDelete = "delete"
)

// defaultPolicy lets employees submit entries and gives admins everything else.
var defaultPolicy = [][]string{
	{SubjectFromRole(RoleEmployee), ObjEntries, ActWrite},
	{SubjectFromRole(RoleAdmin), ObjEntries, ActRead},
	{SubjectFromRole(RoleAdmin), ObjEntries, ActDelete},
	{SubjectFromRole(RoleAdmin), ObjSummaries, ActRead},
	{SubjectFromRole(RoleAdmin), ObjCompliance, ActRead},
	{SubjectFromRole(RoleAdmin), ObjSettings, ActRead},
	{SubjectFromRole(RoleAdmin), ObjSettings, ActWrite},
	{SubjectFromRole(RoleAdmin), ObjExports, ActRead},
}

// SubjectFromRole maps a role to its policy subject.
func SubjectFromRole(role Role) string {
	slug := strings.TrimSpace(strings.ToLower(string(role)))
	if slug == "" {
		slug = "anonymous"
	}
	return "role:" + slug
}

type Authorizer struct {
	enforcer *casbin.Enforcer
}

// NewAuthorizer builds the enforcer from the built-in policy, or from a
// casbin policy CSV when policyPath is set.
func NewAuthorizer(policyPath string) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}

	if policyPath != "" {
		enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("authz policy %s: %w", policyPath, err)
		}
		return &Authorizer{enforcer: enforcer}, nil
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("authz policy: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy(SubjectFromRole(RoleAdmin), SubjectFromRole(RoleEmployee)); err != nil {
		return nil, fmt.Errorf("authz roles: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform action on object.
func (a *Authorizer) Allowed(role Role, object, action string) (bool, error) {
	return a.enforcer.Enforce(SubjectFromRole(role), object, action)
}

// Permissions lists "object:action" pairs granted to role, inherited ones included.
func (a *Authorizer) Permissions(role Role) ([]string, error) {
	rules, err := a.enforcer.GetImplicitPermissionsForUser(SubjectFromRole(role))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if len(r) < 3 {
			continue
		}
		p := r[1] + ":" + r[2]
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
