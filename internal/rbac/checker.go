package rbac

import "context"

// Policy is a role permission table compiled to sets.
type Policy struct {
	grants map[Role]map[Perm]bool
}

// NewPolicy compiles table; nil uses RolePermissions.
func NewPolicy(table map[Role][]Perm) *Policy {
	if table == nil {
		table = RolePermissions
	}
	p := &Policy{grants: make(map[Role]map[Perm]bool, len(table))}
	for role, perms := range table {
		set := make(map[Perm]bool, len(perms))
		for _, perm := range perms {
			set[perm] = true
		}
		p.grants[role] = set
	}
	return p
}

func (p *Policy) Allows(role Role, perm Perm) bool {
	set := p.grants[role]
	return set[PermAll] || set[perm]
}

// AllowsAll reports whether role holds every perm. No perms means false.
func (p *Policy) AllowsAll(role Role, perms ...Perm) bool {
	for _, perm := range perms {
		if !p.Allows(role, perm) {
			return false
		}
	}
	return len(perms) > 0
}

func (p *Policy) AllowsAny(role Role, perms ...Perm) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithRole stores the caller's role. Unknown roles are kept and simply hold
// no permissions.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, Role(role))
}

func RoleFromContext(ctx context.Context) string {
	r, _ := ctx.Value(ctxKey{}).(Role)
	return string(r)
}
