package rbac

import "net/http"

var defaultPolicy = NewPolicy(nil)

// Require lets the request through when the caller's role holds perm.
func Require(perm Perm) func(http.Handler) http.Handler {
	return guard(func(r Role) bool { return defaultPolicy.Allows(r, perm) })
}

// RequireAny accepts a role holding at least one of perms; RequireAll a role
// holding every one.
func RequireAny(perms ...Perm) func(http.Handler) http.Handler {
	return guard(func(r Role) bool { return defaultPolicy.AllowsAny(r, perms...) })
}

func RequireAll(perms ...Perm) func(http.Handler) http.Handler {
	return guard(func(r Role) bool { return defaultPolicy.AllowsAll(r, perms...) })
}

func guard(allowed func(Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(RoleFromContext(r.Context()))
			if role == "" || !allowed(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
