// internal/auth/middleware/attach_role.go
package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/examhub/internal/rbac"
)

// AttachRoleFromProfiles replaces the token role with the role stored on the
// caller's profile. allowClaimFallback=true in dev/offline; false in prod.
func AttachRoleFromProfiles(profiles ProfileStore, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx) // set by JWTMiddleware

			p, err := profiles.FindProfile(ctx, sub)
			switch {
			case err == nil && p.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, p.Role)))

			case err == nil || errors.Is(err, ErrProfileNotFound):
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)

			default:
				log.Printf("[Auth] role lookup for %s: %v", sub, err)
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
