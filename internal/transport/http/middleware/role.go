package middleware

import (
	"net/http"

	"github.com/go-delivery-messaging/internal/domain"
)

// RequireStaff allows access only to callers whose JWT role is a staff role
// (domain.IsStaff), the same rule that selects the staff mailbox and topic.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !domain.IsStaff(claims.Role) {
			writeJSONError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
