package middleware

import (
	"net/http"
	"slices"

	"github.com/neline/marketplace-backend/api/responses"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

// RequireRole admits authenticated callers holding one of roles. It must run
// after Auth.
func RequireRole(logg *logger.Logger, roles ...enums.SystemRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := UserIDFromContext(ctx); !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if role := RoleFromContext(ctx); !slices.Contains(roles, role) {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s may not access this resource", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
