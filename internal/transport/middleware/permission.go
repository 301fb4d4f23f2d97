package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/user"
)

// RequireRoles lets the request through only when the authenticated user has
// one of roles. It must run after the auth middleware.
func RequireRoles(logger *slog.Logger, roles ...user.Role) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.UserFromContext(r.Context())
			if !ok {
				base.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("access denied: user lacks required role",
				"user_id", u.ID,
				"role", u.Role,
				"required_roles", roles)
			base.WriteAppError(w, internal.NewForbiddenError("insufficient permissions", internal.ErrCodePermissionDenied))
		})
	}
}
