package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/http/respond"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"}

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(token string) (inbound.Identity, error)
}

// AdminChecker reports whether a caller holds the admin flag.
type AdminChecker interface {
	CheckStatus(ctx context.Context, caller inbound.Identity) (*inbound.AdminStatus, error)
}

// WithIdentity stores the authenticated caller in ctx.
func WithIdentity(ctx context.Context, id inbound.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(ctx context.Context) (inbound.Identity, bool) {
	id, ok := ctx.Value(identityKey).(inbound.Identity)
	return id, ok
}

// Authenticate requires a valid bearer token and stores the caller in the
// request context.
func Authenticate(verifier TokenVerifier, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := security.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respond.Error(w, r, logger, errors.NewUnauthorizedError("Unauthorized").WithDetails(err.Error()))
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				respond.Error(w, r, logger, errors.NewUnauthorizedError("Unauthorized").WithDetails("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin lets only admins through. It must run after Authenticate.
func RequireAdmin(admins AdminChecker, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				respond.Error(w, r, logger, errors.NewUnauthorizedError("Unauthorized"))
				return
			}

			status, err := admins.CheckStatus(r.Context(), identity)
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}
			if !status.IsAdmin {
				logger.Warn("Admin access denied", zap.String("user_id", identity.UserID.String()))
				respond.Error(w, r, logger, errors.NewAdminRequiredError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
