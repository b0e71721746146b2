package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type vendorResolver interface {
	RequireVendor(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// VendorGate admits only approved vendors and stores their profile on the
// request. It must run after Auth.
func VendorGate(resolver vendorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			profile, err := resolver.RequireVendor(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithVendor(r.Context(), profile)
			if logg != nil {
				ctx = logg.WithVendorID(ctx, profile.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
