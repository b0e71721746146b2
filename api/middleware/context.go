package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxVendor contextKey = "vendor_profile"
)

// UserIDFromContext returns the authenticated user, or uuid.Nil outside Auth.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// VendorFromContext returns the profile loaded by VendorGate.
func VendorFromContext(ctx context.Context) *models.Profile {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxVendor).(*models.Profile); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithVendor(ctx context.Context, profile *models.Profile) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVendor, profile)
}
