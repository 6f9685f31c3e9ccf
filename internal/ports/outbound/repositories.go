// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrCacheMiss is returned by CacheRepository.Get for absent keys.
	ErrCacheMiss = errors.New("cache miss")
)

// UserRepository persists the local mirror of auth provider accounts.
type UserRepository interface {
	// Ensure inserts the user if missing and returns the stored row.
	Ensure(ctx context.Context, id uuid.UUID, email string) (*user.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	// SetAdmin changes the admin flag and records the change in the audit log
	// in one transaction.
	SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) error
	ListAdmins(ctx context.Context) ([]*user.User, error)
}

// RecipeRepository persists cookbook recipes.
type RecipeRepository interface {
	Create(ctx context.Context, r *recipe.SavedRecipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.SavedRecipe, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.SavedRecipe, int64, error)
	// Delete removes the recipe only when owned by userID.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// SubscriptionUpdate carries the fields a billing event may change. Nil
// fields are left untouched.
type SubscriptionUpdate struct {
	Status             *subscription.Status
	Plan               *subscription.Plan
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  *bool
}

// SubscriptionRepository persists one subscription row per user.
type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
	FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error)
	// Upsert inserts or replaces the row keyed by user id.
	Upsert(ctx context.Context, sub *subscription.Subscription) error
	// UpdateByStripeSubscriptionID applies update to the matching row and
	// reports whether a row matched.
	UpdateByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string, update SubscriptionUpdate) (bool, error)
	UpdateByUserID(ctx context.Context, userID uuid.UUID, update SubscriptionUpdate) error
}

// UsageRepository stores per-day usage counters.
type UsageRepository interface {
	// FindDaily returns the counters for day, or zeroed counters when no row exists.
	FindDaily(ctx context.Context, userID uuid.UUID, day time.Time) (*subscription.Usage, error)
	// Increment atomically adds to the counters for day, creating the row if needed.
	Increment(ctx context.Context, userID uuid.UUID, day time.Time, recipes, customizations int) error
	// Recent returns up to limit days of usage, newest first.
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*subscription.Usage, error)
}

// AuditRepository records admin actions.
type AuditRepository interface {
	Record(ctx context.Context, entry *user.AuditEntry) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
