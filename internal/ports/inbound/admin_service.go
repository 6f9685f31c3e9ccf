package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
)

// AdminService covers the operator endpoints.
type AdminService interface {
	CheckStatus(ctx context.Context, caller Identity) (*AdminStatus, error)
	SearchUser(ctx context.Context, email string) (*UserDetails, error)
	GrantLifetime(ctx context.Context, actor Identity, userID uuid.UUID) (*subscription.Subscription, error)
	AddSubscription(ctx context.Context, actor Identity, cmd AddSubscriptionCommand) (*subscription.Subscription, error)
	ManageAdmin(ctx context.Context, actor Identity, action user.AdminAction, targetID uuid.UUID) error
	ListAdmins(ctx context.Context) ([]*user.User, error)
}

// AdminStatus reports whether the caller is an admin.
type AdminStatus struct {
	IsAdmin bool       `json:"isAdmin"`
	User    AdminBrief `json:"user"`
}

type AdminBrief struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// UserDetails is the admin lookup result for one user.
type UserDetails struct {
	ID           uuid.UUID                  `json:"id"`
	Email        string                     `json:"email"`
	IsAdmin      bool                       `json:"is_admin"`
	CreatedAt    time.Time                  `json:"created_at"`
	Subscription *subscription.Subscription `json:"subscription"`
	RecentUsage  []*subscription.Usage      `json:"recent_usage"`
}

// AddSubscriptionCommand grants a manual premium subscription.
type AddSubscriptionCommand struct {
	UserID               uuid.UUID
	StripeCustomerID     string
	StripeSubscriptionID string
}
