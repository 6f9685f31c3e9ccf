package inbound

import (
	"context"

	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
)

// AccountService covers the caller's own account.
type AccountService interface {
	EnsureUser(ctx context.Context, caller Identity) (*user.User, error)
	GetAccount(ctx context.Context, caller Identity) (*AccountView, error)
}

// AccountView combines subscription, today's usage and entitlements.
type AccountView struct {
	User         *user.User                 `json:"user"`
	Subscription *subscription.Subscription `json:"subscription"`
	Usage        *subscription.Usage        `json:"usage"`
	Entitlements subscription.Summary       `json:"entitlements"`
}
