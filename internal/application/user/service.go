// Package user provides the application layer for the caller's own account.
package user

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// AccountService implements inbound.AccountService
type AccountService struct {
	userRepo  outbound.UserRepository
	subRepo   outbound.SubscriptionRepository
	usageRepo outbound.UsageRepository
	policy    *subscription.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo outbound.UserRepository,
	subRepo outbound.SubscriptionRepository,
	usageRepo outbound.UsageRepository,
	policy *subscription.Policy,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		usageRepo: usageRepo,
		policy:    policy,
		logger:    logger.Named("account-service"),
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// EnsureUser creates the local row for an authenticated caller if it does
// not exist yet. Repeated calls return the same row.
func (s *AccountService) EnsureUser(ctx context.Context, caller inbound.Identity) (*user.User, error) {
	email, err := user.NormalizeEmail(caller.Email)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if _, err := user.New(caller.UserID, email); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	u, err := s.userRepo.Ensure(ctx, caller.UserID, email)
	if err != nil {
		return nil, errors.NewDatabaseError("ensure user", err)
	}
	s.logger.Debug("User ensured", zap.String("user_id", caller.UserID.String()))
	return u, nil
}

// GetAccount returns the caller's subscription, today's usage and the
// entitlements derived from them. Missing rows read as the free tier with
// zero usage.
func (s *AccountService) GetAccount(ctx context.Context, caller inbound.Identity) (*inbound.AccountView, error) {
	u, err := s.EnsureUser(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub, err := s.subRepo.FindByUserID(ctx, caller.UserID)
	switch {
	case stderrors.Is(err, outbound.ErrNotFound):
		sub = nil
	case err != nil:
		return nil, errors.NewDatabaseError("load subscription", err)
	}

	usage, err := s.usageRepo.FindDaily(ctx, caller.UserID, subscription.Day(now))
	if err != nil {
		return nil, errors.NewDatabaseError("load usage", err)
	}
	if usage == nil {
		usage = subscription.EmptyUsage(caller.UserID, now)
	}

	view := &inbound.AccountView{
		User:         u,
		Subscription: sub,
		Usage:        usage,
		Entitlements: s.policy.Summarize(sub, usage, now),
	}
	if view.Subscription == nil {
		view.Subscription = subscription.Free(caller.UserID)
	}
	return view, nil
}
