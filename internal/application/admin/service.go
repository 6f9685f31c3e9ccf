// Package admin provides the operator use cases: user lookup, manual
// premium grants and admin role management.
package admin

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

const recentUsageDays = 7

// Audit actions for manual grants. Role changes are audited by the user
// repository.
const (
	ActionGrantLifetime   = "grant_lifetime"
	ActionAddSubscription = "add_subscription"
)

// AdminService implements inbound.AdminService
type AdminService struct {
	userRepo  outbound.UserRepository
	subRepo   outbound.SubscriptionRepository
	usageRepo outbound.UsageRepository
	auditRepo outbound.AuditRepository
	period    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(
	userRepo outbound.UserRepository,
	subRepo outbound.SubscriptionRepository,
	usageRepo outbound.UsageRepository,
	auditRepo outbound.AuditRepository,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *AdminService {
	period := cfg.ManualPeriod
	if period <= 0 {
		period = 30 * 24 * time.Hour
	}
	return &AdminService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		usageRepo: usageRepo,
		auditRepo: auditRepo,
		period:    period,
		logger:    logger.Named("admin-service"),
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// CheckStatus reports whether the caller holds the admin flag. A caller
// without a local row is simply not an admin.
func (s *AdminService) CheckStatus(ctx context.Context, caller inbound.Identity) (*inbound.AdminStatus, error) {
	status := &inbound.AdminStatus{
		User: inbound.AdminBrief{ID: caller.UserID, Email: caller.Email},
	}
	u, err := s.userRepo.FindByID(ctx, caller.UserID)
	switch {
	case stderrors.Is(err, outbound.ErrNotFound):
		return status, nil
	case err != nil:
		return nil, errors.NewDatabaseError("check admin status", err)
	}
	status.IsAdmin = u.IsAdmin
	status.User.Email = u.Email
	return status, nil
}

// SearchUser looks a user up by email. A nil result with no error means no
// such user.
func (s *AdminService) SearchUser(ctx context.Context, email string) (*inbound.UserDetails, error) {
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return nil, errors.NewBadRequestError("Email is required")
	}

	u, err := s.userRepo.FindByEmail(ctx, normalized)
	if err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("search user", err)
	}

	sub, err := s.subRepo.FindByUserID(ctx, u.ID)
	if err != nil && !stderrors.Is(err, outbound.ErrNotFound) {
		return nil, errors.NewDatabaseError("load subscription", err)
	}
	usage, err := s.usageRepo.Recent(ctx, u.ID, recentUsageDays)
	if err != nil {
		return nil, errors.NewDatabaseError("load usage", err)
	}
	if usage == nil {
		usage = []*subscription.Usage{}
	}

	return &inbound.UserDetails{
		ID:           u.ID,
		Email:        u.Email,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		Subscription: sub,
		RecentUsage:  usage,
	}, nil
}

// GrantLifetime gives the user a never-expiring premium plan.
func (s *AdminService) GrantLifetime(ctx context.Context, actor inbound.Identity, userID uuid.UUID) (*subscription.Subscription, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	// The grant replaces the plan but not the processor ids, so a later
	// webhook for the same customer still finds the row.
	existing, err := s.subRepo.FindByUserID(ctx, userID)
	if err != nil && !stderrors.Is(err, outbound.ErrNotFound) {
		return nil, errors.NewDatabaseError("load subscription", err)
	}

	grantedBy := actor.UserID
	sub := &subscription.Subscription{
		UserID:    userID,
		Status:    subscription.StatusActive,
		GrantedBy: &grantedBy,
	}
	if existing != nil {
		sub.StripeCustomerID = existing.StripeCustomerID
		sub.StripeSubscriptionID = existing.StripeSubscriptionID
	}
	sub.SetPlan(subscription.PlanLifetime)

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, errors.NewDatabaseError("grant lifetime access", err).WithDetails("Failed to grant lifetime access")
	}
	s.audit(ctx, actor.UserID, userID, ActionGrantLifetime)

	s.logger.Info("Lifetime access granted",
		zap.String("actor_id", actor.UserID.String()),
		zap.String("user_id", userID.String()),
	)
	return sub, nil
}

// AddSubscription records a premium subscription by hand, for payments made
// outside checkout. Missing processor ids get manual placeholders.
func (s *AdminService) AddSubscription(ctx context.Context, actor inbound.Identity, cmd inbound.AddSubscriptionCommand) (*subscription.Subscription, error) {
	if cmd.UserID == uuid.Nil {
		return nil, errors.NewBadRequestError("User ID is required")
	}
	if err := s.requireUser(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	customerID := strings.TrimSpace(cmd.StripeCustomerID)
	if customerID == "" {
		customerID = "manual_" + cmd.UserID.String()
	}
	subID := strings.TrimSpace(cmd.StripeSubscriptionID)
	if subID == "" {
		subID = "manual_sub_" + cmd.UserID.String()
	}

	start := s.now().UTC()
	end := start.Add(s.period)
	grantedBy := actor.UserID
	sub := &subscription.Subscription{
		UserID:               cmd.UserID,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subID,
		Status:               subscription.StatusActive,
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
		GrantedBy:            &grantedBy,
	}
	sub.SetPlan(subscription.PlanPremium)

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, errors.NewDatabaseError("add subscription", err).WithDetails("Failed to add subscription")
	}
	s.audit(ctx, actor.UserID, cmd.UserID, ActionAddSubscription)

	s.logger.Info("Manual subscription added",
		zap.String("actor_id", actor.UserID.String()),
		zap.String("user_id", cmd.UserID.String()),
		zap.Time("period_end", end),
	)
	return sub, nil
}

// ManageAdmin grants or revokes the admin flag on target.
func (s *AdminService) ManageAdmin(ctx context.Context, actor inbound.Identity, action user.AdminAction, targetID uuid.UUID) error {
	if !action.Valid() {
		return errors.NewBadRequestError("Invalid action")
	}
	if targetID == uuid.Nil {
		return errors.NewBadRequestError("Target user ID is required")
	}
	if action == user.ActionRevokeAdmin && targetID == actor.UserID {
		return errors.NewBadRequestError(user.ErrSelfRevoke.Error())
	}

	err := s.userRepo.SetAdmin(ctx, actor.UserID, targetID, action == user.ActionGrantAdmin)
	if err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return errors.NewUserNotFoundError(targetID.String())
		}
		return errors.NewDatabaseError("update admin access", err)
	}

	s.logger.Info("Admin access changed",
		zap.String("actor_id", actor.UserID.String()),
		zap.String("target_id", targetID.String()),
		zap.String("action", string(action)),
	)
	return nil
}

// ListAdmins returns every admin user.
func (s *AdminService) ListAdmins(ctx context.Context) ([]*user.User, error) {
	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list admins", err)
	}
	if admins == nil {
		admins = []*user.User{}
	}
	return admins, nil
}

func (s *AdminService) requireUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return errors.NewUserNotFoundError(id.String())
		}
		return errors.NewDatabaseError("load user", err)
	}
	return nil
}

// audit failures are logged; the grant itself already succeeded.
func (s *AdminService) audit(ctx context.Context, actorID, targetID uuid.UUID, action string) {
	if s.auditRepo == nil {
		return
	}
	entry := &user.AuditEntry{
		ID:           uuid.New(),
		ActorID:      actorID,
		TargetUserID: targetID,
		Action:       action,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record admin audit entry",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
