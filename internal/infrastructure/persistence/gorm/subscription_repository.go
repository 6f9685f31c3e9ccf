package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// SubscriptionRepository implements outbound.SubscriptionRepository using GORM
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) outbound.SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindByUserID reads from the primary: entitlement decisions must see the
// latest webhook or admin write.
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(dbresolver.Write), "user_id = ?", userID)
}

func (r *SubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	return r.findOne(r.db.WithContext(ctx), "stripe_subscription_id = ?", stripeSubscriptionID)
}

func (r *SubscriptionRepository) findOne(db *gorm.DB, query string, arg interface{}) (*subscription.Subscription, error) {
	var model SubscriptionModel
	if err := db.Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrNotFound
		}
		return nil, err
	}
	return subscriptionFromModel(&model), nil
}

// Upsert writes sub keyed by user id. On return sub carries the stored id
// and timestamps.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	model := subscriptionToModel(sub)
	model.UpdatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stripe_customer_id",
				"stripe_subscription_id",
				"status",
				"plan",
				"is_premium",
				"current_period_start",
				"current_period_end",
				"cancel_at_period_end",
				"granted_by",
				"updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	stored, err := r.FindByUserID(ctx, sub.UserID)
	if err != nil {
		return err
	}
	*sub = *stored
	return nil
}

func (r *SubscriptionRepository) UpdateByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string, update outbound.SubscriptionUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(updateColumns(update))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) UpdateByUserID(ctx context.Context, userID uuid.UUID, update outbound.SubscriptionUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("user_id = ?", userID).
		Updates(updateColumns(update))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return outbound.ErrNotFound
	}
	return nil
}

func updateColumns(update outbound.SubscriptionUpdate) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": time.Now().UTC()}
	if update.Status != nil {
		cols["status"] = string(*update.Status)
	}
	if update.Plan != nil {
		cols["plan"] = string(*update.Plan)
		cols["is_premium"] = update.Plan.Premium()
	}
	if update.CurrentPeriodStart != nil {
		cols["current_period_start"] = *update.CurrentPeriodStart
	}
	if update.CurrentPeriodEnd != nil {
		cols["current_period_end"] = *update.CurrentPeriodEnd
	}
	if update.CancelAtPeriodEnd != nil {
		cols["cancel_at_period_end"] = *update.CancelAtPeriodEnd
	}
	return cols
}
