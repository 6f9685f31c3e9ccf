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

// UsageRepository implements outbound.UsageRepository using GORM
type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) outbound.UsageRepository {
	return &UsageRepository{db: db}
}

// FindDaily reads from the primary so quota checks never see a lagging
// replica.
func (r *UsageRepository) FindDaily(ctx context.Context, userID uuid.UUID, day time.Time) (*subscription.Usage, error) {
	day = subscription.Day(day)

	var model UsageModel
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("user_id = ? AND date = ?", userID, day).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return subscription.EmptyUsage(userID, day), nil
		}
		return nil, err
	}
	return usageFromModel(&model), nil
}

// Increment adds to the day's counters with a single upsert so concurrent
// parses never lose an update.
func (r *UsageRepository) Increment(ctx context.Context, userID uuid.UUID, day time.Time, recipes, customizations int) error {
	now := time.Now().UTC()
	model := &UsageModel{
		UserID:             userID,
		Date:               subscription.Day(day),
		RecipesParsed:      recipes,
		CustomizationsUsed: customizations,
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"recipes_parsed":      gorm.Expr("usage_tracking.recipes_parsed + ?", recipes),
				"customizations_used": gorm.Expr("usage_tracking.customizations_used + ?", customizations),
				"updated_at":          now,
			}),
		}).
		Create(model).Error
}

func (r *UsageRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*subscription.Usage, error) {
	var models []UsageModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	usage := make([]*subscription.Usage, len(models))
	for i := range models {
		usage[i] = usageFromModel(&models[i])
	}
	return usage, nil
}
