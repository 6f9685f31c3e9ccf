// Package recipe provides the application layer for recipe simplification
// and the premium cookbook. It implements inbound.RecipeService.
package recipe

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// Metrics receives recipe pipeline observations. It may be nil.
type Metrics interface {
	RecordParse(outcome string, duration time.Duration)
	RecordQuotaDenied(kind string)
}

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipeRepo outbound.RecipeRepository
	userRepo   outbound.UserRepository
	subRepo    outbound.SubscriptionRepository
	usageRepo  outbound.UsageRepository
	scraper    outbound.PageScraper
	extractor  outbound.RecipeExtractor
	policy     *subscription.Policy
	metrics    Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipeRepo outbound.RecipeRepository,
	userRepo outbound.UserRepository,
	subRepo outbound.SubscriptionRepository,
	usageRepo outbound.UsageRepository,
	scraper outbound.PageScraper,
	extractor outbound.RecipeExtractor,
	policy *subscription.Policy,
	metrics Metrics,
	logger *zap.Logger,
) *RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		userRepo:   userRepo,
		subRepo:    subRepo,
		usageRepo:  usageRepo,
		scraper:    scraper,
		extractor:  extractor,
		policy:     policy,
		metrics:    metrics,
		logger:     logger.Named("recipe-service"),
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *RecipeService) WithClock(now func() time.Time) *RecipeService {
	s.now = now
	return s
}

// ParseRecipe checks the caller's daily allowance, scrapes the page, has it
// simplified and records the usage.
func (s *RecipeService) ParseRecipe(ctx context.Context, cmd inbound.ParseRecipeCommand) (*recipe.ParsedRecipe, error) {
	target, err := recipe.ValidateSourceURL(cmd.URL)
	if err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}

	now := s.now()
	day := subscription.Day(now)
	requested := cmd.Customizations.Count()

	// usage rows reference users, so the caller must exist before counting
	if _, err := s.userRepo.Ensure(ctx, cmd.Caller.UserID, cmd.Caller.Email); err != nil {
		return nil, errors.NewDatabaseError("ensure user", err)
	}

	sub, err := s.loadSubscription(ctx, cmd.Caller.UserID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usageRepo.FindDaily(ctx, cmd.Caller.UserID, day)
	if err != nil {
		return nil, errors.NewDatabaseError("load usage", err)
	}
	if usage == nil {
		usage = subscription.EmptyUsage(cmd.Caller.UserID, day)
	}

	if !s.policy.CanParseRecipe(sub, usage, now) {
		s.quotaDenied("recipes")
		limit := s.policy.MaxRecipesPerDay(sub, now)
		return nil, errors.NewQuotaExceededError("Daily recipe limit reached. Upgrade to premium for unlimited recipes.", limit).
			WithMetadata("used", usage.RecipesParsed)
	}
	if requested > 0 && !s.policy.CanUseCustomizations(sub, usage, requested, now) {
		s.quotaDenied("customizations")
		limit := s.policy.MaxCustomizationsPerDay(sub, now)
		return nil, errors.NewQuotaExceededError("Daily customization limit reached. Upgrade to premium for unlimited customizations.", limit).
			WithMetadata("used", usage.CustomizationsUsed).
			WithMetadata("requested", requested)
	}

	s.logger.Info("Parsing recipe",
		zap.String("user_id", cmd.Caller.UserID.String()),
		zap.String("url", target.String()),
		zap.String("locale", string(cmd.Locale)),
		zap.Int("customizations", requested),
	)

	start := time.Now()
	page, err := s.scraper.Scrape(ctx, target.String())
	if err != nil {
		s.recordParse("fetch_failed", start)
		return nil, s.parseError(err)
	}
	parsed, err := s.extractor.Extract(ctx, outbound.ExtractionRequest{
		Page:           page,
		Locale:         recipe.ParseLocale(string(cmd.Locale)),
		Customizations: cmd.Customizations,
	})
	if err != nil {
		s.recordParse("extract_failed", start)
		return nil, s.parseError(err)
	}
	s.recordParse("success", start)

	if err := s.usageRepo.Increment(ctx, cmd.Caller.UserID, day, 1, requested); err != nil {
		s.logger.Error("Failed to record usage",
			zap.String("user_id", cmd.Caller.UserID.String()),
			zap.Error(err),
		)
		return nil, errors.NewDatabaseError("record usage", err)
	}

	s.logger.Info("Recipe parsed successfully",
		zap.String("user_id", cmd.Caller.UserID.String()),
		zap.String("title", parsed.Title),
		zap.Duration("duration", time.Since(start)),
	)
	return parsed, nil
}

// SaveRecipe stores a parsed recipe in the caller's cookbook. Premium only.
func (s *RecipeService) SaveRecipe(ctx context.Context, cmd inbound.SaveRecipeCommand) (*recipe.SavedRecipe, error) {
	if err := s.requirePremium(ctx, cmd.Caller.UserID, "Saving recipes"); err != nil {
		return nil, err
	}

	saved, err := recipe.NewSavedRecipe(cmd.Caller.UserID, cmd.Recipe, cmd.SourceURL)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if _, err := s.userRepo.Ensure(ctx, cmd.Caller.UserID, cmd.Caller.Email); err != nil {
		return nil, errors.NewDatabaseError("ensure user", err)
	}
	if err := s.recipeRepo.Create(ctx, saved); err != nil {
		return nil, errors.NewDatabaseError("save recipe", err)
	}

	s.logger.Info("Recipe saved",
		zap.String("recipe_id", saved.ID.String()),
		zap.String("user_id", saved.UserID.String()),
		zap.String("title", saved.Title),
	)
	return saved, nil
}

// ListRecipes returns the caller's cookbook, newest first. Premium only.
func (s *RecipeService) ListRecipes(ctx context.Context, userID uuid.UUID, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	if err := s.requirePremium(ctx, userID, "The cookbook"); err != nil {
		return nil, err
	}

	params = params.Normalize()
	recipes, total, err := s.recipeRepo.FindByUserID(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}
	if recipes == nil {
		recipes = []*recipe.SavedRecipe{}
	}

	totalPages := int(total) / params.Limit
	if int(total)%params.Limit != 0 {
		totalPages++
	}
	return &inbound.RecipeList{
		Recipes:    recipes,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetRecipe returns one of the caller's recipes. Other users' recipes are
// reported as not found.
func (s *RecipeService) GetRecipe(ctx context.Context, userID, recipeID uuid.UUID) (*recipe.SavedRecipe, error) {
	saved, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return nil, errors.NewRecipeNotFoundError(recipeID.String())
		}
		return nil, errors.NewDatabaseError("find recipe", err)
	}
	if !saved.OwnedBy(userID) {
		s.logger.Warn("Recipe access denied",
			zap.String("recipe_id", recipeID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, errors.NewRecipeNotFoundError(recipeID.String())
	}
	return saved, nil
}

// DeleteRecipe removes one of the caller's recipes.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID uuid.UUID) error {
	if err := s.recipeRepo.Delete(ctx, recipeID, userID); err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return errors.NewRecipeNotFoundError(recipeID.String())
		}
		return errors.NewDatabaseError("delete recipe", err)
	}
	s.logger.Info("Recipe deleted",
		zap.String("recipe_id", recipeID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

func (s *RecipeService) loadSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, outbound.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("load subscription", err)
	}
	return sub, nil
}

func (s *RecipeService) requirePremium(ctx context.Context, userID uuid.UUID, feature string) error {
	sub, err := s.loadSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if !subscription.HasPremiumAccess(sub, s.now()) {
		return errors.NewPremiumRequiredError(feature)
	}
	return nil
}

// parseError keeps typed failures and wraps anything else as a parse failure.
func (s *RecipeService) parseError(err error) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	return errors.NewParseFailedError(err)
}

func (s *RecipeService) recordParse(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordParse(outcome, time.Since(start))
	}
}

func (s *RecipeService) quotaDenied(kind string) {
	if s.metrics != nil {
		s.metrics.RecordQuotaDenied(kind)
	}
}
