package recipe_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	app "github.com/recipesimplifier/api/internal/application/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	gormrepo "github.com/recipesimplifier/api/internal/infrastructure/persistence/gorm"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/sqlite"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
	"github.com/recipesimplifier/api/test/testutils"
)

// RecipeServiceStoreTestSuite runs the parse flow against real repositories
// on SQLite with foreign keys enforced.
type RecipeServiceStoreTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	users     outbound.UserRepository
	usage     outbound.UsageRepository
	scraper   *testutils.MockPageScraper
	extractor *testutils.MockRecipeExtractor
	service   *app.RecipeService
}

func (s *RecipeServiceStoreTestSuite) SetupTest() {
	db, err := sqlite.SetupDatabase("", nil)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.db = db
	s.users = gormrepo.NewUserRepository(db)
	s.usage = gormrepo.NewUsageRepository(db)
	s.scraper = new(testutils.MockPageScraper)
	s.extractor = new(testutils.MockRecipeExtractor)
	s.service = app.NewRecipeService(
		gormrepo.NewRecipeRepository(db),
		s.users,
		gormrepo.NewSubscriptionRepository(db),
		s.usage,
		s.scraper,
		s.extractor,
		subscription.NewPolicy(subscription.DefaultLimits),
		nil,
		zaptest.NewLogger(s.T()),
	)

	parsed := testutils.NewRecipeFactory(7).ParsedRecipe(2, 2)
	s.scraper.On("Scrape", mock.Anything, mock.Anything).Return(&outbound.ScrapedPage{URL: "https://example.com/r"}, nil)
	s.extractor.On("Extract", mock.Anything, mock.Anything).Return(&parsed, nil)
}

func (s *RecipeServiceStoreTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *RecipeServiceStoreTestSuite) TestForeignKeysEnforced() {
	err := s.usage.Increment(s.ctx, uuid.New(), time.Now(), 1, 0)

	s.Error(err)
}

func (s *RecipeServiceStoreTestSuite) TestParseRecipe_NewCaller() {
	s.Run("FreeLimit_ShouldHoldForCallerWithoutUserRow", func() {
		// Arrange
		caller := inbound.Identity{UserID: uuid.New(), Email: "first.visit@example.com"}
		cmd := inbound.ParseRecipeCommand{Caller: caller, URL: "https://example.com/r"}

		// Act
		var succeeded int
		var lastErr error
		for i := 0; i < 10; i++ {
			if _, err := s.service.ParseRecipe(s.ctx, cmd); err != nil {
				lastErr = err
				continue
			}
			succeeded++
		}

		// Assert
		s.Equal(subscription.DefaultLimits.RecipesPerDay, succeeded)
		s.True(apperrors.Is(lastErr, apperrors.CodeQuotaExceeded))

		stored, err := s.users.FindByID(s.ctx, caller.UserID)
		s.Require().NoError(err)
		s.Equal("first.visit@example.com", stored.Email)

		usage, err := s.usage.FindDaily(s.ctx, caller.UserID, time.Now())
		s.Require().NoError(err)
		s.Equal(subscription.DefaultLimits.RecipesPerDay, usage.RecipesParsed)
	})
}

func TestRecipeServiceStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceStoreTestSuite))
}
