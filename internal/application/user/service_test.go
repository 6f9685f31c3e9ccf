package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	app "github.com/recipesimplifier/api/internal/application/user"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
	"github.com/recipesimplifier/api/test/testutils"
)

type AccountServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	caller  inbound.Identity
	users   *testutils.MockUserRepository
	subs    *testutils.MockSubscriptionRepository
	usage   *testutils.MockUsageRepository
	service *app.AccountService
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.caller = inbound.Identity{UserID: uuid.New(), Email: "Chef@Example.com"}
	s.users = new(testutils.MockUserRepository)
	s.subs = new(testutils.MockSubscriptionRepository)
	s.usage = new(testutils.MockUsageRepository)
	s.service = app.NewAccountService(s.users, s.subs, s.usage,
		subscription.NewPolicy(subscription.DefaultLimits), zaptest.NewLogger(s.T())).
		WithClock(func() time.Time { return s.now })
}

func (s *AccountServiceTestSuite) stored() *user.User {
	u, err := user.New(s.caller.UserID, s.caller.Email)
	s.Require().NoError(err)
	return u
}

func (s *AccountServiceTestSuite) TestEnsureUser() {
	s.Run("ShouldLowercaseEmail", func() {
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, s.caller.UserID, "chef@example.com").Return(s.stored(), nil).Once()

		u, err := s.service.EnsureUser(s.ctx, s.caller)

		s.Require().NoError(err)
		s.Equal("chef@example.com", u.Email)
		s.users.AssertExpectations(s.T())
	})

	s.Run("InvalidEmail_ShouldFailValidation", func() {
		s.SetupTest()

		_, err := s.service.EnsureUser(s.ctx, inbound.Identity{UserID: uuid.New(), Email: "not-an-email"})

		s.True(apperrors.Is(err, apperrors.CodeValidationFailed))
	})

	s.Run("RepositoryError_ShouldReturnDatabaseError", func() {
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("down"))

		_, err := s.service.EnsureUser(s.ctx, s.caller)

		s.True(apperrors.Is(err, apperrors.CodeDatabaseError))
	})
}

func (s *AccountServiceTestSuite) TestGetAccount() {
	s.Run("NoSubscription_ShouldDefaultToFree", func() {
		// Arrange
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, s.caller.UserID, mock.Anything).Return(s.stored(), nil)
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(nil, outbound.ErrNotFound)
		s.usage.On("FindDaily", mock.Anything, s.caller.UserID, subscription.Day(s.now)).
			Return(subscription.EmptyUsage(s.caller.UserID, s.now), nil)

		// Act
		view, err := s.service.GetAccount(s.ctx, s.caller)

		// Assert
		s.Require().NoError(err)
		s.Equal(subscription.PlanFree, view.Subscription.Plan)
		s.Equal(subscription.StatusInactive, view.Subscription.Status)
		s.False(view.Entitlements.HasPremiumAccess)
		s.True(view.Entitlements.CanParseRecipe)
		s.Equal(3, view.Entitlements.MaxRecipesPerDay)
		s.Equal(3, view.Entitlements.RecipesRemaining)
	})

	s.Run("PendingCancellation_ShouldKeepPremiumUntilPeriodEnd", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).
			WithCancelAtPeriodEnd(true).
			WithPeriodEnd(testutils.TimePtr(s.now.Add(72 * time.Hour))).
			Build()
		s.users.On("Ensure", mock.Anything, s.caller.UserID, mock.Anything).Return(s.stored(), nil)
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)
		s.usage.On("FindDaily", mock.Anything, s.caller.UserID, mock.Anything).
			Return(&subscription.Usage{UserID: s.caller.UserID, RecipesParsed: 10}, nil)

		view, err := s.service.GetAccount(s.ctx, s.caller)

		s.Require().NoError(err)
		s.True(view.Entitlements.HasPremiumAccess)
		s.True(view.Entitlements.CanParseRecipe)
		s.Equal(subscription.Unlimited, view.Entitlements.MaxCustomizationsPerDay)
	})

	s.Run("FreeUserAtLimit_ShouldNotParse", func() {
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, s.caller.UserID, mock.Anything).Return(s.stored(), nil)
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(nil, outbound.ErrNotFound)
		s.usage.On("FindDaily", mock.Anything, s.caller.UserID, mock.Anything).
			Return(&subscription.Usage{UserID: s.caller.UserID, RecipesParsed: 3, CustomizationsUsed: 1}, nil)

		view, err := s.service.GetAccount(s.ctx, s.caller)

		s.Require().NoError(err)
		s.False(view.Entitlements.CanParseRecipe)
		s.Equal(0, view.Entitlements.RecipesRemaining)
		s.Equal(2, view.Entitlements.CustomizationsRemaining)
	})
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
