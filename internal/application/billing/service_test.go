package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/recipesimplifier/api/internal/application/billing"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
	"github.com/recipesimplifier/api/test/testutils"
)

type BillingServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	caller   inbound.Identity
	provider *testutils.MockBillingProvider
	users    *testutils.MockUserRepository
	subs     *testutils.MockSubscriptionRepository
	cfg      config.BillingConfig
	service  *billing.BillingService
}

func (s *BillingServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.caller = inbound.Identity{UserID: uuid.New(), Email: "cook@example.com"}
	s.provider = new(testutils.MockBillingProvider)
	s.users = new(testutils.MockUserRepository)
	s.subs = new(testutils.MockSubscriptionRepository)
	s.cfg = config.BillingConfig{
		SecretKey:      "sk_test",
		PublishableKey: "pk_test",
		WebhookSecret:  "whsec_test",
		PriceID:        "price_123",
	}
	s.service = billing.NewBillingService(s.provider, s.users, s.subs, s.cfg,
		"https://recipes.example.com/", nil, zaptest.NewLogger(s.T()))
}

func (s *BillingServiceTestSuite) webhook(event *outbound.WebhookEvent) error {
	s.provider.On("ParseWebhook", []byte("payload"), "sig").Return(event, nil).Once()
	return s.service.HandleWebhook(s.ctx, []byte("payload"), "sig")
}

func (s *BillingServiceTestSuite) TestCreateCheckoutSession() {
	s.Run("ShouldBuildLocalizedRedirects", func() {
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, s.caller.UserID, "cook@example.com").Return(nil, nil)
		s.provider.On("CreateCheckoutSession", mock.Anything, outbound.CheckoutRequest{
			UserID:     s.caller.UserID.String(),
			Email:      "cook@example.com",
			SuccessURL: "https://recipes.example.com/cs/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  "https://recipes.example.com/cs/upgrade",
		}).Return(&outbound.CheckoutSession{ID: "cs_1", URL: "https://checkout/cs_1"}, nil)

		session, err := s.service.CreateCheckoutSession(s.ctx, s.caller, recipe.LocaleCzech)

		s.Require().NoError(err)
		s.Equal("cs_1", session.ID)
		s.provider.AssertExpectations(s.T())
	})

	s.Run("ProviderNotConfigured_ShouldPassThrough", func() {
		s.SetupTest()
		s.users.On("Ensure", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		s.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewNotConfiguredError("Stripe"))

		_, err := s.service.CreateCheckoutSession(s.ctx, s.caller, "")

		s.True(apperrors.Is(err, apperrors.CodeNotConfigured))
	})
}

func (s *BillingServiceTestSuite) TestVerifySession() {
	s.Run("EmptyID_ShouldBeBadRequest", func() {
		s.SetupTest()

		_, err := s.service.VerifySession(s.ctx, "")

		s.True(apperrors.Is(err, apperrors.CodeBadRequest))
	})

	s.Run("Unpaid_ShouldReportPaymentNotCompleted", func() {
		s.SetupTest()
		s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&outbound.CheckoutSession{ID: "cs_1", PaymentStatus: "unpaid"}, nil)

		_, err := s.service.VerifySession(s.ctx, "cs_1")

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("Payment not completed", appErr.Message)
		s.Equal(400, appErr.StatusCode())
	})

	s.Run("WebhookNotYetProcessed_ShouldSucceedWithoutSubscription", func() {
		s.SetupTest()
		s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&outbound.CheckoutSession{ID: "cs_1", PaymentStatus: "paid", SubscriptionID: "sub_1"}, nil)
		s.subs.On("FindByStripeSubscriptionID", mock.Anything, "sub_1").Return(nil, outbound.ErrNotFound)

		result, err := s.service.VerifySession(s.ctx, "cs_1")

		s.Require().NoError(err)
		s.Nil(result.Subscription)
	})

	s.Run("Recorded_ShouldReturnSubscription", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).WithStripeSubscriptionID("sub_1").Build()
		s.provider.On("GetCheckoutSession", mock.Anything, "cs_1").
			Return(&outbound.CheckoutSession{ID: "cs_1", PaymentStatus: "paid", SubscriptionID: "sub_1"}, nil)
		s.subs.On("FindByStripeSubscriptionID", mock.Anything, "sub_1").Return(sub, nil)

		result, err := s.service.VerifySession(s.ctx, "cs_1")

		s.Require().NoError(err)
		s.Equal(sub, result.Subscription)
	})
}

func (s *BillingServiceTestSuite) TestCancelSubscription() {
	s.Run("Active_ShouldFlagCancelAndStorePeriodEnd", func() {
		// Arrange
		s.SetupTest()
		end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).WithStripeSubscriptionID("sub_1").Build()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)
		s.provider.On("SetCancelAtPeriodEnd", mock.Anything, "sub_1", true).
			Return(&outbound.BillingSubscription{ID: "sub_1", Status: "active", CancelAtPeriodEnd: true, CurrentPeriodEnd: &end}, nil)
		s.subs.On("UpdateByUserID", mock.Anything, s.caller.UserID, mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return u.CancelAtPeriodEnd != nil && *u.CancelAtPeriodEnd && u.CurrentPeriodEnd.Equal(end)
		})).Return(nil)

		// Act
		change, err := s.service.CancelSubscription(s.ctx, s.caller)

		// Assert
		s.Require().NoError(err)
		s.Contains(change.Message, "retain access until the end of your billing period")
		s.Equal(end, *change.CurrentPeriodEnd)
		s.subs.AssertExpectations(s.T())
	})

	s.Run("NoSubscription_ShouldBeNotFound", func() {
		s.SetupTest()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(nil, outbound.ErrNotFound)

		_, err := s.service.CancelSubscription(s.ctx, s.caller)

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("No active subscription found", appErr.Message)
		s.Equal(404, appErr.StatusCode())
	})

	s.Run("ManualGrant_ShouldRequireProcessorID", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).WithoutStripe().Build()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)

		_, err := s.service.CancelSubscription(s.ctx, s.caller)

		s.True(apperrors.Is(err, apperrors.CodeBadRequest))
		s.provider.AssertNotCalled(s.T(), "SetCancelAtPeriodEnd", mock.Anything, mock.Anything, mock.Anything)
	})
}

func (s *BillingServiceTestSuite) TestReactivateSubscription() {
	s.Run("PendingCancellation_ShouldClearFlag", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).
			WithStripeSubscriptionID("sub_1").
			WithCancelAtPeriodEnd(true).
			Build()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)
		s.provider.On("SetCancelAtPeriodEnd", mock.Anything, "sub_1", false).
			Return(&outbound.BillingSubscription{ID: "sub_1", Status: "active"}, nil)
		s.subs.On("UpdateByUserID", mock.Anything, s.caller.UserID, mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return u.CancelAtPeriodEnd != nil && !*u.CancelAtPeriodEnd && *u.Status == subscription.StatusActive
		})).Return(nil)

		change, err := s.service.ReactivateSubscription(s.ctx, s.caller)

		s.Require().NoError(err)
		s.Contains(change.Message, "reactivated")
	})

	s.Run("Canceled_ShouldReactivate", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).
			WithStripeSubscriptionID("sub_1").
			WithStatus(subscription.StatusCanceled).
			Build()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)
		s.provider.On("SetCancelAtPeriodEnd", mock.Anything, "sub_1", false).
			Return(&outbound.BillingSubscription{ID: "sub_1", Status: "active"}, nil)
		s.subs.On("UpdateByUserID", mock.Anything, s.caller.UserID, mock.Anything).Return(nil)

		_, err := s.service.ReactivateSubscription(s.ctx, s.caller)

		s.NoError(err)
	})

	s.Run("ActiveWithoutCancellation_ShouldBeNotFound", func() {
		s.SetupTest()
		sub := testutils.NewSubscriptionBuilder(s.caller.UserID).Build()
		s.subs.On("FindByUserID", mock.Anything, s.caller.UserID).Return(sub, nil)

		_, err := s.service.ReactivateSubscription(s.ctx, s.caller)

		s.True(apperrors.Is(err, apperrors.CodeNotFound))
	})
}

func (s *BillingServiceTestSuite) TestConfigStatus() {
	s.Run("ValidPrice_ShouldFetchDetails", func() {
		s.SetupTest()
		s.provider.On("GetPrice", mock.Anything, "price_123").
			Return(&outbound.Price{ID: "price_123", Active: true, Currency: "usd", UnitAmount: 499}, nil)

		status := s.service.ConfigStatus(s.ctx)

		s.True(status.StripeConfigured)
		s.True(status.PriceIDValid)
		s.True(status.WebhookSecret)
		s.Require().NotNil(status.Price)
		s.Equal(int64(499), status.Price.UnitAmount)
	})

	s.Run("PriceLookupFails_ShouldReportError", func() {
		s.SetupTest()
		s.provider.On("GetPrice", mock.Anything, "price_123").
			Return(nil, apperrors.NewExternalServiceError("Stripe", errors.New("No such price")))

		status := s.service.ConfigStatus(s.ctx)

		s.Nil(status.Price)
		s.Equal("No such price", status.PriceError)
	})

	s.Run("ProductIDInsteadOfPrice_ShouldSkipLookup", func() {
		s.SetupTest()
		s.cfg.PriceID = "prod_123"
		service := billing.NewBillingService(s.provider, s.users, s.subs, s.cfg, "", nil, zaptest.NewLogger(s.T()))

		status := service.ConfigStatus(s.ctx)

		s.False(status.PriceIDValid)
		s.provider.AssertNotCalled(s.T(), "GetPrice", mock.Anything, "prod_123")
	})
}

func (s *BillingServiceTestSuite) TestHandleWebhook() {
	s.Run("MissingSignature_ShouldBeBadRequest", func() {
		s.SetupTest()

		err := s.service.HandleWebhook(s.ctx, []byte("payload"), "")

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("No signature provided", appErr.Message)
	})

	s.Run("InvalidSignature_ShouldPassThrough", func() {
		s.SetupTest()
		s.provider.On("ParseWebhook", mock.Anything, "bad").Return(nil, apperrors.NewInvalidSignatureError(errors.New("mismatch")))

		err := s.service.HandleWebhook(s.ctx, []byte("payload"), "bad")

		s.True(apperrors.Is(err, apperrors.CodeInvalidSignature))
	})

	s.Run("CheckoutCompleted_ShouldUpsertPremium", func() {
		// Arrange
		s.SetupTest()
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		s.provider.On("GetSubscription", mock.Anything, "sub_1").Return(&outbound.BillingSubscription{
			ID: "sub_1", CustomerID: "cus_1", Status: "active", CurrentPeriodStart: &start, CurrentPeriodEnd: &end,
		}, nil)
		s.subs.On("Upsert", mock.Anything, mock.MatchedBy(func(sub *subscription.Subscription) bool {
			return sub.UserID == s.caller.UserID &&
				sub.Plan == subscription.PlanPremium && sub.IsPremium &&
				sub.Status == subscription.StatusActive &&
				*sub.StripeCustomerID == "cus_1" &&
				*sub.StripeSubscriptionID == "sub_1" &&
				sub.CurrentPeriodEnd.Equal(end)
		})).Return(nil)

		// Act
		err := s.webhook(&outbound.WebhookEvent{
			ID:   "evt_1",
			Type: outbound.EventCheckoutCompleted,
			CheckoutSession: &outbound.CheckoutSession{
				SubscriptionID: "sub_1",
				Metadata:       map[string]string{"user_id": s.caller.UserID.String()},
			},
		})

		// Assert
		s.Require().NoError(err)
		s.subs.AssertExpectations(s.T())
	})

	s.Run("CheckoutWithoutUser_ShouldBeBadRequest", func() {
		s.SetupTest()

		err := s.webhook(&outbound.WebhookEvent{
			Type:            outbound.EventCheckoutCompleted,
			CheckoutSession: &outbound.CheckoutSession{SubscriptionID: "sub_1", Metadata: map[string]string{}},
		})

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("No user_id", appErr.Message)
	})

	s.Run("CheckoutWithoutSubscription_ShouldBeBadRequest", func() {
		s.SetupTest()

		err := s.webhook(&outbound.WebhookEvent{
			Type:            outbound.EventCheckoutCompleted,
			CheckoutSession: &outbound.CheckoutSession{Metadata: map[string]string{"user_id": s.caller.UserID.String()}},
		})

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("No subscription ID", appErr.Message)
	})

	s.Run("CheckoutDatabaseFailure_ShouldBeDatabaseError", func() {
		s.SetupTest()
		s.provider.On("GetSubscription", mock.Anything, "sub_1").Return(&outbound.BillingSubscription{ID: "sub_1"}, nil)
		s.subs.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("constraint"))

		err := s.webhook(&outbound.WebhookEvent{
			Type: outbound.EventCheckoutCompleted,
			CheckoutSession: &outbound.CheckoutSession{
				SubscriptionID: "sub_1",
				Metadata:       map[string]string{"user_id": s.caller.UserID.String()},
			},
		})

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("Database error", appErr.Message)
		s.Equal(500, appErr.StatusCode())
	})

	s.Run("SubscriptionUpdated_ShouldSyncFields", func() {
		s.SetupTest()
		end := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_1", mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return *u.Status == subscription.StatusPastDue && *u.CancelAtPeriodEnd && u.CurrentPeriodEnd.Equal(end)
		})).Return(true, nil)

		err := s.webhook(&outbound.WebhookEvent{
			Type:         outbound.EventSubscriptionUpdated,
			Subscription: &outbound.BillingSubscription{ID: "sub_1", Status: "past_due", CancelAtPeriodEnd: true, CurrentPeriodEnd: &end},
		})

		s.NoError(err)
		s.subs.AssertExpectations(s.T())
	})

	s.Run("SubscriptionDeleted_ShouldMarkCanceled", func() {
		s.SetupTest()
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_1", mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return *u.Status == subscription.StatusCanceled && u.Plan == nil
		})).Return(true, nil)

		err := s.webhook(&outbound.WebhookEvent{
			Type:         outbound.EventSubscriptionDeleted,
			Subscription: &outbound.BillingSubscription{ID: "sub_1", Status: "canceled"},
		})

		s.NoError(err)
	})

	s.Run("InvoicePaid_ShouldActivatePremium", func() {
		s.SetupTest()
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_1", mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return *u.Status == subscription.StatusActive && *u.Plan == subscription.PlanPremium
		})).Return(true, nil)

		err := s.webhook(&outbound.WebhookEvent{
			Type:    outbound.EventInvoicePaid,
			Invoice: &outbound.Invoice{ID: "in_1", SubscriptionID: "sub_1"},
		})

		s.NoError(err)
	})

	s.Run("InvoiceFailed_ShouldMarkPastDue", func() {
		s.SetupTest()
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_1", mock.MatchedBy(func(u outbound.SubscriptionUpdate) bool {
			return *u.Status == subscription.StatusPastDue
		})).Return(true, nil)

		err := s.webhook(&outbound.WebhookEvent{
			Type:    outbound.EventInvoicePaymentFailed,
			Invoice: &outbound.Invoice{ID: "in_1", SubscriptionID: "sub_1"},
		})

		s.NoError(err)
	})

	s.Run("UnknownSubscription_ShouldAcknowledge", func() {
		s.SetupTest()
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_404", mock.Anything).Return(false, nil)

		err := s.webhook(&outbound.WebhookEvent{
			Type:    outbound.EventInvoicePaymentFailed,
			Invoice: &outbound.Invoice{SubscriptionID: "sub_404"},
		})

		s.NoError(err)
	})

	s.Run("UpdateFailure_ShouldReportProcessingFailed", func() {
		s.SetupTest()
		s.subs.On("UpdateByStripeSubscriptionID", mock.Anything, "sub_1", mock.Anything).Return(false, errors.New("deadlock"))

		err := s.webhook(&outbound.WebhookEvent{
			Type:         outbound.EventSubscriptionDeleted,
			Subscription: &outbound.BillingSubscription{ID: "sub_1"},
		})

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("Webhook processing failed", appErr.Message)
		s.Equal(500, appErr.StatusCode())
	})

	s.Run("UnhandledType_ShouldAcknowledge", func() {
		s.SetupTest()

		err := s.webhook(&outbound.WebhookEvent{Type: "charge.refunded"})

		s.NoError(err)
		s.subs.AssertNotCalled(s.T(), "UpdateByStripeSubscriptionID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBillingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BillingServiceTestSuite))
}
