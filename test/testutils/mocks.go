package testutils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository provides a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Ensure(ctx context.Context, id uuid.UUID, email string) (*user.User, error) {
	args := m.Called(ctx, id, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) SetAdmin(ctx context.Context, actorID, targetID uuid.UUID, isAdmin bool) error {
	return m.Called(ctx, actorID, targetID, isAdmin).Error(0)
}

func (m *MockUserRepository) ListAdmins(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*user.User)
	return users, args.Error(1)
}

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.SavedRecipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.SavedRecipe, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*recipe.SavedRecipe)
	return r, args.Error(1)
}

func (m *MockRecipeRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.SavedRecipe, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	recipes, _ := args.Get(0).([]*recipe.SavedRecipe)
	return recipes, args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

// MockSubscriptionRepository provides a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, id string) (*subscription.Subscription, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepository) UpdateByStripeSubscriptionID(ctx context.Context, id string, update outbound.SubscriptionUpdate) (bool, error) {
	args := m.Called(ctx, id, update)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateByUserID(ctx context.Context, userID uuid.UUID, update outbound.SubscriptionUpdate) error {
	return m.Called(ctx, userID, update).Error(0)
}

// MockUsageRepository provides a mock implementation of UsageRepository
type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) FindDaily(ctx context.Context, userID uuid.UUID, day time.Time) (*subscription.Usage, error) {
	args := m.Called(ctx, userID, day)
	u, _ := args.Get(0).(*subscription.Usage)
	return u, args.Error(1)
}

func (m *MockUsageRepository) Increment(ctx context.Context, userID uuid.UUID, day time.Time, recipes, customizations int) error {
	return m.Called(ctx, userID, day, recipes, customizations).Error(0)
}

func (m *MockUsageRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*subscription.Usage, error) {
	args := m.Called(ctx, userID, limit)
	u, _ := args.Get(0).([]*subscription.Usage)
	return u, args.Error(1)
}

// MockAuditRepository provides a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *user.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

// MockPageScraper provides a mock implementation of PageScraper
type MockPageScraper struct {
	mock.Mock
}

func (m *MockPageScraper) Scrape(ctx context.Context, url string) (*outbound.ScrapedPage, error) {
	args := m.Called(ctx, url)
	p, _ := args.Get(0).(*outbound.ScrapedPage)
	return p, args.Error(1)
}

// MockRecipeExtractor provides a mock implementation of RecipeExtractor
type MockRecipeExtractor struct {
	mock.Mock
}

func (m *MockRecipeExtractor) Extract(ctx context.Context, req outbound.ExtractionRequest) (*recipe.ParsedRecipe, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*recipe.ParsedRecipe)
	return r, args.Error(1)
}

// MockBillingProvider provides a mock implementation of BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, req outbound.CheckoutRequest) (*outbound.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*outbound.CheckoutSession)
	return s, args.Error(1)
}

func (m *MockBillingProvider) GetCheckoutSession(ctx context.Context, id string) (*outbound.CheckoutSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*outbound.CheckoutSession)
	return s, args.Error(1)
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, id string) (*outbound.BillingSubscription, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*outbound.BillingSubscription)
	return s, args.Error(1)
}

func (m *MockBillingProvider) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*outbound.BillingSubscription, error) {
	args := m.Called(ctx, id, cancel)
	s, _ := args.Get(0).(*outbound.BillingSubscription)
	return s, args.Error(1)
}

func (m *MockBillingProvider) GetPrice(ctx context.Context, id string) (*outbound.Price, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*outbound.Price)
	return p, args.Error(1)
}

func (m *MockBillingProvider) ParseWebhook(payload []byte, signature string) (*outbound.WebhookEvent, error) {
	args := m.Called(payload, signature)
	e, _ := args.Get(0).(*outbound.WebhookEvent)
	return e, args.Error(1)
}
