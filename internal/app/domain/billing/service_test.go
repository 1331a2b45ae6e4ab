package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.UserSubscription)
	return sub, args.Error(1)
}

func (m *MockSubscriptionRepository) CreateSubscription(ctx context.Context, sub *models.UserSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus) error {
	args := m.Called(ctx, stripeSubscriptionID, status)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) DeactivateSubscriptions(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	sub, _ := args.Get(0).(*models.UserSubscription)
	return sub, args.Error(1)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCustomer(userID uuid.UUID, email string, metadata map[string]interface{}) (string, error) {
	args := m.Called(userID, email, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) DeleteCustomer(customerID string) error {
	args := m.Called(customerID)
	return args.Error(0)
}

func (m *MockPaymentProvider) CreateSubscription(customerID, priceID string, metadata map[string]interface{}) (string, string, error) {
	args := m.Called(customerID, priceID, metadata)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockPaymentProvider) CancelSubscription(subscriptionID string, cancelAtPeriodEnd bool) error {
	args := m.Called(subscriptionID, cancelAtPeriodEnd)
	return args.Error(0)
}

var testPriceIDs = map[string]string{
	"premium": "price_premium_test",
	"pro":     "price_pro_test",
}

func newTestService(repo SubscriptionRepository, provider PaymentProvider) *ServiceImpl {
	return NewService(repo, provider, testPriceIDs, zap.NewNop())
}

func TestSubscribeCreatesPendingSubscription(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockSubscriptionRepository)
	provider := new(MockPaymentProvider)

	provider.On("CreateCustomer", userID, "ana@example.com", mock.Anything).Return("cus_123", nil)
	provider.On("CreateSubscription", "cus_123", "price_premium_test", mock.Anything).
		Return("sub_123", "secret_abc", nil)
	repo.On("DeactivateSubscriptions", mock.Anything, userID, models.SubscriptionCanceled).Return(nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub *models.UserSubscription) bool {
		return sub.UserID == userID &&
			sub.Tier == models.TierPremium &&
			sub.Status == models.SubscriptionTrialing &&
			sub.StripeCustomerID != nil && *sub.StripeCustomerID == "cus_123" &&
			sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID == "sub_123"
	})).Return(nil)

	svc := newTestService(repo, provider)
	result, err := svc.Subscribe(ctx, userID, "ana@example.com", models.TierPremium)

	require.NoError(t, err)
	assert.Equal(t, "sub_123", result.SubscriptionID)
	assert.Equal(t, "secret_abc", result.ClientSecret)
	assert.Equal(t, "premium", result.Tier)
	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestSubscribeRejectsUnpurchasableTier(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSubscriptionRepository)
	provider := new(MockPaymentProvider)

	svc := newTestService(repo, provider)
	_, err := svc.Subscribe(ctx, uuid.New(), "ana@example.com", models.TierFree)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribeCleansUpCustomerOnFailure(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockSubscriptionRepository)
	provider := new(MockPaymentProvider)

	provider.On("CreateCustomer", userID, "ana@example.com", mock.Anything).Return("cus_456", nil)
	provider.On("CreateSubscription", "cus_456", "price_pro_test", mock.Anything).
		Return("", "", fmt.Errorf("card declined"))
	provider.On("DeleteCustomer", "cus_456").Return(nil)

	svc := newTestService(repo, provider)
	_, err := svc.Subscribe(ctx, userID, "ana@example.com", models.TierPro)

	require.Error(t, err)
	provider.AssertCalled(t, "DeleteCustomer", "cus_456")
	repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestActivateFreeTier(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockSubscriptionRepository)

	repo.On("DeactivateSubscriptions", mock.Anything, userID, models.SubscriptionCanceled).Return(nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub *models.UserSubscription) bool {
		return sub.Tier == models.TierFree && sub.Status == models.SubscriptionActive &&
			sub.StripeSubscriptionID == nil
	})).Return(nil)

	svc := newTestService(repo, new(MockPaymentProvider))
	err := svc.ActivateFreeTier(ctx, userID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCancelCurrentSchedulesStripeCancellation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	stripeSubID := "sub_789"
	repo := new(MockSubscriptionRepository)
	provider := new(MockPaymentProvider)

	repo.On("GetActiveSubscription", mock.Anything, userID).Return(&models.UserSubscription{
		UserID:               userID,
		Tier:                 models.TierPremium,
		Status:               models.SubscriptionActive,
		StripeSubscriptionID: &stripeSubID,
	}, nil)
	provider.On("CancelSubscription", stripeSubID, true).Return(nil)

	svc := newTestService(repo, provider)
	err := svc.CancelCurrent(ctx, userID)

	require.NoError(t, err)
	provider.AssertExpectations(t)
	// The local row is only updated once the webhook confirms it.
	repo.AssertNotCalled(t, "DeactivateSubscriptions", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelCurrentFreeTierSkipsStripe(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockSubscriptionRepository)
	provider := new(MockPaymentProvider)

	repo.On("GetActiveSubscription", mock.Anything, userID).Return(&models.UserSubscription{
		UserID: userID,
		Tier:   models.TierFree,
		Status: models.SubscriptionActive,
	}, nil)
	repo.On("DeactivateSubscriptions", mock.Anything, userID, models.SubscriptionCanceled).Return(nil)

	svc := newTestService(repo, provider)
	err := svc.CancelCurrent(ctx, userID)

	require.NoError(t, err)
	provider.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
}

func TestApplySubscriptionEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("maps stripe status onto the local row", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("UpdateStatusByStripeID", mock.Anything, "sub_123", models.SubscriptionActive).Return(nil)

		svc := newTestService(repo, new(MockPaymentProvider))
		err := svc.ApplySubscriptionEvent(ctx, "sub_123", "active")

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown subscription is not an error", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("UpdateStatusByStripeID", mock.Anything, "sub_missing", models.SubscriptionCanceled).
			Return(fmt.Errorf("no subscription sub_missing: %w", models.ErrNotFound))

		svc := newTestService(repo, new(MockPaymentProvider))
		err := svc.ApplySubscriptionEvent(ctx, "sub_missing", "canceled")

		assert.NoError(t, err)
	})

	t.Run("unmapped status leaves the row untouched", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)

		svc := newTestService(repo, new(MockPaymentProvider))
		err := svc.ApplySubscriptionEvent(ctx, "sub_123", "incomplete")

		require.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateStatusByStripeID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("UpdateStatusByStripeID", mock.Anything, "sub_123", models.SubscriptionPastDue).
			Return(errors.New("connection reset"))

		svc := newTestService(repo, new(MockPaymentProvider))
		err := svc.ApplySubscriptionEvent(ctx, "sub_123", "past_due")

		assert.Error(t, err)
	})
}

func TestStatusFromStripe(t *testing.T) {
	tests := []struct {
		stripeStatus string
		want         models.SubscriptionStatus
		ok           bool
	}{
		{"active", models.SubscriptionActive, true},
		{"trialing", models.SubscriptionTrialing, true},
		{"past_due", models.SubscriptionPastDue, true},
		{"unpaid", models.SubscriptionPastDue, true},
		{"canceled", models.SubscriptionCanceled, true},
		{"incomplete_expired", models.SubscriptionExpired, true},
		{"incomplete", "", false},
		{"paused", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.stripeStatus, func(t *testing.T) {
			got, ok := statusFromStripe(tt.stripeStatus)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
