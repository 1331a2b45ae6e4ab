package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// PaymentProvider is the slice of the Stripe client the billing service
// consumes. Satisfied by *StripeProvider and by test mocks.
type PaymentProvider interface {
	CreateCustomer(userID uuid.UUID, email string, metadata map[string]interface{}) (string, error)
	DeleteCustomer(customerID string) error
	CreateSubscription(customerID, priceID string, metadata map[string]interface{}) (string, string, error)
	CancelSubscription(subscriptionID string, cancelAtPeriodEnd bool) error
}

// SubscribeResult carries what the frontend needs to complete payment.
type SubscribeResult struct {
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
	Tier           string `json:"tier"`
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service manages paid subscriptions and keeps the local subscription rows
// in sync with Stripe.
type Service interface {
	// Subscribe starts a paid subscription for the user. The returned client
	// secret is handed to the frontend to confirm payment; the row stays in
	// trialing until the webhook reports the subscription active.
	Subscribe(ctx context.Context, userID uuid.UUID, email string, tier models.SubscriptionTier) (*SubscribeResult, error)
	// ActivateFreeTier creates an active free subscription for a new user.
	ActivateFreeTier(ctx context.Context, userID uuid.UUID) error
	// CancelCurrent schedules the user's active paid subscription for
	// cancellation at period end.
	CancelCurrent(ctx context.Context, userID uuid.UUID) error
	// ApplySubscriptionEvent reconciles a Stripe subscription status change
	// into the local row. Unknown subscription IDs are not an error: the
	// webhook may deliver events for subscriptions created elsewhere.
	ApplySubscriptionEvent(ctx context.Context, stripeSubscriptionID string, stripeStatus string) error
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     SubscriptionRepository
	provider PaymentProvider
	// priceIDs maps tier name to the Stripe price ID, as produced by
	// EnsurePlanCatalog or loaded from configuration.
	priceIDs map[string]string
}

func NewService(repo SubscriptionRepository, provider PaymentProvider, priceIDs map[string]string, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		provider: provider,
		priceIDs: priceIDs,
	}
}

func (s *ServiceImpl) Subscribe(ctx context.Context, userID uuid.UUID, email string, tier models.SubscriptionTier) (*SubscribeResult, error) {
	ctx, span := otel.Tracer("billingService").Start(ctx, "Subscribe", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("subscription.tier", string(tier)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Subscribe"),
		zap.String("userID", userID.String()), zap.String("tier", string(tier)))

	priceID, ok := s.priceIDs[string(tier)]
	if !ok {
		err := fmt.Errorf("tier %q is not purchasable: %w", tier, models.ErrValidation)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid tier")
		return nil, err
	}

	customerID, err := s.provider.CreateCustomer(userID, email, nil)
	if err != nil {
		l.Error("failed to create payment customer", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "customer creation failed")
		return nil, fmt.Errorf("failed to create payment customer: %w", err)
	}

	subscriptionID, clientSecret, err := s.provider.CreateSubscription(customerID, priceID, map[string]interface{}{
		"user_id": userID.String(),
		"tier":    string(tier),
	})
	if err != nil {
		// Orphaned customers clutter the Stripe dashboard; best-effort cleanup.
		if delErr := s.provider.DeleteCustomer(customerID); delErr != nil {
			l.Warn("failed to clean up customer after subscription failure", zap.Error(delErr))
		}
		l.Error("failed to create subscription", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscription creation failed")
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := s.repo.DeactivateSubscriptions(ctx, userID, models.SubscriptionCanceled); err != nil {
		span.RecordError(err)
		return nil, err
	}

	sub := &models.UserSubscription{
		UserID:               userID,
		Tier:                 tier,
		Status:               models.SubscriptionTrialing,
		StripeCustomerID:     &customerID,
		StripeSubscriptionID: &subscriptionID,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist subscription")
		return nil, err
	}

	l.Info("subscription created", zap.String("stripeSubscriptionID", subscriptionID))
	return &SubscribeResult{
		SubscriptionID: subscriptionID,
		ClientSecret:   clientSecret,
		Tier:           string(tier),
	}, nil
}

func (s *ServiceImpl) ActivateFreeTier(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("billingService").Start(ctx, "ActivateFreeTier", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.DeactivateSubscriptions(ctx, userID, models.SubscriptionCanceled); err != nil {
		span.RecordError(err)
		return err
	}

	sub := &models.UserSubscription{
		UserID: userID,
		Tier:   models.TierFree,
		Status: models.SubscriptionActive,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist free subscription")
		return err
	}
	return nil
}

func (s *ServiceImpl) CancelCurrent(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("billingService").Start(ctx, "CancelCurrent", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CancelCurrent"), zap.String("userID", userID.String()))

	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if sub.StripeSubscriptionID == nil {
		// Free tier has nothing to cancel upstream.
		return s.repo.DeactivateSubscriptions(ctx, userID, models.SubscriptionCanceled)
	}

	if err := s.provider.CancelSubscription(*sub.StripeSubscriptionID, true); err != nil {
		l.Error("failed to cancel subscription", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancellation failed")
		return err
	}

	// The row stays active until Stripe reports the deletion via webhook.
	l.Info("subscription scheduled for cancellation",
		zap.String("stripeSubscriptionID", *sub.StripeSubscriptionID))
	return nil
}

func (s *ServiceImpl) ApplySubscriptionEvent(ctx context.Context, stripeSubscriptionID string, stripeStatus string) error {
	ctx, span := otel.Tracer("billingService").Start(ctx, "ApplySubscriptionEvent", trace.WithAttributes(
		attribute.String("stripe.subscription_id", stripeSubscriptionID),
		attribute.String("stripe.status", stripeStatus),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "ApplySubscriptionEvent"),
		zap.String("stripeSubscriptionID", stripeSubscriptionID),
		zap.String("stripeStatus", stripeStatus))

	status, ok := statusFromStripe(stripeStatus)
	if !ok {
		l.Debug("ignoring unmapped subscription status")
		return nil
	}

	err := s.repo.UpdateStatusByStripeID(ctx, stripeSubscriptionID, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			l.Warn("subscription event for unknown subscription")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to apply subscription event")
		return err
	}

	l.Info("subscription status updated", zap.String("status", string(status)))
	return nil
}

// statusFromStripe maps Stripe subscription statuses onto the local enum.
// Statuses with no local meaning (incomplete, paused) report ok=false and
// leave the row untouched.
func statusFromStripe(stripeStatus string) (models.SubscriptionStatus, bool) {
	switch stripeStatus {
	case "active":
		return models.SubscriptionActive, true
	case "trialing":
		return models.SubscriptionTrialing, true
	case "past_due", "unpaid":
		return models.SubscriptionPastDue, true
	case "canceled":
		return models.SubscriptionCanceled, true
	case "incomplete_expired":
		return models.SubscriptionExpired, true
	default:
		return "", false
	}
}
