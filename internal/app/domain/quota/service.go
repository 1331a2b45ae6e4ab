package quota

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
	"github.com/publimicro/marketplace-api/internal/app/observability/metrics"
)

// Denial reasons surfaced in PostingDecision.Reason.
const (
	ReasonNoActiveSubscription = "no_active_subscription"
	ReasonLimitReached         = "limit_reached"
	ReasonInternalError        = "internal_error"
)

// PostingDecision is the outcome of a quota check. Limit and Remaining use
// the Unlimited sentinel for the pro tier.
type PostingDecision struct {
	Allowed       bool                    `json:"allowed"`
	Reason        string                  `json:"reason,omitempty"`
	Tier          models.SubscriptionTier `json:"tier,omitempty"`
	Bucket        Bucket                  `json:"bucket,omitempty"`
	Limit         int                     `json:"limit"`
	Remaining     int                     `json:"remaining"`
	NeedsUpgrade  bool                    `json:"needs_upgrade,omitempty"`
	NextTier      models.SubscriptionTier `json:"next_tier,omitempty"`
	NextTierLimit int                     `json:"next_tier_limit,omitempty"`
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service authorizes listing posts against tier allowances.
type Service interface {
	// CanUserPost is the advisory check used before showing a posting form.
	CanUserPost(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (PostingDecision, error)
	// IncrementPostingCount advances the counter after a post is persisted.
	// Never called speculatively.
	IncrementPostingCount(ctx context.Context, userID uuid.UUID, category models.ListingCategory) error
	// TryConsumeQuota checks and increments in one guarded storage write, so
	// concurrent posts cannot overshoot the limit. The create-listing flow
	// uses this path.
	TryConsumeQuota(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (PostingDecision, error)
}

type ServiceImpl struct {
	logger        *zap.Logger
	subscriptions SubscriptionStore
	credits       CreditsRepository
	clock         Clock
}

// NewService creates a new quota service. A nil clock defaults to the
// system clock.
func NewService(subscriptions SubscriptionStore, credits CreditsRepository, clock Clock, logger *zap.Logger) *ServiceImpl {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &ServiceImpl{
		logger:        logger,
		subscriptions: subscriptions,
		credits:       credits,
		clock:         clock,
	}
}

// CanUserPost decides whether userID may post a listing in category right
// now. Storage failures collapse to a generic internal_error denial for the
// caller-facing decision; the underlying error is also returned for logging.
func (s *ServiceImpl) CanUserPost(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (PostingDecision, error) {
	ctx, span := otel.Tracer("quotaService").Start(ctx, "CanUserPost", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("listing.category", string(category)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CanUserPost"),
		zap.String("userID", userID.String()), zap.String("category", string(category)))

	metrics.Get().QuotaChecksTotal.Add(ctx, 1)

	bucket, ok := BucketFor(category)
	if !ok {
		err := fmt.Errorf("%w: unknown listing category %q", models.ErrValidation, category)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown category")
		return internalDenial(), err
	}

	sub, err := s.subscriptions.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			l.Debug("No active subscription")
			metrics.Get().QuotaDenialsTotal.Add(ctx, 1)
			span.SetStatus(codes.Ok, "Denied: no active subscription")
			return PostingDecision{
				Reason:       ReasonNoActiveSubscription,
				Bucket:       bucket,
				NeedsUpgrade: true,
			}, nil
		}
		l.Error("Failed to look up subscription", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription lookup failed")
		return internalDenial(), fmt.Errorf("error looking up subscription: %w", err)
	}

	limits := LimitsFor(sub.Tier)
	limit := limits.ForBucket(bucket)

	// Pro is unlimited; skip the usage lookup entirely.
	if limit == Unlimited {
		span.SetStatus(codes.Ok, "Allowed: unlimited tier")
		return PostingDecision{
			Allowed:   true,
			Tier:      sub.Tier,
			Bucket:    bucket,
			Limit:     Unlimited,
			Remaining: Unlimited,
		}, nil
	}

	credits, err := s.loadCreditsWithRollover(ctx, userID)
	if err != nil {
		l.Error("Failed to load user credits", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Credits lookup failed")
		return internalDenial(), fmt.Errorf("error loading user credits: %w", err)
	}

	usage := usageForBucket(credits, bucket)
	if usage >= limit {
		l.Debug("Posting limit reached", zap.Int("usage", usage), zap.Int("limit", limit))
		metrics.Get().QuotaDenialsTotal.Add(ctx, 1)
		span.SetStatus(codes.Ok, "Denied: limit reached")
		return limitReachedDenial(sub.Tier, bucket, limit), nil
	}

	span.SetStatus(codes.Ok, "Allowed")
	return PostingDecision{
		Allowed:   true,
		Tier:      sub.Tier,
		Bucket:    bucket,
		Limit:     limit,
		Remaining: limit - usage,
	}, nil
}

// IncrementPostingCount advances the bucket counter for category by one.
// Call only after the listing row exists.
func (s *ServiceImpl) IncrementPostingCount(ctx context.Context, userID uuid.UUID, category models.ListingCategory) error {
	ctx, span := otel.Tracer("quotaService").Start(ctx, "IncrementPostingCount", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("listing.category", string(category)),
	))
	defer span.End()

	bucket, ok := BucketFor(category)
	if !ok {
		err := fmt.Errorf("%w: unknown listing category %q", models.ErrValidation, category)
		span.RecordError(err)
		return err
	}

	// Make sure the row exists for users whose first post skipped the
	// advisory check.
	if _, err := s.credits.GetOrCreateCredits(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Credits lookup failed")
		return fmt.Errorf("error loading user credits: %w", err)
	}

	if err := s.credits.IncrementUsage(ctx, userID, bucket); err != nil {
		s.logger.Error("Failed to increment posting count",
			zap.String("userID", userID.String()), zap.String("bucket", string(bucket)), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Increment failed")
		return fmt.Errorf("error incrementing posting count: %w", err)
	}

	span.SetStatus(codes.Ok, "Posting count incremented")
	return nil
}

// TryConsumeQuota authorizes and consumes one posting slot in a single
// guarded write. Under concurrent posts the limit is a hard cap.
func (s *ServiceImpl) TryConsumeQuota(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (PostingDecision, error) {
	ctx, span := otel.Tracer("quotaService").Start(ctx, "TryConsumeQuota", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("listing.category", string(category)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "TryConsumeQuota"),
		zap.String("userID", userID.String()), zap.String("category", string(category)))

	metrics.Get().QuotaChecksTotal.Add(ctx, 1)

	bucket, ok := BucketFor(category)
	if !ok {
		err := fmt.Errorf("%w: unknown listing category %q", models.ErrValidation, category)
		span.RecordError(err)
		return internalDenial(), err
	}

	sub, err := s.subscriptions.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.Get().QuotaDenialsTotal.Add(ctx, 1)
			span.SetStatus(codes.Ok, "Denied: no active subscription")
			return PostingDecision{
				Reason:       ReasonNoActiveSubscription,
				Bucket:       bucket,
				NeedsUpgrade: true,
			}, nil
		}
		l.Error("Failed to look up subscription", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Subscription lookup failed")
		return internalDenial(), fmt.Errorf("error looking up subscription: %w", err)
	}

	limits := LimitsFor(sub.Tier)
	limit := limits.ForBucket(bucket)

	credits, err := s.loadCreditsWithRollover(ctx, userID)
	if err != nil {
		l.Error("Failed to load user credits", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Credits lookup failed")
		return internalDenial(), fmt.Errorf("error loading user credits: %w", err)
	}

	consumed, err := s.credits.TryIncrementUnderLimit(ctx, userID, bucket, limit)
	if err != nil {
		l.Error("Failed to consume quota", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Quota consume failed")
		return internalDenial(), fmt.Errorf("error consuming quota: %w", err)
	}

	if !consumed {
		metrics.Get().QuotaDenialsTotal.Add(ctx, 1)
		span.SetStatus(codes.Ok, "Denied: limit reached")
		return limitReachedDenial(sub.Tier, bucket, limit), nil
	}

	remaining := Unlimited
	if limit != Unlimited {
		usage := usageForBucket(credits, bucket)
		remaining = limit - usage - 1
		if remaining < 0 {
			remaining = 0
		}
	}

	span.SetStatus(codes.Ok, "Quota consumed")
	return PostingDecision{
		Allowed:   true,
		Tier:      sub.Tier,
		Bucket:    bucket,
		Limit:     limit,
		Remaining: remaining,
	}, nil
}

// loadCreditsWithRollover returns the user's credits after applying the
// month rollover. The rollover runs before every limit evaluation, not on a
// schedule, and is idempotent within a calendar month.
func (s *ServiceImpl) loadCreditsWithRollover(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error) {
	credits, err := s.credits.GetOrCreateCredits(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if sameCalendarMonth(credits.LastMonthlyReset, now) {
		return credits, nil
	}

	if err := s.credits.ResetMonthlyCounters(ctx, userID, now); err != nil {
		return nil, err
	}

	// Re-read the now-reset record.
	return s.credits.GetOrCreateCredits(ctx, userID)
}

func usageForBucket(credits *models.UserCredits, bucket Bucket) int {
	switch bucket {
	case BucketProperties:
		return credits.PropertiesPostedThisMonth
	case BucketVehicles:
		return credits.VehiclesPostedThisMonth
	default:
		return credits.ItemsPostedThisMonth
	}
}

func internalDenial() PostingDecision {
	return PostingDecision{Reason: ReasonInternalError}
}

func limitReachedDenial(tier models.SubscriptionTier, bucket Bucket, limit int) PostingDecision {
	decision := PostingDecision{
		Reason:       ReasonLimitReached,
		Tier:         tier,
		Bucket:       bucket,
		Limit:        limit,
		Remaining:    0,
		NeedsUpgrade: true,
	}
	if next, ok := NextTier(tier); ok {
		decision.NextTier = next
		decision.NextTierLimit = LimitsFor(next).ForBucket(bucket)
	}
	return decision
}
