package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier is the product tier a user is subscribed to.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

// SubscriptionStatus mirrors the payment processor's subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionTrialing SubscriptionStatus = "trialing"
)

// UserSubscription is a user's current plan. A user has at most one row with
// status "active" at a time; only that row authorizes posting. Absence of an
// active subscription is a distinct failure state, never defaulted to free.
type UserSubscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	Tier                 SubscriptionTier   `json:"tier"`
	Status               SubscriptionStatus `json:"status"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// UserCredits tracks per-bucket monthly posting counters. Created lazily with
// zero counters on first quota check; category counters reset to zero when
// the calendar month of "now" differs from LastMonthlyReset.
type UserCredits struct {
	UserID                    uuid.UUID `json:"user_id"`
	ItemsPostedThisMonth      int       `json:"items_posted_this_month"`
	PropertiesPostedThisMonth int       `json:"properties_posted_this_month"`
	VehiclesPostedThisMonth   int       `json:"vehicles_posted_this_month"`
	MachineryPostedThisMonth  int       `json:"machinery_posted_this_month"`
	LastMonthlyReset          time.Time `json:"last_monthly_reset"`
	TotalPostsLifetime        int       `json:"total_posts_lifetime"`
}
