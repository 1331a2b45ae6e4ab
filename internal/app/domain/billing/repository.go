package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// PGXPool is the slice of pgxpool.Pool the subscription repository needs.
// Satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubscriptionRepository persists user subscription rows. The partial unique
// index user_subscriptions_one_active_idx enforces at most one active row per
// user at the database level.
type SubscriptionRepository interface {
	// GetActiveSubscription returns the user's active subscription or a
	// models.ErrNotFound-wrapped error when none exists.
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
	CreateSubscription(ctx context.Context, sub *models.UserSubscription) error
	// UpdateStatusByStripeID moves the row identified by the Stripe
	// subscription ID into the given status.
	UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus) error
	// DeactivateSubscriptions marks every active or trialing row for the
	// user with the given terminal status. Used before creating a new
	// active row so the one-active index is never violated.
	DeactivateSubscriptions(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) error
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error)
}

type SubscriptionRepositoryImpl struct {
	db PGXPool
}

var _ SubscriptionRepository = (*SubscriptionRepositoryImpl)(nil)

func NewSubscriptionRepository(db PGXPool) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{db: db}
}

const subscriptionColumns = `
	id, user_id, tier, status, stripe_customer_id, stripe_subscription_id,
	created_at, updated_at
`

func scanSubscription(row pgx.Row) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Tier, &sub.Status,
		&sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active'
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no active subscription for user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query active subscription: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepositoryImpl) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE stripe_subscription_id = $1
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, stripeSubscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no subscription %s: %w", stripeSubscriptionID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query subscription by stripe id: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepositoryImpl) CreateSubscription(ctx context.Context, sub *models.UserSubscription) error {
	query := `
		INSERT INTO user_subscriptions (user_id, tier, status, stripe_customer_id, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		sub.UserID, sub.Tier, sub.Status,
		sub.StripeCustomerID, sub.StripeSubscriptionID,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) UpdateStatusByStripeID(ctx context.Context, stripeSubscriptionID string, status models.SubscriptionStatus) error {
	query := `
		UPDATE user_subscriptions
		SET status = $2, updated_at = now()
		WHERE stripe_subscription_id = $1
	`
	tag, err := r.db.Exec(ctx, query, stripeSubscriptionID, status)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no subscription %s: %w", stripeSubscriptionID, models.ErrNotFound)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) DeactivateSubscriptions(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus) error {
	query := `
		UPDATE user_subscriptions
		SET status = $2, updated_at = now()
		WHERE user_id = $1 AND status IN ('active', 'trialing')
	`
	if _, err := r.db.Exec(ctx, query, userID, status); err != nil {
		return fmt.Errorf("failed to deactivate subscriptions: %w", err)
	}
	return nil
}
