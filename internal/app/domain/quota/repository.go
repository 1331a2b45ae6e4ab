package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// PGXPool is the slice of pgxpool.Pool the credits repository needs.
// Satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubscriptionStore is the subscription lookup the quota engine consumes.
// The billing domain owns the records; implemented there and by test mocks.
type SubscriptionStore interface {
	// GetActiveSubscription returns the user's active subscription or a
	// models.ErrNotFound-wrapped error when none exists.
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
}

// CreditsRepository persists per-user monthly usage counters.
type CreditsRepository interface {
	GetOrCreateCredits(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error)
	// ResetMonthlyCounters zeroes all monthly counters and stamps the reset
	// date, but only when the stored reset month differs from resetDate's
	// month. Idempotent within a calendar month.
	ResetMonthlyCounters(ctx context.Context, userID uuid.UUID, resetDate time.Time) error
	// IncrementUsage bumps one bucket counter and the lifetime total by one
	// in a single statement.
	IncrementUsage(ctx context.Context, userID uuid.UUID, bucket Bucket) error
	// TryIncrementUnderLimit is the race-free variant: it increments only
	// while the counter is still under limit and reports whether it did.
	TryIncrementUnderLimit(ctx context.Context, userID uuid.UUID, bucket Bucket, limit int) (bool, error)
}

type CreditsRepositoryImpl struct {
	db PGXPool
}

func NewCreditsRepository(db PGXPool) CreditsRepository {
	return &CreditsRepositoryImpl{db: db}
}

// bucketColumn maps a bucket to its counter column. Only these fixed strings
// are ever interpolated into SQL.
func bucketColumn(bucket Bucket) string {
	switch bucket {
	case BucketProperties:
		return "properties_posted_this_month"
	case BucketVehicles:
		return "vehicles_posted_this_month"
	default:
		return "items_posted_this_month"
	}
}

// GetOrCreateCredits lazily creates an all-zero credits row on first use.
func (r *CreditsRepositoryImpl) GetOrCreateCredits(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error) {
	insert := `
		INSERT INTO user_credits (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, userID); err != nil {
		return nil, err
	}

	query := `
		SELECT user_id, items_posted_this_month, properties_posted_this_month,
		       vehicles_posted_this_month, machinery_posted_this_month,
		       last_monthly_reset, total_posts_lifetime
		FROM user_credits
		WHERE user_id = $1
	`

	var c models.UserCredits
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.UserID,
		&c.ItemsPostedThisMonth,
		&c.PropertiesPostedThisMonth,
		&c.VehiclesPostedThisMonth,
		&c.MachineryPostedThisMonth,
		&c.LastMonthlyReset,
		&c.TotalPostsLifetime,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ResetMonthlyCounters performs the month rollover. The WHERE clause makes
// the reset idempotent even under concurrent callers: a second reset in the
// same month matches no rows.
func (r *CreditsRepositoryImpl) ResetMonthlyCounters(ctx context.Context, userID uuid.UUID, resetDate time.Time) error {
	query := `
		UPDATE user_credits
		SET items_posted_this_month = 0,
		    properties_posted_this_month = 0,
		    vehicles_posted_this_month = 0,
		    machinery_posted_this_month = 0,
		    last_monthly_reset = $2
		WHERE user_id = $1
		  AND date_trunc('month', last_monthly_reset) <> date_trunc('month', $2::date)
	`

	_, err := r.db.Exec(ctx, query, userID, resetDate)
	return err
}

// IncrementUsage advances one bucket counter plus the lifetime total
// atomically. A single UPDATE, so two racing posts can never lose a count.
func (r *CreditsRepositoryImpl) IncrementUsage(ctx context.Context, userID uuid.UUID, bucket Bucket) error {
	column := bucketColumn(bucket)
	query := `
		UPDATE user_credits
		SET ` + column + ` = ` + column + ` + 1,
		    total_posts_lifetime = total_posts_lifetime + 1
		WHERE user_id = $1
	`

	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// TryIncrementUnderLimit folds the check and the increment into one guarded
// UPDATE keyed by user_id. Zero rows affected means the limit was reached.
func (r *CreditsRepositoryImpl) TryIncrementUnderLimit(ctx context.Context, userID uuid.UUID, bucket Bucket, limit int) (bool, error) {
	if limit == Unlimited {
		return true, r.IncrementUsage(ctx, userID, bucket)
	}

	column := bucketColumn(bucket)
	query := `
		UPDATE user_credits
		SET ` + column + ` = ` + column + ` + 1,
		    total_posts_lifetime = total_posts_lifetime + 1
		WHERE user_id = $1
		  AND ` + column + ` < $2
	`

	tag, err := r.db.Exec(ctx, query, userID, limit)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
