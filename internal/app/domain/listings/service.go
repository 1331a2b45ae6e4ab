package listings

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/publimicro/marketplace-api/internal/app/domain/proximity"
	"github.com/publimicro/marketplace-api/internal/app/domain/quota"
	"github.com/publimicro/marketplace-api/internal/app/models"
	"github.com/publimicro/marketplace-api/internal/app/observability/metrics"
)

// reenrichConcurrency bounds parallel catalog lookups during batch
// re-enrichment.
const reenrichConcurrency = 4

// CreateListingInput is the payload for a new listing.
type CreateListingInput struct {
	Category    models.ListingCategory `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	PriceCents  int64                  `json:"price_cents"`
	City        string                 `json:"city"`
	State       string                 `json:"state"`
	Coordinates *models.Coordinates    `json:"coordinates,omitempty"`
}

// ReenrichReport summarizes a batch re-enrichment run.
type ReenrichReport struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// CreateListing moderates, consumes quota, enriches property locations
	// and persists the listing. Quota denial surfaces as ErrQuotaExceeded
	// or ErrNoSubscription; the decision is returned alongside for the
	// handler to render.
	CreateListing(ctx context.Context, userID uuid.UUID, input CreateListingInput) (*models.Listing, *quota.PostingDecision, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	// ReenrichProperties recomputes the proximity snapshot of every active
	// property listing, for use after the POI catalog changes.
	ReenrichProperties(ctx context.Context) (*ReenrichReport, error)
}

type ServiceImpl struct {
	logger    *zap.Logger
	repo      Repository
	quota     quota.Service
	proximity proximity.Service
}

func NewService(repo Repository, quotaSvc quota.Service, proximitySvc proximity.Service, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		quota:     quotaSvc,
		proximity: proximitySvc,
	}
}

func (s *ServiceImpl) CreateListing(ctx context.Context, userID uuid.UUID, input CreateListingInput) (*models.Listing, *quota.PostingDecision, error) {
	ctx, span := otel.Tracer("listingsService").Start(ctx, "CreateListing", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("listing.category", string(input.Category)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateListing"),
		zap.String("userID", userID.String()), zap.String("category", string(input.Category)))

	if err := validateInput(input); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if err := CheckContent(input.Title, input.Description); err != nil {
		l.Info("listing rejected by moderation", zap.Error(err))
		span.SetStatus(codes.Error, "moderation rejection")
		return nil, nil, err
	}

	decision, err := s.quota.TryConsumeQuota(ctx, userID, input.Category)
	if err != nil {
		l.Error("quota consumption failed", zap.Error(err))
		span.RecordError(err)
		return nil, &decision, err
	}
	if !decision.Allowed {
		span.SetStatus(codes.Error, "quota denied")
		switch decision.Reason {
		case quota.ReasonNoActiveSubscription:
			return nil, &decision, models.ErrNoSubscription
		default:
			return nil, &decision, models.ErrQuotaExceeded
		}
	}

	listing := &models.Listing{
		UserID:      userID,
		Category:    input.Category,
		Title:       input.Title,
		Slug:        Slugify(input.Title),
		Description: input.Description,
		PriceCents:  input.PriceCents,
		City:        input.City,
		State:       input.State,
		Coordinates: input.Coordinates,
		Status:      models.ListingActive,
	}

	// Proximity is best effort: a catalog outage must not block posting.
	if input.Category == models.CategoryProperties && input.Coordinates != nil {
		results, err := s.proximity.EnrichLocation(ctx, *input.Coordinates)
		if err != nil {
			l.Warn("proximity enrichment skipped", zap.Error(err))
		} else {
			listing.Proximity = results
		}
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		l.Error("failed to persist listing", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, &decision, err
	}

	metrics.Get().ListingsCreatedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", string(input.Category))))
	l.Info("listing created", zap.String("listingID", listing.ID.String()))
	return listing, &decision, nil
}

func (s *ServiceImpl) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	ctx, span := otel.Tracer("listingsService").Start(ctx, "GetListing", trace.WithAttributes(
		attribute.String("listing.id", id.String()),
	))
	defer span.End()

	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return listing, nil
}

func (s *ServiceImpl) SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	ctx, span := otel.Tracer("listingsService").Start(ctx, "SearchListings")
	defer span.End()

	if filter.Category != "" && !models.ValidListingCategory(filter.Category) {
		err := fmt.Errorf("unknown category %q: %w", filter.Category, models.ErrValidation)
		span.RecordError(err)
		return nil, err
	}

	results, err := s.repo.SearchListings(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("results.count", len(results)))
	return results, nil
}

// ReenrichProperties walks all active property listings and rewrites their
// proximity snapshots. Failures on individual listings are counted, not
// fatal; only loading the listing set aborts the run.
func (s *ServiceImpl) ReenrichProperties(ctx context.Context) (*ReenrichReport, error) {
	ctx, span := otel.Tracer("listingsService").Start(ctx, "ReenrichProperties")
	defer span.End()

	l := s.logger.With(zap.String("method", "ReenrichProperties"))

	properties, err := s.repo.ActivePropertiesWithCoordinates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load property listings")
		return nil, err
	}

	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reenrichConcurrency)

	for _, listing := range properties {
		g.Go(func() error {
			results, err := s.proximity.EnrichLocation(gctx, *listing.Coordinates)
			if err != nil {
				l.Warn("re-enrichment failed",
					zap.String("listingID", listing.ID.String()), zap.Error(err))
				failed.Add(1)
				return nil
			}
			if err := s.repo.UpdateProximity(gctx, listing.ID, results); err != nil {
				l.Warn("failed to store proximity snapshot",
					zap.String("listingID", listing.ID.String()), zap.Error(err))
				failed.Add(1)
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &ReenrichReport{
		Processed: len(properties),
		Updated:   int(updated.Load()),
		Failed:    int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("reenrich.processed", report.Processed),
		attribute.Int("reenrich.updated", report.Updated),
		attribute.Int("reenrich.failed", report.Failed),
	)
	l.Info("re-enrichment finished",
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed))
	return report, nil
}

func validateInput(input CreateListingInput) error {
	if !models.ValidListingCategory(input.Category) {
		return fmt.Errorf("unknown category %q: %w", input.Category, models.ErrValidation)
	}
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("title is required: %w", models.ErrValidation)
	}
	if input.PriceCents < 0 {
		return fmt.Errorf("price must not be negative: %w", models.ErrValidation)
	}
	if input.Coordinates != nil {
		if err := proximity.ValidateCoordinates(*input.Coordinates); err != nil {
			return err
		}
	}
	return nil
}
