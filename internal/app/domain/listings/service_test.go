package listings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/domain/quota"
	"github.com/publimicro/marketplace-api/internal/app/models"
	"github.com/publimicro/marketplace-api/internal/app/observability/metrics"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateListing(ctx context.Context, listing *models.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockRepository) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*models.Listing)
	return listing, args.Error(1)
}

func (m *MockRepository) SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	args := m.Called(ctx, filter)
	results, _ := args.Get(0).([]models.Listing)
	return results, args.Error(1)
}

func (m *MockRepository) UpdateProximity(ctx context.Context, id uuid.UUID, proximity []models.ProximityResult) error {
	args := m.Called(ctx, id, proximity)
	return args.Error(0)
}

func (m *MockRepository) ActivePropertiesWithCoordinates(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	results, _ := args.Get(0).([]models.Listing)
	return results, args.Error(1)
}

type MockQuotaService struct {
	mock.Mock
}

func (m *MockQuotaService) CanUserPost(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (quota.PostingDecision, error) {
	args := m.Called(ctx, userID, category)
	return args.Get(0).(quota.PostingDecision), args.Error(1)
}

func (m *MockQuotaService) IncrementPostingCount(ctx context.Context, userID uuid.UUID, category models.ListingCategory) error {
	args := m.Called(ctx, userID, category)
	return args.Error(0)
}

func (m *MockQuotaService) TryConsumeQuota(ctx context.Context, userID uuid.UUID, category models.ListingCategory) (quota.PostingDecision, error) {
	args := m.Called(ctx, userID, category)
	return args.Get(0).(quota.PostingDecision), args.Error(1)
}

type MockProximityService struct {
	mock.Mock
}

func (m *MockProximityService) EnrichLocation(ctx context.Context, origin models.Coordinates) ([]models.ProximityResult, error) {
	args := m.Called(ctx, origin)
	results, _ := args.Get(0).([]models.ProximityResult)
	return results, args.Error(1)
}

func newTestService(repo Repository, quotaSvc quota.Service, proximitySvc *MockProximityService) *ServiceImpl {
	metrics.InitAppMetrics()
	return NewService(repo, quotaSvc, proximitySvc, zap.NewNop())
}

func allowedDecision() quota.PostingDecision {
	return quota.PostingDecision{Allowed: true, Tier: models.TierPremium, Limit: 3, Remaining: 2}
}

func TestCreateListingPersistsWithProximity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	coords := models.Coordinates{Latitude: -15.7801, Longitude: -47.9292}
	name := "Hospital de Base"
	dist := 2.47
	enriched := []models.ProximityResult{
		{Category: models.POICategoryHospital, NearestName: &name, DistanceKM: &dist},
	}

	quotaSvc.On("TryConsumeQuota", mock.Anything, userID, models.CategoryProperties).Return(allowedDecision(), nil)
	proximitySvc.On("EnrichLocation", mock.Anything, coords).Return(enriched, nil)
	repo.On("CreateListing", mock.Anything, mock.MatchedBy(func(listing *models.Listing) bool {
		return listing.UserID == userID &&
			listing.Slug == "casa-no-lago-norte" &&
			listing.Status == models.ListingActive &&
			len(listing.Proximity) == 1
	})).Return(nil)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	listing, decision, err := svc.CreateListing(ctx, userID, CreateListingInput{
		Category:    models.CategoryProperties,
		Title:       "Casa no Lago Norte",
		Description: "3 quartos com piscina",
		PriceCents:  95000000,
		City:        "Brasília",
		State:       "DF",
		Coordinates: &coords,
	})

	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.True(t, decision.Allowed)
	assert.Equal(t, enriched, listing.Proximity)
	repo.AssertExpectations(t)
}

func TestCreateListingModerationBlocksBeforeQuota(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	_, _, err := svc.CreateListing(ctx, uuid.New(), CreateListingInput{
		Category: models.CategoryItems,
		Title:    "Vendo pistola semi nova",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrModeration)
	// Rejected content must not consume quota.
	quotaSvc.AssertNotCalled(t, "TryConsumeQuota", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything)
}

func TestCreateListingQuotaDenied(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	quotaSvc.On("TryConsumeQuota", mock.Anything, userID, models.CategoryItems).Return(quota.PostingDecision{
		Allowed:      false,
		Reason:       quota.ReasonLimitReached,
		Tier:         models.TierFree,
		Limit:        2,
		Remaining:    0,
		NeedsUpgrade: true,
	}, nil)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	_, decision, err := svc.CreateListing(ctx, userID, CreateListingInput{
		Category: models.CategoryItems,
		Title:    "Bicicleta aro 29",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	require.NotNil(t, decision)
	assert.True(t, decision.NeedsUpgrade)
	repo.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything)
}

func TestCreateListingWithoutSubscription(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	quotaSvc.On("TryConsumeQuota", mock.Anything, userID, models.CategoryItems).Return(quota.PostingDecision{
		Allowed: false,
		Reason:  quota.ReasonNoActiveSubscription,
	}, nil)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	_, _, err := svc.CreateListing(ctx, userID, CreateListingInput{
		Category: models.CategoryItems,
		Title:    "Bicicleta aro 29",
	})

	assert.ErrorIs(t, err, models.ErrNoSubscription)
}

func TestCreateListingEnrichmentFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	coords := models.Coordinates{Latitude: -15.7801, Longitude: -47.9292}
	quotaSvc.On("TryConsumeQuota", mock.Anything, userID, models.CategoryProperties).Return(allowedDecision(), nil)
	proximitySvc.On("EnrichLocation", mock.Anything, coords).Return(nil, errors.New("catalog unavailable"))
	repo.On("CreateListing", mock.Anything, mock.MatchedBy(func(listing *models.Listing) bool {
		return listing.Proximity == nil
	})).Return(nil)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	listing, _, err := svc.CreateListing(ctx, userID, CreateListingInput{
		Category:    models.CategoryProperties,
		Title:       "Casa no Guará",
		Coordinates: &coords,
	})

	require.NoError(t, err)
	assert.Nil(t, listing.Proximity)
	repo.AssertExpectations(t)
}

func TestCreateListingSkipsEnrichmentForNonProperties(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	quotaSvc := new(MockQuotaService)
	proximitySvc := new(MockProximityService)

	coords := models.Coordinates{Latitude: -15.7801, Longitude: -47.9292}
	quotaSvc.On("TryConsumeQuota", mock.Anything, userID, models.CategoryVehicles).Return(allowedDecision(), nil)
	repo.On("CreateListing", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, quotaSvc, proximitySvc)
	_, _, err := svc.CreateListing(ctx, userID, CreateListingInput{
		Category:    models.CategoryVehicles,
		Title:       "Fiat Strada 2022",
		Coordinates: &coords,
	})

	require.NoError(t, err)
	proximitySvc.AssertNotCalled(t, "EnrichLocation", mock.Anything, mock.Anything)
}

func TestCreateListingValidation(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQuotaService), new(MockProximityService))
	ctx := context.Background()

	t.Run("unknown category", func(t *testing.T) {
		_, _, err := svc.CreateListing(ctx, uuid.New(), CreateListingInput{
			Category: "boats",
			Title:    "Lancha 18 pés",
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("empty title", func(t *testing.T) {
		_, _, err := svc.CreateListing(ctx, uuid.New(), CreateListingInput{
			Category: models.CategoryItems,
			Title:    "   ",
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("negative price", func(t *testing.T) {
		_, _, err := svc.CreateListing(ctx, uuid.New(), CreateListingInput{
			Category:   models.CategoryItems,
			Title:      "Sofá",
			PriceCents: -1,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("out of range coordinates", func(t *testing.T) {
		_, _, err := svc.CreateListing(ctx, uuid.New(), CreateListingInput{
			Category:    models.CategoryProperties,
			Title:       "Casa",
			Coordinates: &models.Coordinates{Latitude: 95, Longitude: 0},
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestSearchListingsRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockQuotaService), new(MockProximityService))

	_, err := svc.SearchListings(context.Background(), models.ListingFilter{Category: "boats"})

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReenrichProperties(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	proximitySvc := new(MockProximityService)

	first := models.Listing{
		ID:          uuid.New(),
		Category:    models.CategoryProperties,
		Coordinates: &models.Coordinates{Latitude: -15.78, Longitude: -47.92},
	}
	second := models.Listing{
		ID:          uuid.New(),
		Category:    models.CategoryProperties,
		Coordinates: &models.Coordinates{Latitude: -15.61, Longitude: -47.65},
	}

	repo.On("ActivePropertiesWithCoordinates", mock.Anything).Return([]models.Listing{first, second}, nil)
	proximitySvc.On("EnrichLocation", mock.Anything, *first.Coordinates).Return([]models.ProximityResult{}, nil)
	proximitySvc.On("EnrichLocation", mock.Anything, *second.Coordinates).
		Return(nil, errors.New("catalog unavailable"))
	repo.On("UpdateProximity", mock.Anything, first.ID, mock.Anything).Return(nil)

	svc := newTestService(repo, new(MockQuotaService), proximitySvc)
	report, err := svc.ReenrichProperties(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	repo.AssertNotCalled(t, "UpdateProximity", mock.Anything, second.ID, mock.Anything)
}
