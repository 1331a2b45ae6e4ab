package proximity

import (
	"context"
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/models"
	"github.com/publimicro/marketplace-api/internal/app/observability/metrics"
)

// searchRadiusKM bounds the catalog window around the origin. POIs past the
// window would rate far for every category anyway.
const searchRadiusKM = 30.0

const catalogCacheTTL = 30 * time.Minute

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the enrichment contract consumed by the listings domain and the
// proximity HTTP handler.
type Service interface {
	EnrichLocation(ctx context.Context, origin models.Coordinates) ([]models.ProximityResult, error)
}

// ServiceImpl computes proximity enrichment over a cached POI catalog.
type ServiceImpl struct {
	logger  *zap.Logger
	catalog CatalogRepository
	cache   *gocache.Cache
}

// NewService creates a new proximity enrichment service.
func NewService(catalog CatalogRepository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		catalog: catalog,
		cache:   gocache.New(catalogCacheTTL, 10*time.Minute),
	}
}

// EnrichLocation maps origin to the nearest POI of every category plus a
// quality rating and display string per category. Categories with no POI in
// range are returned with nil name and distance.
func (s *ServiceImpl) EnrichLocation(ctx context.Context, origin models.Coordinates) ([]models.ProximityResult, error) {
	ctx, span := otel.Tracer("proximityService").Start(ctx, "EnrichLocation", trace.WithAttributes(
		attribute.Float64("origin.latitude", origin.Latitude),
		attribute.Float64("origin.longitude", origin.Longitude),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "EnrichLocation"),
		zap.Float64("latitude", origin.Latitude), zap.Float64("longitude", origin.Longitude))

	if err := ValidateCoordinates(origin); err != nil {
		l.Warn("Rejected invalid coordinates", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid coordinates")
		return nil, err
	}

	pois, err := s.queryCatalog(ctx, boundingBoxAround(origin, searchRadiusKM))
	if err != nil {
		l.Error("Failed to query POI catalog", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Catalog query failed")
		return nil, fmt.Errorf("error querying POI catalog: %w", err)
	}

	nearest := FindNearestByCategory(origin, pois)

	results := make([]models.ProximityResult, 0, len(models.AllPOICategories))
	for _, category := range models.AllPOICategories {
		result := nearest[category]
		if result.DistanceKM != nil {
			quality := ClassifyQuality(*result.DistanceKM, category)
			result.Quality = &quality
			result.Display = FormatDistance(*result.DistanceKM)
		}
		results = append(results, result)
	}

	metrics.Get().ProximityComputedTotal.Add(ctx, 1)
	l.Debug("Location enriched", zap.Int("catalog_size", len(pois)))
	span.SetStatus(codes.Ok, "Location enriched")
	return results, nil
}

// queryCatalog serves catalog windows from an in-process cache keyed by the
// rounded bounding box.
func (s *ServiceImpl) queryCatalog(ctx context.Context, box models.BoundingBox) ([]models.PointOfInterest, error) {
	key := fmt.Sprintf("bbox:%.2f:%.2f:%.2f:%.2f", box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if cached, ok := s.cache.Get(key); ok {
		metrics.Get().ProximityCacheHitsTotal.Add(ctx, 1)
		return cached.([]models.PointOfInterest), nil
	}

	pois, err := s.catalog.QueryByBoundingBox(ctx, box)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, pois, gocache.DefaultExpiration)
	return pois, nil
}

// boundingBoxAround converts a radius in kilometers into a degree window
// around the origin. Longitude degrees shrink with latitude.
func boundingBoxAround(origin models.Coordinates, radiusKM float64) models.BoundingBox {
	latDelta := radiusKM / 111.0
	lonDelta := latDelta
	if cosLat := math.Cos(origin.Latitude * math.Pi / 180); cosLat > 0.01 {
		lonDelta = latDelta / cosLat
	}
	return models.BoundingBox{
		MinLat: origin.Latitude - latDelta,
		MaxLat: origin.Latitude + latDelta,
		MinLon: origin.Longitude - lonDelta,
		MaxLon: origin.Longitude + lonDelta,
	}
}
