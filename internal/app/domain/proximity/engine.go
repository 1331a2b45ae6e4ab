// Package proximity computes nearest-point-of-interest enrichment for
// property locations using great-circle distances.
package proximity

import (
	"fmt"
	"math"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// earthRadiusKM is the mean Earth radius used by the Haversine formula.
const earthRadiusKM = 6371.0

// ValidateCoordinates rejects NaN and out-of-range values. Malformed input is
// a caller contract violation; every other input degrades gracefully.
func ValidateCoordinates(c models.Coordinates) error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return fmt.Errorf("%w: coordinates must not be NaN", models.ErrValidation)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", models.ErrValidation, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", models.ErrValidation, c.Longitude)
	}
	return nil
}

// Distance returns the Haversine great-circle distance between a and b in
// kilometers, rounded half away from zero to two decimals. Symmetric by
// construction; Distance(a, a) == 0.
func Distance(a, b models.Coordinates) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*(math.Pi/180))*math.Cos(b.Latitude*(math.Pi/180))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return round2(earthRadiusKM * c)
}

// round2 rounds half away from zero at the second decimal.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FindNearestByCategory scans the catalog once and keeps, per category, the
// POI with the minimum rounded distance from origin. Ties keep the first POI
// encountered in catalog order, so the result never depends on map iteration.
// Categories without any POI map to nil name and distance.
func FindNearestByCategory(origin models.Coordinates, pois []models.PointOfInterest) map[models.POICategory]models.ProximityResult {
	type nearest struct {
		name     string
		distance float64
		found    bool
	}

	best := make(map[models.POICategory]nearest, len(models.AllPOICategories))
	for _, poi := range pois {
		d := Distance(origin, poi.Coordinates)
		cur, ok := best[poi.Category]
		if !ok || !cur.found || d < cur.distance {
			best[poi.Category] = nearest{name: poi.Name, distance: d, found: true}
		}
	}

	results := make(map[models.POICategory]models.ProximityResult, len(models.AllPOICategories))
	for _, category := range models.AllPOICategories {
		result := models.ProximityResult{Category: category}
		if b, ok := best[category]; ok && b.found {
			name := b.name
			distance := b.distance
			result.NearestName = &name
			result.DistanceKM = &distance
		}
		results[category] = result
	}
	return results
}

// ClassifyQuality maps a distance to the four-level rating using the
// category's thresholds. Boundaries are inclusive.
func ClassifyQuality(distanceKM float64, category models.POICategory) models.DistanceQuality {
	t := thresholdsFor(category)
	switch {
	case distanceKM <= t.ExcellentKM:
		return models.QualityExcellent
	case distanceKM <= t.GoodKM:
		return models.QualityGood
	case distanceKM <= t.ModerateKM:
		return models.QualityModerate
	default:
		return models.QualityFar
	}
}

// FormatDistance renders a distance for display. Below one kilometer it
// switches to integer meters; exactly 1.0 km renders as "1.0 km".
func FormatDistance(distanceKM float64) string {
	if distanceKM < 1 {
		return fmt.Sprintf("%d m", int(math.Round(distanceKM*1000)))
	}
	return fmt.Sprintf("%.1f km", distanceKM)
}
