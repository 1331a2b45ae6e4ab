package proximity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

var (
	brasiliaCenter = models.Coordinates{Latitude: -15.7801, Longitude: -47.9292}
	planaltina     = models.Coordinates{Latitude: -15.6178, Longitude: -47.6520}
)

func TestDistanceSymmetry(t *testing.T) {
	pairs := []struct {
		a, b models.Coordinates
	}{
		{brasiliaCenter, planaltina},
		{models.Coordinates{Latitude: 0, Longitude: 0}, models.Coordinates{Latitude: 10, Longitude: 10}},
		{models.Coordinates{Latitude: -89.9, Longitude: 179.9}, models.Coordinates{Latitude: 89.9, Longitude: -179.9}},
		{models.Coordinates{Latitude: 51.5074, Longitude: -0.1278}, models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}},
	}

	for _, p := range pairs {
		assert.Equal(t, Distance(p.a, p.b), Distance(p.b, p.a))
	}
}

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	points := []models.Coordinates{
		brasiliaCenter,
		{Latitude: 0, Longitude: 0},
		{Latitude: 90, Longitude: 180},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p, p))
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// Regression fixture: two reference points in the Brasília region.
	assert.Equal(t, 34.73, Distance(brasiliaCenter, planaltina))
}

func TestDistanceRoundedToTwoDecimals(t *testing.T) {
	d := Distance(brasiliaCenter, models.Coordinates{Latitude: -15.8004, Longitude: -47.8916})
	assert.Equal(t, d, math.Round(d*100)/100)
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		coords  models.Coordinates
		wantErr bool
	}{
		{"valid", brasiliaCenter, false},
		{"lat too low", models.Coordinates{Latitude: -90.1, Longitude: 0}, true},
		{"lat too high", models.Coordinates{Latitude: 90.1, Longitude: 0}, true},
		{"lon too low", models.Coordinates{Latitude: 0, Longitude: -180.1}, true},
		{"lon too high", models.Coordinates{Latitude: 0, Longitude: 180.1}, true},
		{"NaN latitude", models.Coordinates{Latitude: math.NaN(), Longitude: 0}, true},
		{"NaN longitude", models.Coordinates{Latitude: 0, Longitude: math.NaN()}, true},
		{"boundary values", models.Coordinates{Latitude: -90, Longitude: 180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.coords)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindNearestByCategory(t *testing.T) {
	catalog := []models.PointOfInterest{
		{Name: "Hospital Distante", Category: models.POICategoryHospital, Coordinates: models.Coordinates{Latitude: -15.9000, Longitude: -47.9292}},
		{Name: "Hospital Próximo", Category: models.POICategoryHospital, Coordinates: models.Coordinates{Latitude: -15.7850, Longitude: -47.9292}},
		{Name: "Escola Central", Category: models.POICategorySchool, Coordinates: models.Coordinates{Latitude: -15.7810, Longitude: -47.9300}},
	}

	results := FindNearestByCategory(brasiliaCenter, catalog)

	require.Len(t, results, len(models.AllPOICategories))

	hospital := results[models.POICategoryHospital]
	require.NotNil(t, hospital.NearestName)
	assert.Equal(t, "Hospital Próximo", *hospital.NearestName)

	school := results[models.POICategorySchool]
	require.NotNil(t, school.NearestName)
	assert.Equal(t, "Escola Central", *school.NearestName)

	// No pharmacy in the catalog.
	pharmacy := results[models.POICategoryPharmacy]
	assert.Nil(t, pharmacy.NearestName)
	assert.Nil(t, pharmacy.DistanceKM)
}

func TestFindNearestByCategoryEmptyCatalog(t *testing.T) {
	results := FindNearestByCategory(brasiliaCenter, nil)

	require.Len(t, results, len(models.AllPOICategories))
	for _, category := range models.AllPOICategories {
		result := results[category]
		assert.Nil(t, result.NearestName)
		assert.Nil(t, result.DistanceKM)
	}
}

func TestFindNearestByCategoryTieBreaksOnCatalogOrder(t *testing.T) {
	// Same coordinates, so identical rounded distances; first in catalog
	// order must win.
	shared := models.Coordinates{Latitude: -15.7900, Longitude: -47.9292}
	catalog := []models.PointOfInterest{
		{Name: "Banco Primeiro", Category: models.POICategoryBank, Coordinates: shared},
		{Name: "Banco Segundo", Category: models.POICategoryBank, Coordinates: shared},
	}

	for i := 0; i < 10; i++ {
		results := FindNearestByCategory(brasiliaCenter, catalog)
		bank := results[models.POICategoryBank]
		require.NotNil(t, bank.NearestName)
		assert.Equal(t, "Banco Primeiro", *bank.NearestName)
	}
}

func TestClassifyQualityInclusiveBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		category models.POICategory
		want     models.DistanceQuality
	}{
		{"school at excellent boundary", 0.5, models.POICategorySchool, models.QualityExcellent},
		{"school just past excellent", 0.51, models.POICategorySchool, models.QualityGood},
		{"school at good boundary", 1.0, models.POICategorySchool, models.QualityGood},
		{"school at moderate boundary", 2.0, models.POICategorySchool, models.QualityModerate},
		{"school past moderate", 2.01, models.POICategorySchool, models.QualityFar},
		{"hospital at excellent boundary", 2.0, models.POICategoryHospital, models.QualityExcellent},
		{"university has wider excellent radius than school", 1.5, models.POICategoryUniversity, models.QualityExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQuality(tt.distance, tt.category))
		})
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		distance float64
		want     string
	}{
		{0.999, "999 m"},
		{1.0, "1.0 km"},
		{1.05, "1.1 km"},
		{0.05, "50 m"},
		{0.0, "0 m"},
		{12.34, "12.3 km"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.distance))
	}
}
