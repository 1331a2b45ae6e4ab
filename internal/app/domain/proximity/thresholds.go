package proximity

import "github.com/publimicro/marketplace-api/internal/app/models"

// QualityThresholds are the per-category inclusive distance boundaries, in
// kilometers, for the excellent/good/moderate rating steps. Anything past
// ModerateKM rates far.
type QualityThresholds struct {
	ExcellentKM float64
	GoodKM      float64
	ModerateKM  float64
}

// Static configuration, not logic. Day-to-day categories (schools,
// pharmacies, supermarkets) have tighter radii than destinations people
// drive to (universities, hospitals).
var qualityThresholds = map[models.POICategory]QualityThresholds{
	models.POICategoryHospital:    {ExcellentKM: 2, GoodKM: 5, ModerateKM: 10},
	models.POICategoryClinic:      {ExcellentKM: 1, GoodKM: 3, ModerateKM: 6},
	models.POICategorySchool:      {ExcellentKM: 0.5, GoodKM: 1, ModerateKM: 2},
	models.POICategoryUniversity:  {ExcellentKM: 2, GoodKM: 5, ModerateKM: 10},
	models.POICategorySupermarket: {ExcellentKM: 0.5, GoodKM: 1.5, ModerateKM: 3},
	models.POICategoryPharmacy:    {ExcellentKM: 0.5, GoodKM: 1, ModerateKM: 2},
	models.POICategoryGasStation:  {ExcellentKM: 1, GoodKM: 3, ModerateKM: 6},
	models.POICategoryBank:        {ExcellentKM: 1, GoodKM: 2, ModerateKM: 4},
}

// defaultThresholds covers categories missing from the table.
var defaultThresholds = QualityThresholds{ExcellentKM: 1, GoodKM: 3, ModerateKM: 6}

func thresholdsFor(category models.POICategory) QualityThresholds {
	if t, ok := qualityThresholds[category]; ok {
		return t
	}
	return defaultThresholds
}
