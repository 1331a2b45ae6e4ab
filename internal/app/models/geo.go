package models

// Coordinates is an immutable latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// POICategory identifies the kind of point of interest used for proximity
// enrichment of property listings.
type POICategory string

const (
	POICategoryHospital    POICategory = "hospital"
	POICategoryClinic      POICategory = "clinic"
	POICategorySchool      POICategory = "school"
	POICategoryUniversity  POICategory = "university"
	POICategorySupermarket POICategory = "supermarket"
	POICategoryPharmacy    POICategory = "pharmacy"
	POICategoryGasStation  POICategory = "gas_station"
	POICategoryBank        POICategory = "bank"
)

// AllPOICategories lists every category in a fixed order. Enrichment output
// always covers all of them, so iteration must never depend on map order.
var AllPOICategories = []POICategory{
	POICategoryHospital,
	POICategoryClinic,
	POICategorySchool,
	POICategoryUniversity,
	POICategorySupermarket,
	POICategoryPharmacy,
	POICategoryGasStation,
	POICategoryBank,
}

// PointOfInterest is static reference data, read-only during a computation.
type PointOfInterest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    POICategory `json:"category"`
	Coordinates Coordinates `json:"coordinates"`
}

// DistanceQuality is the four-level ordinal rating of how close the nearest
// POI of a category is.
type DistanceQuality string

const (
	QualityExcellent DistanceQuality = "excellent"
	QualityGood      DistanceQuality = "good"
	QualityModerate  DistanceQuality = "moderate"
	QualityFar       DistanceQuality = "far"
)

// ProximityResult holds the nearest POI of one category. NearestName and
// DistanceKM are nil when the catalog has no POI of that category.
type ProximityResult struct {
	Category    POICategory      `json:"category"`
	NearestName *string          `json:"nearest_name"`
	DistanceKM  *float64         `json:"distance_km"`
	Quality     *DistanceQuality `json:"quality,omitempty"`
	Display     string           `json:"display,omitempty"`
}

// BoundingBox is the query window handed to a POI catalog.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}
