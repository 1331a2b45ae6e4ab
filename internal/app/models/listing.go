package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingCategory is one of the platform's listing verticals. Several
// categories share a single quota bucket (see the quota package).
type ListingCategory string

const (
	CategoryProperties ListingCategory = "properties"
	CategoryItems      ListingCategory = "items"
	CategoryVehicles   ListingCategory = "vehicles"
	CategoryMachinery  ListingCategory = "machinery"
	CategoryMarine     ListingCategory = "marine"
	CategoryOutdoor    ListingCategory = "outdoor"
	CategoryTravel     ListingCategory = "travel"
	CategoryGlobal     ListingCategory = "global"
	CategoryShared     ListingCategory = "shared"
)

// AllListingCategories lists the valid categories for input validation.
var AllListingCategories = []ListingCategory{
	CategoryProperties,
	CategoryItems,
	CategoryVehicles,
	CategoryMachinery,
	CategoryMarine,
	CategoryOutdoor,
	CategoryTravel,
	CategoryGlobal,
	CategoryShared,
}

// ValidListingCategory reports whether c is one of the known categories.
func ValidListingCategory(c ListingCategory) bool {
	for _, known := range AllListingCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ListingStatus is the publication state of a listing.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingPaused   ListingStatus = "paused"
	ListingSold     ListingStatus = "sold"
	ListingRejected ListingStatus = "rejected"
)

// Listing is a classified ad. PriceCents is in BRL centavos. Coordinates are
// present only for categories that carry a location (properties mainly);
// Proximity holds the persisted enrichment snapshot for property listings.
type Listing struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Category    ListingCategory   `json:"category"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	PriceCents  int64             `json:"price_cents"`
	City        string            `json:"city"`
	State       string            `json:"state"`
	Coordinates *Coordinates      `json:"coordinates,omitempty"`
	Proximity   []ProximityResult `json:"proximity,omitempty"`
	Status      ListingStatus     `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListingFilter narrows a listing search. Zero values mean "no constraint".
type ListingFilter struct {
	Category      ListingCategory
	City          string
	State         string
	Status        ListingStatus
	MinPriceCents int64
	MaxPriceCents int64
	Limit         int
	Offset        int
}
