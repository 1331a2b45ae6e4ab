// Package quota enforces tier-gated monthly posting allowances with
// calendar-month rollover.
package quota

import "github.com/publimicro/marketplace-api/internal/app/models"

// Bucket is one of the three quota pools a listing category counts against.
type Bucket string

const (
	BucketItems      Bucket = "items"
	BucketProperties Bucket = "properties"
	BucketVehicles   Bucket = "vehicles"
)

// Unlimited is the sentinel for tiers without a cap.
const Unlimited = -1

// PostingLimit is the monthly allowance per bucket for one tier.
type PostingLimit struct {
	Items      int `json:"items"`
	Properties int `json:"properties"`
	Vehicles   int `json:"vehicles"`
}

// Fixed tier configuration.
var tierLimits = map[models.SubscriptionTier]PostingLimit{
	models.TierFree:    {Items: 2, Properties: 1, Vehicles: 1},
	models.TierPremium: {Items: 10, Properties: 3, Vehicles: 3},
	models.TierPro:     {Items: Unlimited, Properties: Unlimited, Vehicles: Unlimited},
}

// categoryBuckets groups the platform's listing categories into the three
// quota pools. Many-to-one on purpose: machinery and marine ride the
// vehicles pool, the long tail of general categories rides the items pool.
var categoryBuckets = map[models.ListingCategory]Bucket{
	models.CategoryProperties: BucketProperties,
	models.CategoryItems:      BucketItems,
	models.CategoryVehicles:   BucketVehicles,
	models.CategoryMachinery:  BucketVehicles,
	models.CategoryMarine:     BucketVehicles,
	models.CategoryOutdoor:    BucketItems,
	models.CategoryTravel:     BucketItems,
	models.CategoryGlobal:     BucketItems,
	models.CategoryShared:     BucketItems,
}

// LimitsFor returns the allowance table for a tier, defaulting to free for
// unknown tiers.
func LimitsFor(tier models.SubscriptionTier) PostingLimit {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[models.TierFree]
}

// BucketFor maps a listing category to its quota pool.
func BucketFor(category models.ListingCategory) (Bucket, bool) {
	bucket, ok := categoryBuckets[category]
	return bucket, ok
}

// ForBucket returns the limit of one pool.
func (p PostingLimit) ForBucket(bucket Bucket) int {
	switch bucket {
	case BucketProperties:
		return p.Properties
	case BucketVehicles:
		return p.Vehicles
	default:
		return p.Items
	}
}

// NextTier returns the upgrade target surfaced in denial messages.
func NextTier(tier models.SubscriptionTier) (models.SubscriptionTier, bool) {
	switch tier {
	case models.TierFree:
		return models.TierPremium, true
	case models.TierPremium:
		return models.TierPro, true
	default:
		return "", false
	}
}
