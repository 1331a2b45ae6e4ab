package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

func TestBucketForGrouping(t *testing.T) {
	tests := []struct {
		category models.ListingCategory
		want     Bucket
	}{
		{models.CategoryProperties, BucketProperties},
		{models.CategoryItems, BucketItems},
		{models.CategoryVehicles, BucketVehicles},
		{models.CategoryMachinery, BucketVehicles},
		{models.CategoryMarine, BucketVehicles},
		{models.CategoryOutdoor, BucketItems},
		{models.CategoryTravel, BucketItems},
		{models.CategoryGlobal, BucketItems},
		{models.CategoryShared, BucketItems},
	}

	for _, tt := range tests {
		bucket, ok := BucketFor(tt.category)
		require.True(t, ok, "category %s should map to a bucket", tt.category)
		assert.Equal(t, tt.want, bucket)
	}

	_, ok := BucketFor(models.ListingCategory("boats"))
	assert.False(t, ok)
}

func TestLimitsForTiers(t *testing.T) {
	free := LimitsFor(models.TierFree)
	assert.Equal(t, PostingLimit{Items: 2, Properties: 1, Vehicles: 1}, free)

	premium := LimitsFor(models.TierPremium)
	assert.Equal(t, PostingLimit{Items: 10, Properties: 3, Vehicles: 3}, premium)

	pro := LimitsFor(models.TierPro)
	assert.Equal(t, Unlimited, pro.Items)
	assert.Equal(t, Unlimited, pro.Properties)
	assert.Equal(t, Unlimited, pro.Vehicles)

	// Unknown tiers fall back to free.
	assert.Equal(t, free, LimitsFor(models.SubscriptionTier("enterprise")))
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(models.TierFree)
	require.True(t, ok)
	assert.Equal(t, models.TierPremium, next)

	next, ok = NextTier(models.TierPremium)
	require.True(t, ok)
	assert.Equal(t, models.TierPro, next)

	_, ok = NextTier(models.TierPro)
	assert.False(t, ok)
}
