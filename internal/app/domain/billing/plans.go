// Package billing owns the subscription lifecycle behind the posting quota:
// Stripe products, customer subscriptions, and the webhook reconciliation
// that keeps user_subscriptions in sync.
package billing

import "github.com/publimicro/marketplace-api/internal/app/models"

// PlanDefinition describes one paid tier as configured in Stripe.
// Amounts are BRL centavos.
type PlanDefinition struct {
	Tier        models.SubscriptionTier
	Name        string
	Description string
	AmountCents int64
	Currency    string
	Interval    string
}

// PaidPlans is the fixed catalog of purchasable tiers. The free tier has no
// Stripe product; it is created directly on signup.
var PaidPlans = []PlanDefinition{
	{
		Tier:        models.TierPremium,
		Name:        "Publimicro Premium",
		Description: "10 anúncios gerais, 3 imóveis e 3 veículos por mês",
		AmountCents: 2990,
		Currency:    "brl",
		Interval:    "month",
	},
	{
		Tier:        models.TierPro,
		Name:        "Publimicro Pro",
		Description: "Anúncios ilimitados em todas as categorias",
		AmountCents: 7990,
		Currency:    "brl",
		Interval:    "month",
	},
}
