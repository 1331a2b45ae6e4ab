package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/customer"
	"github.com/stripe/stripe-go/v83/price"
	"github.com/stripe/stripe-go/v83/product"
	"github.com/stripe/stripe-go/v83/subscription"
)

// StripeProvider implements the PaymentProvider interface for Stripe.
type StripeProvider struct {
	apiKey string
}

// NewStripeProvider creates a new Stripe payment provider.
func NewStripeProvider(apiKey string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{
		apiKey: apiKey,
	}
}

// CreateCustomer creates a new Stripe customer
// This is what subscription creation hangs off; the user ID travels in
// metadata so webhook events can be mapped back.
func (s *StripeProvider) CreateCustomer(userID uuid.UUID, email string, metadata map[string]interface{}) (string, error) {
	stripeMetadata := make(map[string]string)
	for k, v := range metadata {
		stripeMetadata[k] = fmt.Sprintf("%v", v)
	}

	stripeMetadata["user_id"] = userID.String()

	params := &stripe.CustomerParams{
		Email:    stripe.String(email),
		Metadata: stripeMetadata,
	}

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	return c.ID, nil
}

// DeleteCustomer deletes a Stripe customer
// This is useful for cleanup when subscription creation fails.
func (s *StripeProvider) DeleteCustomer(customerID string) error {
	_, err := customer.Del(customerID, nil)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	return nil
}

// CreateProduct creates a Stripe product.
func (s *StripeProvider) CreateProduct(name, description string, metadata map[string]interface{}) (string, error) {
	stripeMetadata := make(map[string]string)
	for k, v := range metadata {
		stripeMetadata[k] = fmt.Sprintf("%v", v)
	}

	params := &stripe.ProductParams{
		Name:        stripe.String(name),
		Description: stripe.String(description),
		Metadata:    stripeMetadata,
	}

	p, err := product.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}

	return p.ID, nil
}

// CreatePrice creates a Stripe price for a product.
func (s *StripeProvider) CreatePrice(productID string, amount int64, currency string, interval string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(amount),
		Currency:   stripe.String(currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(interval), // "month" or "year"
		},
	}

	p, err := price.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create price: %w", err)
	}

	return p.ID, nil
}

// CreateSubscription creates a Stripe subscription for a customer.
func (s *StripeProvider) CreateSubscription(customerID, priceID string, metadata map[string]interface{}) (string, string, error) {
	stripeMetadata := make(map[string]string)
	for k, v := range metadata {
		stripeMetadata[k] = fmt.Sprintf("%v", v)
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price: stripe.String(priceID),
			},
		},
		Metadata:        stripeMetadata,
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
		// Expand the latest invoice and its payment intent to get client secret
		Expand: []*string{
			stripe.String("latest_invoice.payment_intent"),
		},
	}

	sub, err := subscription.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create subscription: %w", err)
	}

	// Extract client secret from the payment intent
	clientSecret := ""
	if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret.ClientSecret != "" {
		clientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}

	return sub.ID, clientSecret, nil
}

// CancelSubscription cancels a Stripe subscription.
func (s *StripeProvider) CancelSubscription(subscriptionID string, cancelAtPeriodEnd bool) error {
	params := &stripe.SubscriptionParams{}

	if cancelAtPeriodEnd {
		params.CancelAtPeriodEnd = stripe.Bool(true)
		_, err := subscription.Update(subscriptionID, params)
		if err != nil {
			return fmt.Errorf("failed to schedule subscription cancellation: %w", err)
		}
	} else {
		_, err := subscription.Cancel(subscriptionID, nil)
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
	}

	return nil
}

// GetSubscription retrieves a Stripe subscription.
func (s *StripeProvider) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// EnsurePlanCatalog creates the paid tier products and monthly prices in
// Stripe and returns the price ID per tier. Idempotency is left to the
// operator: this is a bootstrap helper, run once per environment.
func (s *StripeProvider) EnsurePlanCatalog() (map[string]string, error) {
	priceIDs := make(map[string]string, len(PaidPlans))

	for _, plan := range PaidPlans {
		productID, err := s.CreateProduct(plan.Name, plan.Description, map[string]interface{}{
			"tier": string(plan.Tier),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create product for tier %s: %w", plan.Tier, err)
		}

		priceID, err := s.CreatePrice(productID, plan.AmountCents, plan.Currency, plan.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to create price for tier %s: %w", plan.Tier, err)
		}

		priceIDs[string(plan.Tier)] = priceID
	}

	return priceIDs, nil
}
