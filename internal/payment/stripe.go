package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var _ Provider = (*StripeProvider)(nil)

// StripeProvider implements Provider on top of Stripe Checkout Sessions.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider creates a Stripe-backed Provider. maxNetworkRetries
// bounds the SDK's automatic retries for idempotent network failures.
func NewStripeProvider(secretKey string, maxNetworkRetries int64) *StripeProvider {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(maxNetworkRetries),
	})

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeProvider{api: api}
}

// CreateSession opens a payment-mode checkout session with the given line
// items, redirect URLs, and metadata.
func (p *StripeProvider) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems:          make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems)),
	}
	params.Context = ctx

	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(li.UnitAmount),
				ProductData: product,
			},
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}

	return mapSession(s), nil
}

// RetrieveSession fetches a session by its opaque identifier.
func (p *StripeProvider) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve checkout session")
	}

	return mapSession(s), nil
}

func mapSession(s *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}
