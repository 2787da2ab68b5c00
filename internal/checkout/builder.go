// Package checkout builds payment-provider checkout sessions from raw cart
// items, persisting the full order payload through the metadata codec.
package checkout

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/domain/order"
	"github.com/flyerapp/fulfillment/internal/metadata"
	"github.com/flyerapp/fulfillment/internal/payment"
)

// ErrNoItems is returned when a checkout is attempted with an empty item list.
var ErrNoItems = errors.New("checkout requires at least one item")

var hundred = decimal.NewFromInt(100)

// CreateSessionInput carries one checkout request: the raw items exactly as
// the storefront submitted them, payload-level identity, and the resolved
// public base URL used for the return redirects.
type CreateSessionInput struct {
	UserID    string
	UserEmail string
	Source    string // "cart" for cart-origin checkouts
	Items     []json.RawMessage
	BaseURL   string
}

// Builder creates provider checkout sessions.
type Builder struct {
	provider payment.Provider
}

// NewBuilder creates a Builder on the given payment provider.
func NewBuilder(provider payment.Provider) *Builder {
	return &Builder{provider: provider}
}

// CreateSession normalizes every item, builds provider line items, encodes
// the full payload into session metadata, and opens the checkout session.
// It returns the provider session whose URL the storefront redirects to.
func (b *Builder) CreateSession(ctx context.Context, in CreateSessionInput) (*payment.Session, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}

	payload := &order.CheckoutPayload{
		UserID:    in.UserID,
		UserEmail: in.UserEmail,
		Source:    in.Source,
		Items:     in.Items,
	}
	defaults := payload.Defaults()

	lineItems := make([]payment.LineItem, 0, len(in.Items))
	total := decimal.Zero
	cancelPath := "/cancel"

	for i, raw := range in.Items {
		item, err := order.Normalize(raw, defaults)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}

		amount := item.Amount()
		total = total.Add(amount)

		li := payment.LineItem{
			Name:       "Flyer Design Order",
			UnitAmount: amount.Mul(hundred).Round(0).IntPart(),
			Quantity:   1,
		}
		if item.EventTitle != "" {
			li.Name = item.EventTitle
		}
		if item.Presenting != "" {
			li.Description = "Custom flyer for " + item.Presenting
		}
		// The payment UI cannot resolve relative paths; omit anything that
		// is not an absolute HTTP(S) URL instead of passing it through.
		if order.IsAbsoluteURL(item.ImageURL) {
			li.ImageURL = item.ImageURL
		}
		lineItems = append(lineItems, li)

		if i == 0 && item.FlyerID != "" {
			cancelPath = "/order/" + item.FlyerID
		}
	}

	md, err := metadata.Encode(payload, total)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}

	sess, err := b.provider.CreateSession(ctx, payment.CreateSessionRequest{
		LineItems:  lineItems,
		SuccessURL: in.BaseURL + "/api/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  in.BaseURL + cancelPath,
		Metadata:   md,
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("items", len(lineItems)),
		zap.String("total", total.String()),
	)
	return sess, nil
}
