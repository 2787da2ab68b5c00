// Package sideeffect runs the non-critical post-fulfillment actions:
// confirmation email and cart clearing. Both are awaited for completion but
// their failures are logged and swallowed — they never change the outcome of
// a fulfillment run.
package sideeffect

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/email"
)

// Confirmation summarizes one created order for the confirmation email.
type Confirmation struct {
	OrderID      string
	Recipient    string
	EventTitle   string
	DeliveryTime string
	Extras       []string
	Total        decimal.Decimal
	ImageURL     string
}

// CartClearer removes a user's server-side cart after a cart-origin checkout.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// Dispatcher fires side effects behind a narrow interface so the fulfillment
// state machine never depends on their outcome.
type Dispatcher struct {
	sender email.Sender
	carts  CartClearer
}

// New creates a Dispatcher.
func New(sender email.Sender, carts CartClearer) *Dispatcher {
	return &Dispatcher{sender: sender, carts: carts}
}

// SendConfirmation renders and sends the order confirmation email.
// Failures are logged, never returned.
func (d *Dispatcher) SendConfirmation(ctx context.Context, c Confirmation) {
	lg := zctx.From(ctx).With(zap.String("order_id", c.OrderID))

	if c.Recipient == "" {
		lg.Warn("skipping confirmation email: no recipient")
		return
	}

	flyerName := c.EventTitle
	if flyerName == "" {
		flyerName = "Flyer Order #" + c.OrderID
	}

	htmlBody, textBody, err := email.RenderConfirmation(email.ConfirmationData{
		OrderID:      c.OrderID,
		CustomerName: email.CustomerNameFromEmail(c.Recipient),
		FlyerName:    flyerName,
		DeliveryTime: c.DeliveryTime,
		Extras:       c.Extras,
		TotalPrice:   c.Total,
		ImageURL:     c.ImageURL,
	})
	if err != nil {
		lg.Error("render confirmation email", zap.Error(err))
		return
	}

	subject := "Order Confirmation #" + c.OrderID
	if err := d.sender.Send(ctx, c.Recipient, subject, htmlBody, textBody); err != nil {
		lg.Error("send confirmation email", zap.String("to", c.Recipient), zap.Error(err))
		return
	}
	lg.Info("confirmation email sent", zap.String("to", c.Recipient))
}

// ClearCart empties the user's cart. Failures are logged, never returned.
func (d *Dispatcher) ClearCart(ctx context.Context, userID string) {
	lg := zctx.From(ctx)

	if userID == "" {
		return
	}
	if err := d.carts.ClearCart(ctx, userID); err != nil {
		lg.Error("clear cart", zap.String("user_id", userID), zap.Error(err))
		return
	}
	lg.Info("cart cleared", zap.String("user_id", userID))
}
