package fulfillment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/flyerapp/fulfillment/internal/domain/order"
	"github.com/flyerapp/fulfillment/internal/metadata"
	"github.com/flyerapp/fulfillment/internal/payment"
	"github.com/flyerapp/fulfillment/internal/sideeffect"
)

// OrderCreator submits one canonical line item to the order backend and
// returns the created order ID.
type OrderCreator interface {
	CreateOrder(ctx context.Context, item order.LineItem) (string, error)
}

// AssetCleaner removes staged upload files once they are no longer needed.
type AssetCleaner interface {
	Cleanup(ctx context.Context, paths []string)
}

// SideEffects runs the non-critical post-creation actions. Implementations
// never fail the fulfillment.
type SideEffects interface {
	SendConfirmation(ctx context.Context, c sideeffect.Confirmation)
	ClearCart(ctx context.Context, userID string)
}

// Orchestrator drives a payment session through verification, payload
// decoding, per-item order creation, and the follow-up side effects. Every
// run ends in a storefront redirect URL; the customer is never shown a bare
// error page.
type Orchestrator struct {
	provider payment.Provider
	orders   OrderCreator
	records  Repository
	assets   AssetCleaner
	effects  SideEffects

	// Collapses concurrent redirects for the same session into one run.
	// Cross-process replays are short-circuited by the record store.
	sf        singleflight.Group
	fulfilled metric.Int64Counter
}

// NewOrchestrator wires the fulfillment pipeline. fulfilled may be nil when
// metrics are disabled.
func NewOrchestrator(
	provider payment.Provider,
	orders OrderCreator,
	records Repository,
	assets AssetCleaner,
	effects SideEffects,
	fulfilled metric.Int64Counter,
) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		orders:    orders,
		records:   records,
		assets:    assets,
		effects:   effects,
		fulfilled: fulfilled,
	}
}

// Fulfill processes the return redirect for one payment session and returns
// the storefront URL to redirect the customer to. It never returns an error;
// every failure mode maps to a redirect carrying the failure reason.
func (o *Orchestrator) Fulfill(ctx context.Context, baseURL, sessionID string) (out string) {
	lg := zctx.From(ctx).With(zap.String("session_id", sessionID))

	defer func() {
		if r := recover(); r != nil {
			lg.Error("fulfillment panicked", zap.Any("panic", r))
			out = failureURL(baseURL, sessionID, "Processing error")
		}
	}()

	if sessionID == "" {
		return failureURL(baseURL, "", "missing_session_id")
	}

	url, _, _ := o.sf.Do(sessionID, func() (any, error) {
		return o.run(ctx, lg, baseURL, sessionID), nil
	})
	return url.(string)
}

func (o *Orchestrator) run(ctx context.Context, lg *zap.Logger, baseURL, sessionID string) string {
	if rec, err := o.records.Get(ctx, sessionID); err == nil {
		lg.Info("session already fulfilled, replaying redirect",
			zap.Strings("order_ids", rec.OrderIDs))
		return successURL(baseURL, sessionID, rec.OrderIDs)
	} else if !errors.Is(err, ErrNotFound) {
		// A record-store outage must not block paying customers.
		lg.Warn("fulfillment record lookup failed, proceeding", zap.Error(err))
	}

	sess, err := o.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		lg.Error("retrieve payment session", zap.Error(err))
		return failureURL(baseURL, sessionID, "Could not verify payment session")
	}
	if !sess.Paid() {
		lg.Warn("session not paid", zap.String("payment_status", sess.PaymentStatus))
		return failureURL(baseURL, sessionID, "payment_failed")
	}

	payload, err := metadata.DecodePayload(sess.Metadata)
	if err != nil {
		lg.Error("decode session payload", zap.Error(err))
		return failureURL(baseURL, sessionID, "Could not read order data")
	}

	defaults := order.Defaults{
		UserID: firstNonEmpty(payload.UserID, sess.Metadata["userId"]),
		Email:  firstNonEmpty(payload.UserEmail, sess.Metadata["userEmail"]),
	}

	var (
		orderIDs  []string
		tempPaths []string
		total     decimal.Decimal
		lastErr   error
	)
	for i, raw := range payload.RawItems() {
		item, err := order.Normalize(raw, defaults)
		if err != nil {
			lg.Error("normalize item", zap.Int("item", i), zap.Error(err))
			lastErr = err
			continue
		}
		id, err := o.orders.CreateOrder(ctx, item)
		if err != nil {
			lg.Error("create order", zap.Int("item", i), zap.Error(err))
			lastErr = err
			continue
		}
		lg.Info("order created", zap.Int("item", i), zap.String("order_id", id))

		orderIDs = append(orderIDs, id)
		total = total.Add(item.Amount())

		// Staged assets become disposable only once the order that holds
		// them is confirmed created; a failed item may be resubmitted and
		// still needs its files.
		for _, p := range item.TempFiles {
			tempPaths = append(tempPaths, p)
		}

		o.effects.SendConfirmation(ctx, sideeffect.Confirmation{
			OrderID:      id,
			Recipient:    item.Email,
			EventTitle:   item.EventTitle,
			DeliveryTime: item.DeliveryTime,
			Extras:       itemExtras(item),
			Total:        item.Amount(),
			ImageURL:     item.ImageURL,
		})
	}

	if len(orderIDs) == 0 {
		reason := "No orders were created on backend"
		if lastErr != nil {
			reason = lastErr.Error()
		}
		return failureURL(baseURL, sessionID, reason)
	}

	o.assets.Cleanup(ctx, tempPaths)

	source := firstNonEmpty(payload.Source, sess.Metadata["source"])
	if source == "cart" && defaults.UserID != "" {
		o.effects.ClearCart(ctx, defaults.UserID)
	}

	if err := o.records.Create(ctx, &Record{
		SessionID: sessionID,
		OrderIDs:  orderIDs,
		UserID:    defaults.UserID,
		Total:     total,
	}); err != nil {
		lg.Warn("persist fulfillment record", zap.Error(err))
	}

	if o.fulfilled != nil {
		o.fulfilled.Add(ctx, 1,
			metric.WithAttributes(attribute.Int("orders", len(orderIDs))))
	}
	lg.Info("fulfillment complete", zap.Strings("order_ids", orderIDs))

	return successURL(baseURL, sessionID, orderIDs)
}

// itemExtras lists the purchased add-ons for the confirmation email.
func itemExtras(item order.LineItem) []string {
	var extras []string
	if item.AnimatedFlyer {
		extras = append(extras, "Animated Flyer")
	}
	if item.StorySizeVersion {
		extras = append(extras, "Instagram Story Size")
	}
	if item.CustomFlyer {
		extras = append(extras, "Custom Design")
	}
	return extras
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
