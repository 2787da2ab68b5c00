package order

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// CheckoutPayload is the full order payload smuggled through the payment
// session's metadata. It is created once by the checkout session builder and
// consumed exactly once by the fulfillment orchestrator; it never outlives
// the payment session.
//
// Modern payloads carry Items; legacy single-order payloads carry FormData.
type CheckoutPayload struct {
	UserID    string            `json:"userId,omitempty"`
	UserEmail string            `json:"userEmail,omitempty"`
	Source    string            `json:"source,omitempty"`
	Items     []json.RawMessage `json:"items,omitempty"`
	FormData  json.RawMessage   `json:"formData,omitempty"`

	raw json.RawMessage
}

// ParsePayload decodes a reconstructed payload. The original bytes are
// retained so that payloads predating both the items array and the formData
// wrapper can still be treated as a single order item.
func ParsePayload(raw []byte) (*CheckoutPayload, error) {
	var p CheckoutPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "parse checkout payload")
	}
	p.raw = json.RawMessage(raw)
	return &p, nil
}

// RawItems returns the list of raw order items to fulfill, applying the
// legacy fallback chain: the items array, then the single formData object,
// then the payload itself as one item.
func (p *CheckoutPayload) RawItems() []json.RawMessage {
	if len(p.Items) > 0 {
		return p.Items
	}
	if len(p.FormData) > 0 {
		return []json.RawMessage{p.FormData}
	}
	if len(p.raw) > 0 {
		return []json.RawMessage{p.raw}
	}
	return nil
}

// Defaults returns the payload-level identity values used to fill gaps in
// individual items.
func (p *CheckoutPayload) Defaults() Defaults {
	return Defaults{UserID: p.UserID, Email: p.UserEmail}
}
