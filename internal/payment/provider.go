// Package payment abstracts the external payment provider's checkout
// session API.
package payment

import "context"

// StatusPaid is the payment status of a session whose payment completed.
const StatusPaid = "paid"

// Session is the provider's view of one pending-or-completed payment attempt.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// Paid reports whether the session's payment completed successfully.
func (s *Session) Paid() bool { return s.PaymentStatus == StatusPaid }

// LineItem is one purchasable line of a checkout session. UnitAmount is in
// currency minor units (cents).
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// CreateSessionRequest carries everything needed to open a checkout session.
// SuccessURL and CancelURL may contain the provider's {CHECKOUT_SESSION_ID}
// placeholder.
type CreateSessionRequest struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Provider creates and retrieves checkout sessions.
type Provider interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
