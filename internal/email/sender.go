// Package email sends transactional mail for the checkout pipeline.
package email

import "context"

// Sender delivers one email. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Nop is a Sender that silently discards mail. Used when no sender address
// is configured (local development).
type Nop struct{}

func (Nop) Send(context.Context, string, string, string, string) error { return nil }
