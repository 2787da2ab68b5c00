package fulfillment

import (
	"net/url"
	"strings"
)

// successURL is the storefront thank-you page with the created order IDs.
func successURL(base, sessionID string, orderIDs []string) string {
	q := url.Values{}
	q.Set("orderId", strings.Join(orderIDs, ","))
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	q.Set("order_created", "true")
	return base + "/thank-you?" + q.Encode()
}

// failureURL is the storefront success page in its error state. The page
// renders the reason to the customer, so reasons are short and presentable.
func failureURL(base, sessionID, reason string) string {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	q.Set("order_created", "false")
	q.Set("error", reason)
	return base + "/success?" + q.Encode()
}
