package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/checkout"
)

// checkoutRequest is the storefront's session-creation body. Modern clients
// send items; legacy single-order clients send item.
type checkoutRequest struct {
	UserID    string            `json:"userId"`
	UserEmail string            `json:"userEmail"`
	Source    string            `json:"source"`
	Items     []json.RawMessage `json:"items"`
	Item      json.RawMessage   `json:"item"`
}

type checkoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// CreateCheckoutSession opens a payment session for the submitted cart and
// returns the provider URL the storefront redirects the customer to.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := req.Items
	if len(items) == 0 && len(req.Item) > 0 {
		items = []json.RawMessage{req.Item}
	}

	sess, err := h.sessions.CreateSession(ctx, checkout.CreateSessionInput{
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
		Source:    req.Source,
		Items:     items,
		BaseURL:   h.baseURL(r),
	})
	if err != nil {
		if errors.Is(err, checkout.ErrNoItems) {
			writeError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}
		zctx.From(ctx).Error("create checkout session", zap.Error(err))
		writeError(ctx, w, http.StatusBadGateway, "could not create checkout session")
		return
	}

	writeJSON(ctx, w, http.StatusOK, checkoutResponse{URL: sess.URL, SessionID: sess.ID})
}
