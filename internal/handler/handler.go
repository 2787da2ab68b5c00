// Package handler exposes the checkout pipeline over HTTP: session creation,
// the payment return redirect, and temp-file uploads.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/assets"
	"github.com/flyerapp/fulfillment/internal/checkout"
	"github.com/flyerapp/fulfillment/internal/payment"
)

// SessionCreator opens a provider checkout session for a set of raw items.
type SessionCreator interface {
	CreateSession(ctx context.Context, in checkout.CreateSessionInput) (*payment.Session, error)
}

// Fulfiller processes a payment return redirect and yields the storefront URL
// to send the customer to.
type Fulfiller interface {
	Fulfill(ctx context.Context, baseURL, sessionID string) string
}

// Uploader stages an uploaded file for later order submission.
type Uploader interface {
	Stage(batchID, fieldName, filename string, r io.Reader) (assets.StagedAsset, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// PublicBaseURL is the storefront origin used in redirects. When empty it
	// is derived per request from forwarded headers.
	PublicBaseURL string
}

// Handler implements the HTTP surface, delegating business logic to the
// checkout builder and the fulfillment orchestrator.
type Handler struct {
	sessions      SessionCreator
	fulfiller     Fulfiller
	uploads       Uploader
	publicBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, sessions SessionCreator, fulfiller Fulfiller, uploads Uploader) *Handler {
	return &Handler{
		sessions:      sessions,
		fulfiller:     fulfiller,
		uploads:       uploads,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout/session", h.CreateCheckoutSession)
	mux.HandleFunc("GET /api/checkout/success", h.CheckoutSuccess)
	mux.HandleFunc("POST /api/uploads/temp", h.UploadTemp)
}

// baseURL resolves the public origin for this request.
func (h *Handler) baseURL(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return checkout.ResolveBaseURL(h.publicBaseURL, r.Header.Get("X-Forwarded-Proto"), host)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(ctx).Error("write response", zap.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Code: status, Message: msg})
}
