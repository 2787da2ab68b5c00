package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckoutSuccess handles the payment provider's return redirect. It always
// answers with a redirect to the storefront; the customer never sees a bare
// error page, whatever went wrong.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	base := h.baseURL(r)

	defer func() {
		if rec := recover(); rec != nil {
			zctx.From(ctx).Error("checkout success panicked", zap.Any("panic", rec))
			http.Redirect(w, r, base+"/success?order_created=false&error=Processing+error",
				http.StatusSeeOther)
		}
	}()

	dest := h.fulfiller.Fulfill(ctx, base, r.URL.Query().Get("session_id"))
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
