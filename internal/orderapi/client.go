// Package orderapi is the client for the external order-management service.
//
// Orders are submitted as multipart forms. The backend's field vocabulary and
// response shape have drifted across versions, so the client preserves a few
// legacy quirks (duplicated " total_price" field with a leading space) and
// probes several historical response shapes for the created order ID.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/flyerapp/fulfillment/internal/domain/order"
)

// idProbes lists every response location a created order ID has historically
// appeared at, in probe order.
var idProbes = [][]string{
	{"order", "id"},
	{"orderId"},
	{"id"},
	{"data", "id"},
	{"data", "order", "id"},
	{"order_id"},
}

// SubmissionError is a failed order-creation call for a single line item.
type SubmissionError struct {
	Status int
	Reason string
}

func (e *SubmissionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("order submission failed (status %d): %s", e.Status, e.Reason)
	}
	return "order submission failed: " + e.Reason
}

// Client talks to the order-management service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// New creates a Client. Every call is bounded by timeout; transient failures
// (transport errors, 502/503/504) are retried up to maxRetries times with
// exponential backoff.
func New(baseURL string, timeout time.Duration, maxRetries uint64) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// CreateOrder submits one canonical line item and returns the created order
// ID. The multipart body is built once and replayed on retry.
func (c *Client) CreateOrder(ctx context.Context, item order.LineItem) (string, error) {
	body, contentType, err := buildForm(ctx, item)
	if err != nil {
		return "", err
	}

	var orderID string
	op := func() error {
		id, opErr := c.submit(ctx, body, contentType)
		if opErr != nil {
			return opErr
		}
		orderID = id
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return orderID, nil
}

func (c *Client) submit(ctx context.Context, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(errors.Wrap(err, "create request"))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "post order") // transport error: retryable
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		subErr := &SubmissionError{Status: resp.StatusCode, Reason: truncate(string(data), 256)}
		if retryableStatus(resp.StatusCode) {
			return "", subErr
		}
		return "", backoff.Permanent(subErr)
	}

	id, reason := extractOrderID(data)
	if id == "" {
		return "", backoff.Permanent(&SubmissionError{Status: resp.StatusCode, Reason: reason})
	}
	return id, nil
}

// ClearCart removes all items from a user's server-side cart. Best-effort
// from the caller's perspective; no response body is required.
func (c *Client) ClearCart(ctx context.Context, userID string) error {
	u := c.baseURL + "/api/cart/clear/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "clear cart")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("clear cart: status %d", resp.StatusCode)
	}
	return nil
}

// buildForm assembles the multipart submission: canonical fields merged with
// any staged file parts for this item. Staged files that no longer exist on
// disk are skipped with a log line rather than failing the submission.
func buildForm(ctx context.Context, item order.LineItem) (body []byte, contentType string, err error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	amount := item.Amount()

	fields := [][2]string{
		{"presenting", item.Presenting},
		{"event_title", item.EventTitle},
		{"event_date", item.EventDate},
		{"flyer_info", item.FlyerInfo},
		{"address_phone", item.AddressPhone},
		{"story_size_version", strconv.FormatBool(item.StorySizeVersion)},
		{"custom_flyer", strconv.FormatBool(item.CustomFlyer)},
		{"animated_flyer", strconv.FormatBool(item.AnimatedFlyer)},
		{"instagram_post_size", strconv.FormatBool(item.InstagramPostSize)},
		{"delivery_time", item.DeliveryTime},
		{"custom_notes", item.CustomNotes},
		{"flyer_is", item.FlyerID},
		{"category_id", item.CategoryID},
		{"user_id", item.UserID},
		{"web_user_id", item.UserID},
		{"email", item.Email},
		{"total_price", amount.String()},
		// Legacy duplicate with a leading space, still read by older
		// backend versions.
		{" total_price", amount.String()},
		{"subtotal", item.Subtotal.String()},
		{"image_url", item.ImageURL},
		{"venue_text", item.VenueText},
		{"venue_logo_url", item.VenueLogoURL},
	}
	if order.IsAbsoluteURL(item.VenueLogoURL) {
		fields = append(fields, [2]string{"venue_logo", item.VenueLogoURL})
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", errors.Wrapf(err, "write field %q", f[0])
		}
	}

	if err := writeJSONField(w, "djs", item.DJs); err != nil {
		return nil, "", err
	}
	// The backend expects host as a single object, not an array.
	if err := writeJSONField(w, "host", item.Host.First()); err != nil {
		return nil, "", err
	}
	if err := writeJSONField(w, "sponsors", item.Sponsors); err != nil {
		return nil, "", err
	}

	if err := writeFileParts(ctx, w, item.TempFiles); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "finalize form")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeJSONField(w *multipart.Writer, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal field %q", name)
	}
	return errors.Wrapf(w.WriteField(name, string(data)), "write field %q", name)
}

// writeFileParts attaches staged files, translating logical field names to
// the backend's part names: host_0 becomes host_file, host_{n} becomes
// host_file_{n}; dj_{n} and sponsor_{n} pass through unchanged.
func writeFileParts(ctx context.Context, w *multipart.Writer, tempFiles map[string]string) error {
	lg := zctx.From(ctx)

	names := make([]string, 0, len(tempFiles))
	for name := range tempFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, field := range names {
		path := tempFiles[field]
		f, err := os.Open(path)
		if err != nil {
			lg.Warn("staged file missing, skipping part",
				zap.String("field", field), zap.String("path", path), zap.Error(err))
			continue
		}

		part, err := w.CreatePart(filePartHeader(backendFieldName(field), filepath.Base(path)))
		if err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "create file part %q", field)
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "copy file part %q", field)
		}
		_ = f.Close()
	}
	return nil
}

func backendFieldName(field string) string {
	idx, ok := strings.CutPrefix(field, "host_")
	if !ok {
		return field
	}
	if idx == "0" {
		return "host_file"
	}
	return "host_file_" + idx
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func filePartHeader(field, filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}

// extractOrderID probes the decoded response for a created order ID. It also
// honors an explicit success:false flag. Returns the ID, or an empty string
// with a human-readable reason.
func extractOrderID(data []byte) (id, reason string) {
	var resp map[string]any
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "unparseable response: " + truncate(string(data), 128)
	}

	if ok, present := resp["success"].(bool); present && !ok {
		if msg := firstMessage(resp); msg != "" {
			return "", msg
		}
		return "", "backend reported success=false"
	}

	for _, probe := range idProbes {
		if v, ok := lookupPath(resp, probe); ok {
			if s := idToString(v); s != "" {
				return s, ""
			}
		}
	}
	return "", "no order id in response"
}

func lookupPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func idToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func firstMessage(resp map[string]any) string {
	for _, key := range []string{"message", "error"} {
		if s, ok := resp[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
