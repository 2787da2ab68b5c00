package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flyerapp/fulfillment/internal/assets"
	"github.com/flyerapp/fulfillment/internal/checkout"
	"github.com/flyerapp/fulfillment/internal/payment"
)

type stubSessions struct {
	in   checkout.CreateSessionInput
	sess *payment.Session
	err  error
}

func (s *stubSessions) CreateSession(_ context.Context, in checkout.CreateSessionInput) (*payment.Session, error) {
	s.in = in
	return s.sess, s.err
}

type stubFulfiller struct {
	baseURL   string
	sessionID string
	dest      string
}

func (s *stubFulfiller) Fulfill(_ context.Context, baseURL, sessionID string) string {
	s.baseURL = baseURL
	s.sessionID = sessionID
	return s.dest
}

type stubUploader struct {
	batchID string
	field   string
	staged  assets.StagedAsset
	err     error
}

func (s *stubUploader) Stage(batchID, fieldName, _ string, r io.Reader) (assets.StagedAsset, error) {
	s.batchID = batchID
	s.field = fieldName
	_, _ = io.Copy(io.Discard, r)
	return s.staged, s.err
}

func newTestHandler(sessions *stubSessions, fulfiller *stubFulfiller, uploads *stubUploader) http.Handler {
	mux := http.NewServeMux()
	h := NewHandler(HandlerConfig{PublicBaseURL: "https://flyers.example"}, sessions, fulfiller, uploads)
	h.Register(mux)
	return mux
}

func TestCreateCheckoutSession(t *testing.T) {
	sessions := &stubSessions{sess: &payment.Session{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	srv := newTestHandler(sessions, &stubFulfiller{}, &stubUploader{})

	body := `{"userId":"u1","userEmail":"sam@example.com","source":"cart","items":[{"total_price":"10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://pay.example/cs_1", resp.URL)
	assert.Equal(t, "cs_1", resp.SessionID)

	assert.Equal(t, "u1", sessions.in.UserID)
	assert.Equal(t, "cart", sessions.in.Source)
	assert.Equal(t, "https://flyers.example", sessions.in.BaseURL)
	assert.Len(t, sessions.in.Items, 1)
}

func TestCreateCheckoutSession_LegacySingleItem(t *testing.T) {
	sessions := &stubSessions{sess: &payment.Session{ID: "cs_1"}}
	srv := newTestHandler(sessions, &stubFulfiller{}, &stubUploader{})

	body := `{"item":{"total_price":"10"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sessions.in.Items, 1)
}

func TestCreateCheckoutSession_EmptyItems(t *testing.T) {
	sessions := &stubSessions{err: checkout.ErrNoItems}
	srv := newTestHandler(sessions, &stubFulfiller{}, &stubUploader{})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCheckoutSession_ProviderFailure(t *testing.T) {
	sessions := &stubSessions{err: errors.New("provider down")}
	srv := newTestHandler(sessions, &stubFulfiller{}, &stubUploader{})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session",
		strings.NewReader(`{"items":[{"total_price":"10"}]}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestCreateCheckoutSession_InvalidBody(t *testing.T) {
	srv := newTestHandler(&stubSessions{}, &stubFulfiller{}, &stubUploader{})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutSuccess(t *testing.T) {
	fulfiller := &stubFulfiller{dest: "https://flyers.example/thank-you?orderId=1&order_created=true"}
	srv := newTestHandler(&stubSessions{}, fulfiller, &stubUploader{})

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/success?session_id=cs_1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fulfiller.dest, rec.Header().Get("Location"))
	assert.Equal(t, "cs_1", fulfiller.sessionID)
	assert.Equal(t, "https://flyers.example", fulfiller.baseURL)
}

func TestUploadTemp(t *testing.T) {
	uploads := &stubUploader{staged: assets.StagedAsset{
		FieldName: "host_0",
		Path:      "/tmp/flyers/checkout_x/host_0_logo.png",
		Filename:  "host_0_logo.png",
	}}
	srv := newTestHandler(&stubSessions{}, &stubFulfiller{}, uploads)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("field", "host_0"))
	require.NoError(t, w.WriteField("uploadId", "checkout_x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/temp", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "/tmp/flyers/checkout_x/host_0_logo.png", resp.Filepath)
	assert.Equal(t, "checkout_x", uploads.batchID)
	assert.Equal(t, "host_0", uploads.field)
}

func TestUploadTemp_MissingFile(t *testing.T) {
	srv := newTestHandler(&stubSessions{}, &stubFulfiller{}, &stubUploader{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("field", "host_0"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/temp", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
