package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/photo-orders/internal/domains/orders/application"
	ordertypes "github.com/Apurer/photo-orders/internal/domains/orders/application/types"
	"github.com/Apurer/photo-orders/internal/domains/orders/domain"
	"github.com/Apurer/photo-orders/internal/domains/orders/ports"
)

type fakeService struct {
	createResult  *ordertypes.OrderResult
	createErr     error
	resumeResult  *ordertypes.OrderResult
	resumeErr     error
	sessionResult *ordertypes.OrderResult
	sessionErr    error
	order         *domain.Order
	getErr        error
	listResult    []*domain.Order
	cancelErr     error
	lastCreate    ordertypes.CreateOrderInput
}

func (f *fakeService) CreateOrder(_ context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	f.lastCreate = input
	return f.createResult, f.createErr
}

func (f *fakeService) ResumeUploads(_ context.Context, _ ordertypes.ResumeUploadsInput) (*ordertypes.OrderResult, error) {
	return f.resumeResult, f.resumeErr
}

func (f *fakeService) RecreateSession(_ context.Context, _ string) (*ordertypes.OrderResult, error) {
	return f.sessionResult, f.sessionErr
}

func (f *fakeService) GetByID(_ context.Context, _ string) (*domain.Order, error) {
	return f.order, f.getErr
}

func (f *fakeService) List(_ context.Context) ([]*domain.Order, error) {
	return f.listResult, nil
}

func (f *fakeService) Cancel(_ context.Context, _ string) error {
	return f.cancelErr
}

type fakeReconciler struct {
	err       error
	payload   []byte
	signature string
}

func (f *fakeReconciler) HandleGatewayEvent(_ context.Context, payload []byte, signature string) error {
	f.payload = payload
	f.signature = signature
	return f.err
}

func newTestRouter(service *fakeService, reconciler *fakeReconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// Inline orchestration keeps the handler tests free of workflow plumbing.
	NewHandlers(service, inlineOrchestrator{service}, reconciler).Register(router)
	return router
}

type inlineOrchestrator struct {
	service ports.Service
}

func (o inlineOrchestrator) CreateOrder(ctx context.Context, input ordertypes.CreateOrderInput) (*ordertypes.OrderResult, error) {
	return o.service.CreateOrder(ctx, input)
}

func multipartBody(t *testing.T, email, pkg string, fileField string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if email != "" {
		require.NoError(t, writer.WriteField("email", email))
	}
	if pkg != "" {
		require.NoError(t, writer.WriteField("package", pkg))
	}
	for _, name := range names {
		part, err := writer.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func awaitingOrder() *domain.Order {
	return &domain.Order{
		ID:            "ord-1",
		Email:         "ada@example.com",
		Package:       domain.PackageBasic,
		MediaRefs:     []string{"mem://orders/ord-1/a.jpg"},
		PaymentStatus: domain.StatusAwaitingPayment,
	}
}

func TestCreateOrder_ReturnsRedirectURL(t *testing.T) {
	service := &fakeService{createResult: &ordertypes.OrderResult{
		Order:       awaitingOrder(),
		RedirectURL: "https://pay.example/cs_1",
	}}
	router := newTestRouter(service, &fakeReconciler{})

	body, contentType := multipartBody(t, "ada@example.com", "Basic", "photos", "a.jpg", "b.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "https://pay.example/cs_1", payload["url"])

	require.Equal(t, "ada@example.com", service.lastCreate.Email)
	require.Equal(t, "Basic", service.lastCreate.Package)
	require.Len(t, service.lastCreate.Files, 2)
	require.Equal(t, "a.jpg", service.lastCreate.Files[0].Name)
}

func TestCreateFreeOrder_SendsSingleFile(t *testing.T) {
	completed := awaitingOrder()
	completed.Package = domain.PackageFree
	completed.PaymentStatus = domain.StatusCompleted
	service := &fakeService{createResult: &ordertypes.OrderResult{Order: completed}}
	router := newTestRouter(service, &fakeReconciler{})

	body, contentType := multipartBody(t, "ada@example.com", "", "photo", "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/orders/free", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, string(domain.PackageFree), service.lastCreate.Package)
	require.Len(t, service.lastCreate.Files, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "Completed", payload["paymentStatus"])
}

func TestCreateOrder_DuplicatePendingConflict(t *testing.T) {
	service := &fakeService{createErr: fmt.Errorf("%w: order ord-1", application.ErrDuplicatePending)}
	router := newTestRouter(service, &fakeReconciler{})

	body, contentType := multipartBody(t, "ada@example.com", "Basic", "photos", "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "application/problem+json")
}

func TestCreateOrder_UploadFailureSignalsPartialState(t *testing.T) {
	service := &fakeService{createErr: fmt.Errorf("%w: order ord-1: upload \"b.jpg\": timeout", application.ErrUploadFailed)}
	router := newTestRouter(service, &fakeReconciler{})

	body, contentType := multipartBody(t, "ada@example.com", "Basic", "photos", "a.jpg", "b.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadGateway, resp.Code)
	var problem struct {
		Status     int            `json:"status"`
		Extensions map[string]any `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &problem))
	require.Equal(t, "partial", problem.Extensions["sideEffects"])
	require.Contains(t, problem.Extensions["recovery"], "resume")
}

func TestCreateOrder_StorageFailureSignalsNoSideEffects(t *testing.T) {
	service := &fakeService{createErr: fmt.Errorf("%w: connection refused", application.ErrStorageUnavailable)}
	router := newTestRouter(service, &fakeReconciler{})

	body, contentType := multipartBody(t, "ada@example.com", "Basic", "photos", "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	var problem struct {
		Extensions map[string]any `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &problem))
	require.Equal(t, "none", problem.Extensions["sideEffects"])
}

func TestGetOrder_NotFound(t *testing.T) {
	service := &fakeService{getErr: fmt.Errorf("%w: missing", application.ErrOrderNotFound)}
	router := newTestRouter(service, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListOrders_ReturnsWireShape(t *testing.T) {
	service := &fakeService{listResult: []*domain.Order{awaitingOrder()}}
	router := newTestRouter(service, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var payload []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.Equal(t, "ord-1", payload[0]["id"])
	require.Equal(t, "AwaitingPayment", payload[0]["paymentStatus"])
}

func TestRecreateSession_ReturnsURL(t *testing.T) {
	service := &fakeService{sessionResult: &ordertypes.OrderResult{
		Order:       awaitingOrder(),
		RedirectURL: "https://pay.example/cs_2",
	}}
	router := newTestRouter(service, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/payment-session", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "https://pay.example/cs_2", payload["url"])
}

func TestCancelOrder_NoContent(t *testing.T) {
	service := &fakeService{}
	router := newTestRouter(service, &fakeReconciler{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/cancel", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestStripeWebhook_PassesRawBodyAndSignature(t *testing.T) {
	reconciler := &fakeReconciler{}
	router := newTestRouter(&fakeService{}, reconciler)

	payload := []byte(`{"type":"checkout.session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, payload, reconciler.payload)
	require.Equal(t, "t=1,v1=abc", reconciler.signature)
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	reconciler := &fakeReconciler{err: ports.ErrInvalidSignature}
	router := newTestRouter(&fakeService{}, reconciler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte("payload")))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStripeWebhook_MalformedEvent(t *testing.T) {
	reconciler := &fakeReconciler{err: fmt.Errorf("%w: decode checkout session: boom", ports.ErrMalformedEvent)}
	router := newTestRouter(&fakeService{}, reconciler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte("payload")))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "decoded")
}
