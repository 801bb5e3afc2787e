package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printcore/backend/internal/application/fulfillment"
	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/infrastructure/config"
)

// MockOrderRepository is a mock implementation of pod.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *pod.PrintOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *pod.PrintOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*pod.PrintOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pod.PrintOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByExternalID(ctx context.Context, provider pod.ProviderCode, externalID string) (*pod.PrintOrder, error) {
	args := m.Called(ctx, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pod.PrintOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByStatus(ctx context.Context, status pod.OrderStatus, limit int) ([]*pod.PrintOrder, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pod.PrintOrder), args.Error(1)
}

func (m *MockOrderRepository) FindNeedingPoll(ctx context.Context, olderThan time.Time, maxAge time.Duration, limit int) ([]*pod.PrintOrder, error) {
	args := m.Called(ctx, olderThan, maxAge, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pod.PrintOrder), args.Error(1)
}

func (m *MockOrderRepository) FindFallbacks(ctx context.Context, originalID uuid.UUID) ([]*pod.PrintOrder, error) {
	args := m.Called(ctx, originalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pod.PrintOrder), args.Error(1)
}

// MockSpecRepository is a mock implementation of pod.SpecRepository
type MockSpecRepository struct {
	mock.Mock
}

func (m *MockSpecRepository) Save(ctx context.Context, spec *pod.PrintSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

func (m *MockSpecRepository) FindByID(ctx context.Context, id string) (*pod.PrintSpec, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pod.PrintSpec), args.Error(1)
}

// MockRenditionRepository is a mock implementation of rendition.Repository
type MockRenditionRepository struct {
	mock.Mock
}

func (m *MockRenditionRepository) Save(ctx context.Context, r *rendition.Rendition) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRenditionRepository) Update(ctx context.Context, r *rendition.Rendition) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRenditionRepository) FindByID(ctx context.Context, id uuid.UUID) (*rendition.Rendition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rendition.Rendition), args.Error(1)
}

func (m *MockRenditionRepository) FindLatestByBook(ctx context.Context, bookID uuid.UUID) (*rendition.Rendition, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rendition.Rendition), args.Error(1)
}

func (m *MockRenditionRepository) FindRunnableJobs(ctx context.Context, limit int) ([]*rendition.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rendition.Job), args.Error(1)
}

// MockSubmissionGuard is a mock implementation of shared.SubmissionGuard
type MockSubmissionGuard struct {
	mock.Mock
}

func (m *MockSubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubmissionGuard) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockSubmissionGuard) IsHeld(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubmissionGuard) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockQueue is a mock implementation of the rendition job submitter
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Submit(job *rendition.Job) error {
	args := m.Called(job)
	return args.Error(0)
}

// MockAdapter is a mock provider adapter
type MockAdapter struct {
	mock.Mock
	code pod.ProviderCode
}

func newMockAdapter(code pod.ProviderCode) *MockAdapter {
	return &MockAdapter{code: code}
}

func (m *MockAdapter) Code() pod.ProviderCode { return m.code }

func (m *MockAdapter) SupportsSpec(spec pod.PrintSpec) bool { return true }

func (m *MockAdapter) GetQuote(ctx context.Context, req pod.QuoteRequest) (pod.Quote, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pod.Quote), args.Error(1)
}

func (m *MockAdapter) Preflight(ctx context.Context, spec pod.PrintSpec) (*preflight.Result, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*preflight.Result), args.Error(1)
}

func (m *MockAdapter) CreateOrder(ctx context.Context, req pod.CreateOrderRequest) (pod.CreateOrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pod.CreateOrderResult), args.Error(1)
}

func (m *MockAdapter) GetOrderStatus(ctx context.Context, externalID string) (pod.OrderStatusResult, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(pod.OrderStatusResult), args.Error(1)
}

func (m *MockAdapter) CancelOrder(ctx context.Context, externalID string) (pod.CancelResult, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(pod.CancelResult), args.Error(1)
}

func (m *MockAdapter) ParseWebhook(ctx context.Context, signature string, body []byte) (pod.WebhookUpdate, error) {
	args := m.Called(ctx, signature, body)
	return args.Get(0).(pod.WebhookUpdate), args.Error(1)
}

// stubRegistry serves a fixed adapter set in registration order
type stubRegistry struct {
	adapters []pod.ProviderAdapter
}

func (r *stubRegistry) Get(code pod.ProviderCode) (pod.ProviderAdapter, error) {
	for _, a := range r.adapters {
		if a.Code() == code {
			return a, nil
		}
	}
	return nil, shared.NewDomainError("UNKNOWN_PROVIDER", "No adapter registered for "+code.String())
}

func (r *stubRegistry) All() []pod.ProviderAdapter {
	return r.adapters
}

func (r *stubRegistry) Codes() []pod.ProviderCode {
	codes := make([]pod.ProviderCode, 0, len(r.adapters))
	for _, a := range r.adapters {
		codes = append(codes, a.Code())
	}
	return codes
}

func testSpec(id string) pod.PrintSpec {
	return pod.PrintSpec{
		ID:          id,
		ProductType: pod.ProductTypeBook,
		Trim:        pod.TrimSize{WidthIn: 6, HeightIn: 9},
		PageCount:   200,
		Binding:     pod.BindingPerfect,
		Paper:       pod.Paper60lbWhite,
		ColorSpace:  pod.ColorSpaceCMYK,
		CoverFinish: pod.CoverFinishMatte,

		InteriorPDFURL: "https://storage.example.com/books/1/interior.pdf",
		CoverPDFURL:    "https://storage.example.com/books/1/cover.pdf",
	}
}

func testAddress() pod.ShippingAddress {
	return pod.ShippingAddress{
		Name:        "Jamie Reed",
		Street1:     "812 Alder St",
		City:        "Portland",
		State:       "OR",
		PostalCode:  "97204",
		CountryCode: "US",
	}
}

func fulfillmentConfig() config.FulfillmentConfig {
	return config.FulfillmentConfig{
		QuoteTimeout:       2 * time.Second,
		SubmitTimeout:      2 * time.Second,
		FallbackEnabled:    true,
		SubmissionGuardTTL: time.Minute,
		StatusTimeout:      2 * time.Second,
	}
}

func pipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Enabled:           true,
		Workers:           2,
		JobsPerSecond:     10,
		MaxAttempts:       3,
		JobTimeout:        time.Minute,
		QueuePollInterval: time.Second,
	}
}

// fulfillmentMocks bundles the repositories behind a fulfillment service
type fulfillmentMocks struct {
	orders  *MockOrderRepository
	specs   *MockSpecRepository
	guard   *MockSubmissionGuard
	adapter *MockAdapter
}

func newFulfillmentService(t *testing.T) (*fulfillment.Service, *fulfillmentMocks) {
	t.Helper()
	m := &fulfillmentMocks{
		orders:  new(MockOrderRepository),
		specs:   new(MockSpecRepository),
		guard:   new(MockSubmissionGuard),
		adapter: newMockAdapter(pod.ProviderLulu),
	}
	registry := &stubRegistry{adapters: []pod.ProviderAdapter{m.adapter}}
	svc := fulfillment.NewService(m.orders, m.specs, new(MockRenditionRepository),
		registry, m.guard, fulfillmentConfig(), zap.NewNop())
	return svc, m
}

func pendingOrder(t *testing.T, provider pod.ProviderCode) *pod.PrintOrder {
	t.Helper()
	order, err := pod.NewPrintOrder(testSpec("spec-1"), 2, testAddress(), pod.ShippingGround, provider)
	require.NoError(t, err)
	order.ClearDomainEvents()
	return order
}

// newTestRouter builds a minimal engine with one registrar mounted, matching
// how the real router mounts handlers
func newTestRouter(registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	registrar.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func performJSON(t *testing.T, engine *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func jsonBody(raw string) *bytes.Buffer {
	return bytes.NewBufferString(raw)
}

func performRaw(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
