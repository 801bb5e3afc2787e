package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/domain/shared"
	"github.com/printcore/backend/internal/domain/shared/valueobject"
	"github.com/printcore/backend/internal/infrastructure/config"
	"go.uber.org/zap"
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

// MockAdapter is a mock provider adapter. Code and capability are plain
// fields since they are pure functions the orchestrator calls freely.
type MockAdapter struct {
	mock.Mock
	code     pod.ProviderCode
	supports bool
}

func newMockAdapter(code pod.ProviderCode, supports bool) *MockAdapter {
	return &MockAdapter{code: code, supports: supports}
}

func (m *MockAdapter) Code() pod.ProviderCode { return m.code }

func (m *MockAdapter) SupportsSpec(spec pod.PrintSpec) bool { return m.supports }

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

func testQuoteRequest() pod.QuoteRequest {
	return pod.QuoteRequest{
		Spec:          testSpec("spec-1"),
		Quantity:      2,
		Destination:   testAddress(),
		ShippingLevel: pod.ShippingGround,
	}
}

func availableQuote(provider pod.ProviderCode, total, shipping float64, prodDays, shipDays int) pod.Quote {
	return pod.Quote{
		Provider:       provider,
		Available:      true,
		Cost: pod.CostBreakdown{
			Total:    valueobject.NewMoneyUSDFromFloat(total),
			Shipping: valueobject.NewMoneyUSDFromFloat(shipping),
		},
		ProductionDays: prodDays,
		ShippingDays:   shipDays,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
}

func testConfig() config.FulfillmentConfig {
	return config.FulfillmentConfig{
		QuoteTimeout:       2 * time.Second,
		SubmitTimeout:      2 * time.Second,
		FallbackEnabled:    true,
		SubmissionGuardTTL: time.Minute,
		StatusTimeout:      2 * time.Second,
	}
}

type serviceMocks struct {
	orders     *MockOrderRepository
	specs      *MockSpecRepository
	renditions *MockRenditionRepository
	guard      *MockSubmissionGuard
}

func newTestService(cfg config.FulfillmentConfig, adapters ...pod.ProviderAdapter) (*Service, *serviceMocks) {
	m := &serviceMocks{
		orders:     new(MockOrderRepository),
		specs:      new(MockSpecRepository),
		renditions: new(MockRenditionRepository),
		guard:      new(MockSubmissionGuard),
	}
	svc := NewService(m.orders, m.specs, m.renditions, &stubRegistry{adapters: adapters}, m.guard, cfg, zap.NewNop())
	return svc, m
}

func pendingOrder(t *testing.T, provider pod.ProviderCode) *pod.PrintOrder {
	t.Helper()
	order, err := pod.NewPrintOrder(testSpec("spec-1"), 2, testAddress(), pod.ShippingGround, provider)
	require.NoError(t, err)
	order.ClearDomainEvents()
	return order
}

func submittedOrder(t *testing.T, provider pod.ProviderCode, externalID string) *pod.PrintOrder {
	t.Helper()
	order := pendingOrder(t, provider)
	require.NoError(t, order.MarkSubmitted(externalID))
	order.ClearDomainEvents()
	return order
}

func TestGetAllQuotes_ExcludesUnsupportedProviders(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, false)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 20, 5, 3, 4), nil)

	resp, err := svc.GetAllQuotes(context.Background(), testQuoteRequest())
	require.NoError(t, err)

	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, pod.ProviderLulu, resp.Quotes[0].Provider)
	assert.Empty(t, resp.Unavailable)
	peecho.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestGetAllQuotes_SortsByLandedCost(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	// Lulu is cheaper on goods but loses on landed cost once shipping counts
	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 18, 9, 3, 4), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderPeecho, 20, 5, 5, 6), nil)

	resp, err := svc.GetAllQuotes(context.Background(), testQuoteRequest())
	require.NoError(t, err)

	require.Len(t, resp.Quotes, 2)
	assert.Equal(t, pod.ProviderPeecho, resp.Quotes[0].Provider)
	assert.Equal(t, pod.ProviderLulu, resp.Quotes[1].Provider)
}

func TestGetAllQuotes_ProviderErrorBecomesUnavailable(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 20, 5, 3, 4), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(pod.Quote{}, pod.ErrProviderUnavailable)

	resp, err := svc.GetAllQuotes(context.Background(), testQuoteRequest())
	require.NoError(t, err)

	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, pod.ProviderLulu, resp.Quotes[0].Provider)
	require.Len(t, resp.Unavailable, 1)
	assert.Equal(t, pod.ProviderPeecho, resp.Unavailable[0].Provider)
	assert.Contains(t, resp.Unavailable[0].UnavailableReason, "provider unavailable")
}

func TestGetAllQuotes_InvalidRequest(t *testing.T) {
	svc, _ := newTestService(testConfig(), newMockAdapter(pod.ProviderLulu, true))

	req := testQuoteRequest()
	req.Quantity = 0

	_, err := svc.GetAllQuotes(context.Background(), req)
	assert.Error(t, err)
}

func TestGetAllQuotes_FailedRenditionBlocksQuoting(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	rend, err := rendition.NewRendition(uuid.New(), 1, rendition.DefaultMaxAttempts)
	require.NoError(t, err)
	rend.Status = rendition.RenditionFailed

	m.renditions.On("FindByID", mock.Anything, rend.ID).Return(rend, nil)

	req := testQuoteRequest()
	renditionID := rend.ID
	req.RenditionID = &renditionID

	_, err = svc.GetAllQuotes(context.Background(), req)
	assert.ErrorIs(t, err, ErrRenditionNotQuotable)
	lulu.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
}

func TestGetAllQuotes_ReadyRendition(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	rend, err := rendition.NewRendition(uuid.New(), 1, rendition.DefaultMaxAttempts)
	require.NoError(t, err)
	rend.Status = rendition.RenditionReady

	m.renditions.On("FindByID", mock.Anything, rend.ID).Return(rend, nil)
	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 20, 5, 3, 4), nil)

	req := testQuoteRequest()
	renditionID := rend.ID
	req.RenditionID = &renditionID

	resp, err := svc.GetAllQuotes(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Quotes, 1)
}

func TestGetBestQuote_CostAxis(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 30, 5, 2, 2), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderPeecho, 20, 5, 5, 6), nil)

	quote, err := svc.GetBestQuote(context.Background(), testQuoteRequest(), pod.QuotePreference{Optimize: pod.OptimizeCost})
	require.NoError(t, err)
	assert.Equal(t, pod.ProviderPeecho, quote.Provider)
}

func TestGetBestQuote_SpeedAxis(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 30, 5, 2, 2), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderPeecho, 20, 5, 5, 6), nil)

	quote, err := svc.GetBestQuote(context.Background(), testQuoteRequest(), pod.QuotePreference{Optimize: pod.OptimizeSpeed})
	require.NoError(t, err)
	assert.Equal(t, pod.ProviderLulu, quote.Provider)
}

func TestGetBestQuote_PreferredProviderWithinTolerance(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	// Lulu lands at 26.00 against Peecho's 25.00, inside the 10% band
	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 21, 5, 3, 4), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderPeecho, 20, 5, 3, 4), nil)

	quote, err := svc.GetBestQuote(context.Background(), testQuoteRequest(), pod.QuotePreference{
		Optimize:          pod.OptimizeCost,
		PreferredProvider: pod.ProviderLulu,
	})
	require.NoError(t, err)
	assert.Equal(t, pod.ProviderLulu, quote.Provider)
}

func TestGetBestQuote_PreferredProviderOutsideTolerance(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, _ := newTestService(testConfig(), lulu, peecho)

	// Lulu lands at 40.00 against Peecho's 25.00, far outside the band
	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderLulu, 35, 5, 3, 4), nil)
	peecho.On("GetQuote", mock.Anything, mock.Anything).Return(availableQuote(pod.ProviderPeecho, 20, 5, 3, 4), nil)

	quote, err := svc.GetBestQuote(context.Background(), testQuoteRequest(), pod.QuotePreference{
		Optimize:          pod.OptimizeCost,
		PreferredProvider: pod.ProviderLulu,
	})
	require.NoError(t, err)
	assert.Equal(t, pod.ProviderPeecho, quote.Provider)
}

func TestGetBestQuote_NoQuotes(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, _ := newTestService(testConfig(), lulu)

	lulu.On("GetQuote", mock.Anything, mock.Anything).Return(pod.Quote{}, pod.ErrProviderUnavailable)

	_, err := svc.GetBestQuote(context.Background(), testQuoteRequest(), pod.QuotePreference{Optimize: pod.OptimizeCost})
	assert.ErrorIs(t, err, ErrNoQuotesAvailable)
}

func TestCreateOrder(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	m.specs.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Spec:          testSpec("spec-1"),
		Quantity:      2,
		Destination:   testAddress(),
		ShippingLevel: pod.ShippingGround,
		Provider:      pod.ProviderLulu,
	})
	require.NoError(t, err)

	assert.Equal(t, pod.StatusPending.String(), resp.Status)
	assert.Equal(t, "spec-1", resp.SpecID)
	m.specs.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

func TestCreateOrder_ExpiredQuote(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	quote := availableQuote(pod.ProviderLulu, 20, 5, 3, 4)
	quote.ExpiresAt = time.Now().Add(-time.Minute)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Spec:          testSpec("spec-1"),
		Quantity:      2,
		Destination:   testAddress(),
		ShippingLevel: pod.ShippingGround,
		Provider:      pod.ProviderLulu,
		Quote:         &quote,
	})
	assert.ErrorIs(t, err, pod.ErrQuoteExpired)
	m.specs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateOrder_FreshQuote(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	m.specs.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.orders.On("Save", mock.Anything, mock.Anything).Return(nil)

	quote := availableQuote(pod.ProviderLulu, 20, 5, 3, 4)

	resp, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Spec:          testSpec("spec-1"),
		Quantity:      2,
		Destination:   testAddress(),
		ShippingLevel: pod.ShippingGround,
		Provider:      pod.ProviderLulu,
		Quote:         &quote,
	})
	require.NoError(t, err)
	assert.Equal(t, pod.StatusPending.String(), resp.Status)
}

func TestCreateOrder_UnknownProvider(t *testing.T) {
	svc, m := newTestService(testConfig(), newMockAdapter(pod.ProviderLulu, true))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Spec:          testSpec("spec-1"),
		Quantity:      1,
		Destination:   testAddress(),
		ShippingLevel: pod.ShippingGround,
		Provider:      pod.ProviderPeecho,
	})
	assert.Error(t, err)
	m.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSubmitOrder_Success(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)
	m.guard.On("Acquire", mock.Anything, guardKeyPrefix+order.ID.String(), time.Minute).Return(true, nil)
	m.guard.On("Release", mock.Anything, guardKeyPrefix+order.ID.String()).Return(nil)

	lulu.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req pod.CreateOrderRequest) bool {
		return req.IdempotencyKey == order.ID.String() && req.Quantity == 2
	})).Return(pod.CreateOrderResult{ExternalID: "lulu-123", Status: pod.StatusSubmitted}, nil)

	resp, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	require.NoError(t, err)

	assert.Equal(t, pod.StatusSubmitted.String(), resp.Order.Status)
	assert.Equal(t, "lulu-123", resp.Order.ExternalID)
	assert.Nil(t, resp.Fallback)
	m.guard.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

func TestSubmitOrder_ConcurrentDuplicateCollapses(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	first := pendingOrder(t, pod.ProviderLulu)
	second := pendingOrder(t, pod.ProviderLulu)
	second.ID = first.ID

	m.orders.On("FindByID", mock.Anything, first.ID).Return(first, nil).Once()
	m.orders.On("FindByID", mock.Anything, first.ID).Return(second, nil).Once()
	m.orders.On("Update", mock.Anything, mock.Anything).Return(nil)

	// Exactly one caller wins the guard
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	m.guard.On("Release", mock.Anything, mock.Anything).Return(nil)

	lulu.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{ExternalID: "lulu-123", Status: pod.StatusSubmitted}, nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: first.ID})
		}()
	}
	wg.Wait()

	lulu.AssertNumberOfCalls(t, "CreateOrder", 1)
	if errs[0] == nil {
		assert.ErrorIs(t, errs[1], pod.ErrSubmissionConflict)
	} else {
		assert.ErrorIs(t, errs[0], pod.ErrSubmissionConflict)
		assert.NoError(t, errs[1])
	}
}

func TestSubmitOrder_PreflightBlocks(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := pendingOrder(t, pod.ProviderLulu)
	rend, err := rendition.NewRendition(uuid.New(), 1, rendition.DefaultMaxAttempts)
	require.NoError(t, err)
	rend.Preflight = preflight.NewResult([]preflight.Issue{{
		Code:     preflight.CodeLowDPI,
		Message:  "Interior images are 110 DPI",
		Severity: preflight.SeverityHigh,
	}}, nil)

	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.renditions.On("FindByID", mock.Anything, rend.ID).Return(rend, nil)

	renditionID := rend.ID
	_, err = svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID, RenditionID: &renditionID})
	assert.ErrorIs(t, err, ErrPreflightBlocked)

	m.guard.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	lulu.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestSubmitOrder_PreflightOverride(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := pendingOrder(t, pod.ProviderLulu)
	rend, err := rendition.NewRendition(uuid.New(), 1, rendition.DefaultMaxAttempts)
	require.NoError(t, err)
	rend.Preflight = preflight.NewResult([]preflight.Issue{{
		Code:     preflight.CodeLowDPI,
		Message:  "Interior images are 110 DPI",
		Severity: preflight.SeverityHigh,
	}}, nil)

	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)
	m.renditions.On("FindByID", mock.Anything, rend.ID).Return(rend, nil)
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	m.guard.On("Release", mock.Anything, mock.Anything).Return(nil)
	lulu.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{ExternalID: "lulu-9", Status: pod.StatusSubmitted}, nil)

	renditionID := rend.ID
	resp, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		OrderID:               order.ID,
		RenditionID:           &renditionID,
		AllowPreflightFailure: true,
	})
	require.NoError(t, err)
	assert.Equal(t, pod.StatusSubmitted.String(), resp.Order.Status)
}

func TestSubmitOrder_FallbackOnVendorFailure(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, m := newTestService(testConfig(), lulu, peecho)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	m.guard.On("Release", mock.Anything, mock.Anything).Return(nil)

	var savedFallback *pod.PrintOrder
	m.orders.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		savedFallback = args.Get(1).(*pod.PrintOrder)
	}).Return(nil)

	lulu.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{}, pod.ErrProviderUnavailable)
	peecho.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{ExternalID: "pcho-42", Status: pod.StatusSubmitted}, nil)

	resp, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	require.NoError(t, err)

	assert.Equal(t, pod.StatusFailed.String(), resp.Order.Status)
	require.NotNil(t, resp.Fallback)
	assert.Equal(t, pod.ProviderPeecho.String(), resp.Fallback.Provider)
	assert.Equal(t, pod.StatusSubmitted.String(), resp.Fallback.Status)
	require.NotNil(t, resp.Fallback.FallbackOf)
	assert.Equal(t, order.ID, *resp.Fallback.FallbackOf)

	require.NotNil(t, savedFallback)
	assert.NotEqual(t, order.ID, savedFallback.ID)
	lulu.AssertNumberOfCalls(t, "CreateOrder", 1)
	peecho.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestSubmitOrder_FallbackDisabled(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	cfg := testConfig()
	cfg.FallbackEnabled = false
	svc, m := newTestService(cfg, lulu, peecho)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	m.guard.On("Release", mock.Anything, mock.Anything).Return(nil)

	lulu.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{}, pod.ErrProviderUnavailable)

	resp, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	require.ErrorIs(t, err, pod.ErrProviderUnavailable)

	assert.Equal(t, pod.StatusFailed.String(), resp.Order.Status)
	assert.Nil(t, resp.Fallback)
	m.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	peecho.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestSubmitOrder_FallbackStopsAfterOneRetry(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	peecho := newMockAdapter(pod.ProviderPeecho, true)
	svc, m := newTestService(testConfig(), lulu, peecho)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, mock.Anything).Return(nil)
	m.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	m.guard.On("Release", mock.Anything, mock.Anything).Return(nil)

	lulu.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{}, pod.ErrProviderUnavailable)
	peecho.On("CreateOrder", mock.Anything, mock.Anything).Return(pod.CreateOrderResult{}, pod.ErrProviderUnavailable)

	resp, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	require.ErrorIs(t, err, pod.ErrProviderUnavailable)

	assert.Equal(t, pod.StatusFailed.String(), resp.Order.Status)
	require.NotNil(t, resp.Fallback)
	assert.Equal(t, pod.StatusFailed.String(), resp.Fallback.Status)
	lulu.AssertNumberOfCalls(t, "CreateOrder", 1)
	peecho.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestSubmitOrder_NotPending(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	assert.Error(t, err)
	m.guard.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_PendingCancelsLocally(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)

	resp, err := svc.CancelOrder(context.Background(), order.ID, "Customer changed their mind")
	require.NoError(t, err)

	assert.True(t, resp.Cancelled)
	assert.Equal(t, pod.StatusCancelled.String(), resp.Order.Status)
	lulu.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestCancelOrder_VendorRefuses(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	lulu.On("CancelOrder", mock.Anything, "lulu-1").Return(pod.CancelResult{Cancelled: false, Message: "Already in production"}, nil)

	resp, err := svc.CancelOrder(context.Background(), order.ID, "Too late")
	require.NoError(t, err)

	assert.False(t, resp.Cancelled)
	assert.Equal(t, "Already in production", resp.Message)
	assert.Equal(t, pod.StatusSubmitted.String(), resp.Order.Status)
	m.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCancelOrder_VendorCancels(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)

	lulu.On("CancelOrder", mock.Anything, "lulu-1").Return(pod.CancelResult{Cancelled: true, Message: "Cancelled before production"}, nil)

	resp, err := svc.CancelOrder(context.Background(), order.ID, "Customer request")
	require.NoError(t, err)

	assert.True(t, resp.Cancelled)
	assert.Equal(t, pod.StatusCancelled.String(), resp.Order.Status)
}

func TestCancelOrder_TerminalOrder(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	_, err := order.ApplyStatus(pod.StatusDelivered, pod.SourceWebhook, "", nil)
	require.NoError(t, err)
	order.ClearDomainEvents()

	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err = svc.CancelOrder(context.Background(), order.ID, "Too late")
	assert.Error(t, err)
}

func TestGetOrderStatus_AppliesVendorUpdate(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.orders.On("Update", mock.Anything, order).Return(nil)

	lulu.On("GetOrderStatus", mock.Anything, "lulu-1").Return(pod.OrderStatusResult{Status: pod.StatusAccepted}, nil)

	resp, err := svc.GetOrderStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, pod.StatusAccepted.String(), resp.Status)
	m.orders.AssertExpectations(t)
}

func TestGetOrderStatus_ServesLastKnownOnLookupFailure(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	lulu.On("GetOrderStatus", mock.Anything, "lulu-1").Return(pod.OrderStatusResult{}, context.DeadlineExceeded)

	resp, err := svc.GetOrderStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, pod.StatusSubmitted.String(), resp.Status)
	m.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestGetOrderStatus_StaleReportKeepsState(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	_, err := order.ApplyStatus(pod.StatusAccepted, pod.SourceWebhook, "", nil)
	require.NoError(t, err)
	order.ClearDomainEvents()

	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	// The stale confirmation still persists LastCheckedAt
	m.orders.On("Update", mock.Anything, order).Return(nil)

	lulu.On("GetOrderStatus", mock.Anything, "lulu-1").Return(pod.OrderStatusResult{Status: pod.StatusSubmitted}, nil)

	resp, err := svc.GetOrderStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, pod.StatusAccepted.String(), resp.Status)
}

func TestGetOrderStatus_TerminalSkipsVendor(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := submittedOrder(t, pod.ProviderLulu, "lulu-1")
	_, err := order.ApplyStatus(pod.StatusDelivered, pod.SourceWebhook, "", nil)
	require.NoError(t, err)
	order.ClearDomainEvents()

	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	resp, err := svc.GetOrderStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, pod.StatusDelivered.String(), resp.Status)
	lulu.AssertNotCalled(t, "GetOrderStatus", mock.Anything, mock.Anything)
}

func TestListOrdersByStatus(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	first := pendingOrder(t, pod.ProviderLulu)
	second := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByStatus", mock.Anything, pod.StatusPending, 10).Return([]*pod.PrintOrder{first, second}, nil)

	responses, err := svc.ListOrdersByStatus(context.Background(), pod.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, first.ID, responses[0].ID)
}

func TestListOrdersByStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(testConfig(), newMockAdapter(pod.ProviderLulu, true))

	_, err := svc.ListOrdersByStatus(context.Background(), pod.OrderStatus("SHIPPED"), 10)
	assert.Error(t, err)
}

func TestSubmitOrder_GuardError(t *testing.T) {
	lulu := newMockAdapter(pod.ProviderLulu, true)
	svc, m := newTestService(testConfig(), lulu)

	order := pendingOrder(t, pod.ProviderLulu)
	m.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	m.guard.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	_, err := svc.SubmitOrder(context.Background(), SubmitOrderRequest{OrderID: order.ID})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, pod.ErrSubmissionConflict)
	lulu.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}
