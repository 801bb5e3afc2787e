package pod

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printcore/backend/internal/domain/shared/valueobject"
)

func usd(t *testing.T, s string) valueobject.Money {
	t.Helper()
	amount, err := decimal.NewFromString(s)
	require.NoError(t, err)
	m, err := valueobject.NewMoney(amount, valueobject.USD)
	require.NoError(t, err)
	return m
}

func TestCostBreakdownLanded(t *testing.T) {
	cost := CostBreakdown{
		UnitCost: usd(t, "4.50"),
		Shipping: usd(t, "3.99"),
		Handling: usd(t, "0.50"),
		Tax:      usd(t, "0.45"),
		Total:    usd(t, "9.95"),
	}
	assert.True(t, cost.Landed().Equals(usd(t, "13.94")))
}

func TestQuoteExpiry(t *testing.T) {
	now := time.Now()

	q := Quote{Provider: ProviderLulu, Available: true, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, q.IsExpired(now))
	assert.True(t, q.IsExpired(now.Add(2*time.Hour)))

	t.Run("zero expiry never expires", func(t *testing.T) {
		q := Quote{Provider: ProviderPeecho, Available: true}
		assert.False(t, q.IsExpired(now.Add(24*365*time.Hour)))
	})
}

func TestQuoteTotalLeadDays(t *testing.T) {
	q := Quote{ProductionDays: 3, ShippingDays: 5}
	assert.Equal(t, 8, q.TotalLeadDays())
}

func TestNewUnavailableQuote(t *testing.T) {
	q := NewUnavailableQuote(ProviderPeecho, "trim size not supported")
	assert.False(t, q.Available)
	assert.Equal(t, ProviderPeecho, q.Provider)
	assert.Equal(t, "trim size not supported", q.UnavailableReason)
}

func TestQuoteRequestValidate(t *testing.T) {
	req := QuoteRequest{
		Spec:          validSpec(),
		Quantity:      1,
		Destination:   validAddress(),
		ShippingLevel: ShippingGround,
	}
	require.NoError(t, req.Validate())

	bad := req
	bad.Quantity = 0
	assert.Error(t, bad.Validate())

	bad = req
	bad.ShippingLevel = "TELEPORT"
	assert.Error(t, bad.Validate())
}
