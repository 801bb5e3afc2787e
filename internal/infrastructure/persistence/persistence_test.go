package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/preflight"
)

// setupTestDB opens an in-memory SQLite database with the fulfillment schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	return db
}

func testSpec(id string) *pod.PrintSpec {
	return &pod.PrintSpec{
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

func testWireOSpec(id string) *pod.PrintSpec {
	spec := testSpec(id)
	spec.ProductType = pod.ProductTypeNotebook
	spec.Binding = pod.BindingWireO
	spec.PageCount = 120
	spec.Spiral = &pod.SpiralGeometry{WirePitch: preflight.WirePitch2to1}
	return spec
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

// seedOrder persists a spec and a pending order referencing it
func seedOrder(t *testing.T, db *gorm.DB, specID string) *pod.PrintOrder {
	t.Helper()
	ctx := context.Background()

	spec := testSpec(specID)
	require.NoError(t, NewGormSpecRepository(db).Save(ctx, spec))

	order, err := pod.NewPrintOrder(*spec, 2, testAddress(), pod.ShippingGround, pod.ProviderLulu)
	require.NoError(t, err)
	require.NoError(t, NewGormOrderRepository(db).Save(ctx, order))

	return order
}
