package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/testutil"
)

func TestTryReserveDecrementsStock(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "mug", "12.50", 5)

	res, err := ledger.TryReserve(context.Background(), product.ID, 2)

	require.NoError(t, err)
	assert.Equal(t, product.ID, res.ProductID)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, 3, res.RemainingStock)
	assert.Equal(t, 3, testutil.StockOf(t, db, product.ID))
}

func TestTryReserveInsufficientStockLeavesStockUntouched(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "lamp", "40.00", 2)

	_, err := ledger.TryReserve(context.Background(), product.ID, 3)

	require.Error(t, err)
	appErr := apperror.From(err)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, StockShortage{ProductID: product.ID, Requested: 3, Available: 2}, appErr.Details)
	assert.Equal(t, 2, testutil.StockOf(t, db, product.ID))
}

func TestTryReserveUnknownProduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)

	_, err := ledger.TryReserve(context.Background(), uuid.New(), 1)

	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestTryReserveDeletedProduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "retired", "5.00", 10)
	require.NoError(t, db.Delete(product).Error)

	_, err := ledger.TryReserve(context.Background(), product.ID, 1)

	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestTryReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "pen", "1.00", 10)

	for _, qty := range []int{0, -1} {
		_, err := ledger.TryReserve(context.Background(), product.ID, qty)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity), "quantity %d", qty)
	}
	assert.Equal(t, 10, testutil.StockOf(t, db, product.ID))
}

func TestReleaseRestoresStock(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "plate", "8.00", 4)
	ctx := context.Background()

	_, err := ledger.TryReserve(ctx, product.ID, 4)
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, product.ID, 4))

	assert.Equal(t, 4, testutil.StockOf(t, db, product.ID))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	product := testutil.CreateProduct(t, db, "limited", "99.00", 3)

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.TryReserve(context.Background(), product.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.HasCode(err, apperror.CodeInsufficientStock):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, buyers-3, conflicts)
	assert.Equal(t, 0, testutil.StockOf(t, db, product.ID))
}

func TestStockNeverNegativeProperty(t *testing.T) {
	db := testutil.NewTestDB(t)
	ledger := NewInventoryLedger(db)
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.IntRange(0, 20).Draw(t, "initial")
		product := &models.Product{
			Name:        "prop",
			Description: "property product",
			Price:       decimal.NewFromInt(1),
			Stock:       initial,
			Category:    "test",
		}
		if err := db.Create(product).Error; err != nil {
			t.Fatalf("create product: %v", err)
		}

		expected := initial
		reserved := 0
		steps := rapid.IntRange(1, 25).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			qty := rapid.IntRange(1, 6).Draw(t, "qty")
			if reserved >= qty && rapid.Bool().Draw(t, "release") {
				if err := ledger.Release(ctx, product.ID, qty); err != nil {
					t.Fatalf("release: %v", err)
				}
				reserved -= qty
				expected += qty
				continue
			}

			_, err := ledger.TryReserve(ctx, product.ID, qty)
			if expected >= qty {
				if err != nil {
					t.Fatalf("reserve %d of %d: %v", qty, expected, err)
				}
				reserved += qty
				expected -= qty
			} else if !apperror.HasCode(err, apperror.CodeInsufficientStock) {
				t.Fatalf("reserve %d of %d: expected insufficient stock, got %v", qty, expected, err)
			}

			stock, err := ledger.Stock(ctx, product.ID)
			if err != nil {
				t.Fatalf("stock: %v", err)
			}
			if stock < 0 || stock != expected {
				t.Fatalf("stock %d, expected %d", stock, expected)
			}
		}
	})
}
