// internal/services/inventory_ledger.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
)

// InventoryLedger owns products.stock. Every decrement is a single
// conditional UPDATE, so concurrent reservations can never drive stock below
// zero.
type InventoryLedger struct {
	db *gorm.DB
}

// Reservation records a successful decrement. RemainingStock is read after
// the update and is informational only.
type Reservation struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	RemainingStock int       `json:"remaining_stock"`
}

// StockShortage is attached to INSUFFICIENT_STOCK errors.
type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

func NewInventoryLedger(db *gorm.DB) *InventoryLedger {
	return &InventoryLedger{db: db}
}

func (l *InventoryLedger) TryReserve(ctx context.Context, productID uuid.UUID, quantity int) (res Reservation, err error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.TryReserve")
	span.SetAttributes(
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	)
	defer func() { endSpan(span, err) }()

	if quantity < 1 {
		return Reservation{}, apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be at least 1")
	}

	result := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return Reservation{}, apperror.Internal("failed to reserve stock", result.Error)
	}

	if result.RowsAffected == 0 {
		available, err := l.Stock(ctx, productID)
		if err != nil {
			return Reservation{}, err
		}
		return Reservation{}, insufficientStock(productID, quantity, available)
	}

	res = Reservation{ProductID: productID, Quantity: quantity}
	if remaining, err := l.Stock(ctx, productID); err == nil {
		res.RemainingStock = remaining
	}
	return res, nil
}

// Release returns quantity units to the product. A product deleted since the
// reservation is skipped.
func (l *InventoryLedger) Release(ctx context.Context, productID uuid.UUID, quantity int) (err error) {
	ctx, span := tracer.Start(ctx, "InventoryLedger.Release")
	span.SetAttributes(
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	)
	defer func() { endSpan(span, err) }()

	if quantity < 1 {
		return apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be at least 1")
	}

	if err := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error; err != nil {
		return apperror.Internal("failed to release stock", err)
	}
	return nil
}

func (l *InventoryLedger) Stock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperror.NotFound(apperror.CodeProductNotFound, "product not found")
		}
		return 0, apperror.Internal("failed to read stock", err)
	}
	return product.Stock, nil
}

func insufficientStock(productID uuid.UUID, requested, available int) *apperror.Error {
	return apperror.Conflict(
		apperror.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested),
	).WithDetails(StockShortage{ProductID: productID, Requested: requested, Available: available})
}
