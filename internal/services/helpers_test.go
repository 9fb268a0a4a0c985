package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, event := range p.events {
		types[i] = event.Type
	}
	return types
}

func testShippingAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:      "Ada Lovelace",
		StreetAddress: "12 Analytical Row",
		City:          "London",
		State:         "Greater London",
		ZipCode:       "N1 9GU",
		PhoneNumber:   "+44 20 7946 0000",
	}
}

func orderRequest(total string, items ...OrderItemRequest) *CreateOrderRequest {
	return &CreateOrderRequest{
		Items:           items,
		ShippingAddress: testShippingAddress(),
		PaymentResult:   models.PaymentResult{ID: "pay_123", Status: "succeeded"},
		TotalPrice:      decimal.RequireFromString(total),
	}
}

// placeDeliveredOrder creates an order for product and marks it delivered.
func placeDeliveredOrder(t *testing.T, db *gorm.DB, principal models.Principal, product *models.Product) *models.Order {
	t.Helper()
	orders := NewOrderService(db, NewInventoryLedger(db), nil)
	ctx := context.Background()

	order, err := orders.CreateOrder(ctx, principal, orderRequest(product.Price.String(),
		OrderItemRequest{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	order, err = orders.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	return order
}
