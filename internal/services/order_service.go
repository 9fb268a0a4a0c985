// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

type OrderService struct {
	db        *gorm.DB
	ledger    *InventoryLedger
	publisher events.Publisher
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" validate:"dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentResult   models.PaymentResult   `json:"payment_result"`
	TotalPrice      decimal.Decimal        `json:"total_price" validate:"gte=0"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// OrderView is an order as listed to its owner.
type OrderView struct {
	models.Order
	HasReviewed bool `json:"has_reviewed"`
}

type AdminOrderFilter struct {
	utils.PaginationParams
	Status *models.OrderStatus `json:"status,omitempty"`
}

type OrderCreatedPayload struct {
	OrderID    uuid.UUID          `json:"order_id"`
	UserID     uuid.UUID          `json:"user_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Items      []OrderItemRequest `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID  uuid.UUID          `json:"order_id"`
	UserID   uuid.UUID          `json:"user_id"`
	Previous models.OrderStatus `json:"previous"`
	Status   models.OrderStatus `json:"status"`
}

func NewOrderService(db *gorm.DB, ledger *InventoryLedger, publisher events.Publisher) *OrderService {
	return &OrderService{
		db:        db,
		ledger:    ledger,
		publisher: publisher,
	}
}

// CreateOrder reserves stock for every line and persists the order. It is
// all-or-nothing: a failed reservation or a failed write releases whatever was
// already reserved.
func (s *OrderService) CreateOrder(ctx context.Context, principal models.Principal, req *CreateOrderRequest) (order *models.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	span.SetAttributes(
		attribute.String("user.id", principal.UserID.String()),
		attribute.Int("order.lines", len(req.Items)),
	)
	defer func() { endSpan(span, err) }()

	// Validate request
	if len(req.Items) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyOrder, "order has no items")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be at least 1").
				WithDetails(map[string]interface{}{"product_id": item.ProductID})
		}
	}
	if err := utils.ValidateRequest(req); err != nil {
		return nil, err
	}

	products, err := s.prevalidate(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	// Reserve stock line by line
	reservations := make([]Reservation, 0, len(req.Items))
	for _, item := range req.Items {
		res, err := s.ledger.TryReserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.releaseAll(ctx, reservations)
			return nil, err
		}
		reservations = append(reservations, res)
	}

	order = &models.Order{
		UserID:          principal.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentResult:   req.PaymentResult,
		TotalPrice:      req.TotalPrice,
		Status:          models.OrderStatusPending,
		Items:           make([]models.OrderItem, 0, len(req.Items)),
	}
	computed := decimal.Zero
	for _, item := range req.Items {
		product := products[item.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Image:     product.PrimaryImage(),
		})
		computed = computed.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !computed.Equal(req.TotalPrice) {
		logrus.WithFields(logrus.Fields{
			"user_id":        principal.UserID,
			"client_total":   req.TotalPrice.String(),
			"computed_total": computed.String(),
		}).Warn("Order total differs from catalog prices")
	}

	// Persist order and items together
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		s.releaseAll(ctx, reservations)
		return nil, apperror.Internal("failed to create order", err)
	}

	publishEvent(ctx, s.publisher, events.New(events.OrderCreated, order.ID.String(), OrderCreatedPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      req.Items,
	}))

	return order, nil
}

// prevalidate checks every line before any stock is touched. The stock check
// is advisory; the reservation is authoritative.
func (s *OrderService) prevalidate(ctx context.Context, items []OrderItemRequest) (map[uuid.UUID]*models.Product, error) {
	requested := make(map[uuid.UUID]int, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	var found []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperror.Internal("failed to load products", err)
	}

	products := make(map[uuid.UUID]*models.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			return nil, apperror.NotFound(apperror.CodeProductNotFound, "product not found").
				WithDetails(map[string]interface{}{"product_id": id})
		}
		if product.Stock < requested[id] {
			return nil, insufficientStock(id, requested[id], product.Stock)
		}
	}
	return products, nil
}

func (s *OrderService) releaseAll(ctx context.Context, reservations []Reservation) {
	// Compensation must run even if the request was cancelled.
	ctx = context.WithoutCancel(ctx)
	for _, res := range reservations {
		if err := s.ledger.Release(ctx, res.ProductID, res.Quantity); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"product_id": res.ProductID,
				"quantity":   res.Quantity,
			}).Error("Failed to release reserved stock")
		}
	}
}

// UpdateStatus moves an order to status. shipped_at and delivered_at keep
// the first time the order reached that status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidStatus, "status must be pending, shipped or delivered")
	}

	var previous models.OrderStatus
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		previous = order.Status

		now := time.Now().UTC()
		updates := map[string]interface{}{"status": status}
		if status == models.OrderStatusShipped && order.ShippedAt == nil {
			updates["shipped_at"] = now
		}
		if status == models.OrderStatusDelivered && order.DeliveredAt == nil {
			updates["delivered_at"] = now
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeOrderNotFound, "order not found")
		}
		return nil, apperror.Internal("failed to update order status", err)
	}

	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, apperror.Internal("failed to load order", err)
	}

	publishEvent(ctx, s.publisher, events.New(events.OrderStatusChanged, order.ID.String(), OrderStatusChangedPayload{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Previous: previous,
		Status:   order.Status,
	}))

	return &order, nil
}

// ListForPrincipal returns the principal's orders newest first, each flagged
// with whether the principal already reviewed anything from it.
func (s *OrderService) ListForPrincipal(ctx context.Context, principal models.Principal) ([]OrderView, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", principal.UserID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, apperror.Internal("failed to fetch orders", err)
	}

	views := make([]OrderView, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	var reviewed []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("order_id IN ?", ids).
		Distinct().
		Pluck("order_id", &reviewed).Error; err != nil {
		return nil, apperror.Internal("failed to fetch reviews", err)
	}

	reviewedSet := make(map[uuid.UUID]struct{}, len(reviewed))
	for _, id := range reviewed {
		reviewedSet[id] = struct{}{}
	}
	for i := range orders {
		_, ok := reviewedSet[orders[i].ID]
		views[i] = OrderView{Order: orders[i], HasReviewed: ok}
	}
	return views, nil
}

func (s *OrderService) Get(ctx context.Context, principal models.Principal, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeOrderNotFound, "order not found")
		}
		return nil, apperror.Internal("failed to load order", err)
	}

	if order.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperror.Forbidden("order belongs to another user")
	}
	return &order, nil
}

// ListAll is the admin listing across every customer.
func (s *OrderService) ListAll(ctx context.Context, filter AdminOrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count orders", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "total_price", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var orders []models.Order
	if err := query.Preload("Items").
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email") }).
		Find(&orders).Error; err != nil {
		return nil, 0, apperror.Internal("failed to fetch orders", err)
	}

	return orders, total, nil
}
