// internal/services/cart_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
)

// CartService keeps one cart per principal. Its stock checks are advisory;
// the inventory ledger is only consulted at checkout.
type CartService struct {
	db *gorm.DB
}

type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Stock     int             `json:"stock"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  *int      `json:"quantity,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

func (s *CartService) Get(ctx context.Context, principal models.Principal) (*CartView, error) {
	cart, err := s.ensureCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Add puts productID into the cart. A product already in the cart is bumped
// by exactly one unit regardless of quantity.
func (s *CartService) Add(ctx context.Context, principal models.Principal, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be at least 1")
	}

	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, insufficientStock(product.ID, quantity, product.Stock)
	}

	cart, err := s.ensureCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	err = s.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
	switch {
	case err == nil:
		if err := s.incrementItem(ctx, &item, product); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperror.Internal("failed to add cart item", err)
			}
			// Lost a race with a concurrent add of the same product.
			if err := s.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
				return nil, apperror.Internal("failed to load cart item", err)
			}
			if err := s.incrementItem(ctx, &item, product); err != nil {
				return nil, err
			}
		}
	default:
		return nil, apperror.Internal("failed to load cart item", err)
	}

	return s.view(ctx, cart)
}

func (s *CartService) Update(ctx context.Context, principal models.Principal, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperror.Validation(apperror.CodeInvalidQuantity, "quantity must be at least 1")
	}

	cart, err := s.ensureCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	if err := s.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeItemNotFound, "item not in cart")
		}
		return nil, apperror.Internal("failed to load cart item", err)
	}

	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, insufficientStock(product.ID, quantity, product.Stock)
	}

	if err := s.db.WithContext(ctx).Model(&item).Update("quantity", quantity).Error; err != nil {
		return nil, apperror.Internal("failed to update cart item", err)
	}

	return s.view(ctx, cart)
}

// Remove is idempotent: removing a product that is not in the cart succeeds.
func (s *CartService) Remove(ctx context.Context, principal models.Principal, productID uuid.UUID) (*CartView, error) {
	cart, err := s.ensureCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, apperror.Internal("failed to remove cart item", err)
	}

	return s.view(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, principal models.Principal) (*CartView, error) {
	cart, err := s.ensureCart(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, apperror.Internal("failed to clear cart", err)
	}

	return s.view(ctx, cart)
}

func (s *CartService) ensureCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	db := s.db.WithContext(ctx)

	cart := models.Cart{OwnerID: ownerID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, apperror.Internal("failed to create cart", err)
	}

	var stored models.Cart
	if err := db.Where("owner_id = ?", ownerID).First(&stored).Error; err != nil {
		return nil, apperror.Internal("failed to load cart", err)
	}
	return &stored, nil
}

func (s *CartService) incrementItem(ctx context.Context, item *models.CartItem, product *models.Product) error {
	if product.Stock < item.Quantity+1 {
		return insufficientStock(product.ID, item.Quantity+1, product.Stock)
	}
	if err := s.db.WithContext(ctx).Model(item).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", 1)).Error; err != nil {
		return apperror.Internal("failed to update cart item", err)
	}
	return nil
}

func (s *CartService) findProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeProductNotFound, "product not found")
		}
		return nil, apperror.Internal("failed to load product", err)
	}
	return &product, nil
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, apperror.Internal("failed to load cart items", err)
	}

	view := &CartView{
		ID:       cart.ID,
		OwnerID:  cart.OwnerID,
		Items:    make([]CartLine, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		// Items whose product was deleted are not shown.
		if item.Product == nil {
			continue
		}
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, CartLine{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Image:     item.Product.PrimaryImage(),
			Stock:     item.Product.Stock,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view, nil
}
