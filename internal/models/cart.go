// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
)

type Cart struct {
	BaseModel
	OwnerID uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;uniqueIndex"`
	Items   []CartItem `json:"items" gorm:"foreignKey:CartID"`
}

type CartItem struct {
	Record
	CartID    uuid.UUID `json:"cart_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product;index"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
