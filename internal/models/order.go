// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	ShippingAddress ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentResult   PaymentResult   `json:"payment_result" gorm:"embedded;embeddedPrefix:payment_"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ShippedAt       *time.Time      `json:"shipped_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// OrderItem fields are copied from the product when the order is placed and
// never follow later product edits.
type OrderItem struct {
	Record
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string          `json:"name" gorm:"size:255;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Image     string          `json:"image" gorm:"type:text"`
}

type ShippingAddress struct {
	FullName      string `json:"full_name" gorm:"size:255" validate:"required"`
	StreetAddress string `json:"street_address" gorm:"size:255" validate:"required"`
	City          string `json:"city" gorm:"size:100" validate:"required"`
	State         string `json:"state" gorm:"size:100" validate:"required"`
	ZipCode       string `json:"zip_code" gorm:"size:20" validate:"required"`
	PhoneNumber   string `json:"phone_number" gorm:"size:50" validate:"required"`
}

// PaymentResult is stored as received from the payment provider.
type PaymentResult struct {
	ID     string `json:"id" gorm:"size:255"`
	Status string `json:"status" gorm:"size:50"`
}

// Contains reports whether any line of the order references productID.
func (o *Order) Contains(productID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
