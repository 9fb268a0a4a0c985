// internal/models/user.go
package models

import (
	"github.com/google/uuid"
)

// User mirrors an identity-provider account locally so carts, orders and
// reviews can reference it by id.
type User struct {
	BaseModel
	Subject  string `json:"-" gorm:"uniqueIndex;size:255;not null"`
	Email    string `json:"email" gorm:"size:255;not null"`
	Name     string `json:"name" gorm:"size:255"`
	ImageURL string `json:"image_url" gorm:"type:text"`
	Role     Role   `json:"role" gorm:"type:varchar(20);not null;default:'customer'"`

	// Relationships
	Addresses []Address `json:"addresses,omitempty" gorm:"foreignKey:UserID"`
}

type Address struct {
	Record
	UserID        uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Label         string    `json:"label" gorm:"size:100;not null"`
	FullName      string    `json:"full_name" gorm:"size:255;not null"`
	StreetAddress string    `json:"street_address" gorm:"size:255;not null"`
	City          string    `json:"city" gorm:"size:100;not null"`
	State         string    `json:"state" gorm:"size:100;not null"`
	ZipCode       string    `json:"zip_code" gorm:"size:20;not null"`
	PhoneNumber   string    `json:"phone_number" gorm:"size:50;not null"`
	IsDefault     bool      `json:"is_default" gorm:"default:false"`
}

type WishlistItem struct {
	Record
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product;index"`

	// Relationships
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
