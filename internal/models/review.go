// internal/models/review.go
package models

import (
	"github.com/google/uuid"
)

// Review is unique per (product, user); submitting again updates the same row.
type Review struct {
	Record
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user;index"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	Rating    int       `json:"rating" gorm:"not null"`
}
