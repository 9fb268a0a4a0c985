// internal/models/product.go
package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Product struct {
	BaseModel
	Name          string          `json:"name" gorm:"size:255;not null"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock         int             `json:"stock" gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	Category      string          `json:"category" gorm:"size:100;not null;index"`
	Images        ImageList       `json:"images"`
	AverageRating float64         `json:"average_rating" gorm:"default:0"`
	TotalReviews  int64           `json:"total_reviews" gorm:"default:0"`
}

// PrimaryImage is the image copied into order snapshots.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ImageList is stored as a postgres text[] and as array literal text elsewhere.
type ImageList []string

func (l ImageList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *ImageList) Scan(src interface{}) error {
	return (*pq.StringArray)(l).Scan(src)
}

func (ImageList) GormDataType() string {
	return "text"
}

func (ImageList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
