// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

const (
	maxProductImages = 3
	productFolder    = "products"
)

type ProductService struct {
	db        *gorm.DB
	images    ImageStore
	publisher events.Publisher
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=255"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"required,max=100"`
}

// UpdateProductRequest only changes the fields that are set.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Search   string           `json:"search,omitempty"`
	Category string           `json:"category,omitempty"`
	PriceMin *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax *decimal.Decimal `json:"price_max,omitempty"`
	InStock  *bool            `json:"in_stock,omitempty"`
}

type ProductDeletedPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
}

func NewProductService(db *gorm.DB, images ImageStore, publisher events.Publisher) *ProductService {
	return &ProductService{
		db:        db,
		images:    images,
		publisher: publisher,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest, images []ImageFile) (*models.Product, error) {
	// Validate request
	if err := utils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if len(images) < 1 || len(images) > maxProductImages {
		return nil, apperror.Validation(apperror.CodeInvalidImages, "between 1 and 3 images are required")
	}

	urls, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		Images:      urls,
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		s.deleteImages(ctx, urls)
		return nil, apperror.Internal("failed to create product", err)
	}

	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeProductNotFound, "product not found")
		}
		return nil, apperror.Internal("failed to load product", err)
	}
	return &product, nil
}

// UpdateProduct applies the set fields. New images replace the old set, and
// the replaced files are removed once the update is stored.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, images []ImageFile) (*models.Product, error) {
	// Validate request
	if err := utils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if len(images) > maxProductImages {
		return nil, apperror.Validation(apperror.CodeInvalidImages, "at most 3 images are allowed")
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}

	var replaced models.ImageList
	if len(images) > 0 {
		urls, err := s.uploadImages(ctx, images)
		if err != nil {
			return nil, err
		}
		replaced = product.Images
		updates["images"] = urls
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
			if urls, ok := updates["images"].(models.ImageList); ok {
				s.deleteImages(ctx, urls)
			}
			return nil, apperror.Internal("failed to update product", err)
		}
	}
	s.deleteImages(ctx, replaced)

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the product together with every cart line, wishlist
// entry and review that points at it. Orders keep their snapshots.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.WishlistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(product).Error
	})
	if err != nil {
		return apperror.Internal("failed to delete product", err)
	}

	s.deleteImages(ctx, product.Images)

	publishEvent(ctx, s.publisher, events.New(events.ProductDeleted, id.String(), ProductDeletedPayload{
		ProductID: id,
		Name:      product.Name,
	}))
	return nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	// Apply filters
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}
	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}
	if params.InStock != nil {
		if *params.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count products", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "name", "price", "average_rating", "stock"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, apperror.Internal("failed to fetch products", err)
	}

	return products, total, nil
}

func (s *ProductService) uploadImages(ctx context.Context, images []ImageFile) (models.ImageList, error) {
	urls := make(models.ImageList, 0, len(images))
	for _, image := range images {
		result, err := s.images.Upload(ctx, productFolder, image)
		if err != nil {
			s.deleteImages(ctx, urls)
			return nil, err
		}
		urls = append(urls, result.URL)
	}
	return urls, nil
}

// deleteImages is best effort; a leftover file never fails the request.
func (s *ProductService) deleteImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.images.Delete(ctx, url); err != nil {
			logrus.WithError(err).WithField("url", url).Warn("Failed to delete product image")
		}
	}
}
