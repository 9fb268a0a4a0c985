// internal/services/review_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/models"
)

// ReviewService accepts ratings only from buyers whose order containing the
// product was delivered, and keeps products.average_rating and
// products.total_reviews in step with the reviews table.
type ReviewService struct {
	db        *gorm.DB
	publisher events.Publisher
}

type UpsertReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	OrderID   uuid.UUID `json:"order_id" binding:"required"`
	Rating    int       `json:"rating"`
}

type RatingSummary struct {
	ProductID     uuid.UUID `json:"product_id"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int64     `json:"total_reviews"`
}

type ReviewResult struct {
	Review  *models.Review `json:"review"`
	Rating  RatingSummary  `json:"rating"`
	Created bool           `json:"-"`
}

type ReviewPayload struct {
	ReviewID  uuid.UUID     `json:"review_id"`
	ProductID uuid.UUID     `json:"product_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Rating    int           `json:"rating,omitempty"`
	Summary   RatingSummary `json:"summary"`
}

func NewReviewService(db *gorm.DB, publisher events.Publisher) *ReviewService {
	return &ReviewService{db: db, publisher: publisher}
}

// UpsertReview creates the principal's review of productID or replaces its
// rating. Result.Created tells the two apart.
func (s *ReviewService) UpsertReview(ctx context.Context, principal models.Principal, req *UpsertReviewRequest) (result *ReviewResult, err error) {
	ctx, span := tracer.Start(ctx, "ReviewService.UpsertReview")
	span.SetAttributes(
		attribute.String("product.id", req.ProductID.String()),
		attribute.Int("rating", req.Rating),
	)
	defer func() { endSpan(span, err) }()

	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.Validation(apperror.CodeInvalidRating, "rating must be between 1 and 5")
	}

	// Verify the purchase
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeOrderNotFound, "order not found")
		}
		return nil, apperror.Internal("failed to load order", err)
	}
	if order.UserID != principal.UserID {
		return nil, apperror.Forbidden("order belongs to another user")
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, apperror.Validation(apperror.CodeOrderNotDelivered, "order has not been delivered")
	}
	if !order.Contains(req.ProductID) {
		return nil, apperror.Validation(apperror.CodeProductNotInOrder, "product is not part of this order")
	}

	review, created, err := s.writeReview(ctx, principal.UserID, req)
	if err != nil {
		return nil, err
	}

	summary, err := s.recompute(ctx, req.ProductID)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeProductNotFound) {
			// The product vanished while the review was written.
			if delErr := s.db.WithContext(ctx).Delete(review).Error; delErr != nil {
				return nil, apperror.Internal("failed to discard review", delErr)
			}
		}
		return nil, err
	}

	publishEvent(ctx, s.publisher, events.New(events.ReviewUpserted, req.ProductID.String(), ReviewPayload{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Summary:   summary,
	}))

	return &ReviewResult{Review: review, Rating: summary, Created: created}, nil
}

// writeReview updates the existing (product, user) review or creates one. An
// insert that loses a race with a concurrent insert falls back to update.
func (s *ReviewService) writeReview(ctx context.Context, userID uuid.UUID, req *UpsertReviewRequest) (*models.Review, bool, error) {
	var review models.Review
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("product_id = ? AND user_id = ?", req.ProductID, userID).First(&review).Error
		if err == nil {
			return tx.Model(&review).Updates(map[string]interface{}{
				"rating":   req.Rating,
				"order_id": req.OrderID,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		review = models.Review{
			ProductID: req.ProductID,
			UserID:    userID,
			OrderID:   req.OrderID,
			Rating:    req.Rating,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		created = false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ? AND user_id = ?", req.ProductID, userID).First(&review).Error; err != nil {
				return err
			}
			return tx.Model(&review).Updates(map[string]interface{}{
				"rating":   req.Rating,
				"order_id": req.OrderID,
			}).Error
		})
	}
	if err != nil {
		return nil, false, apperror.Internal("failed to save review", err)
	}

	review.Rating = req.Rating
	review.OrderID = req.OrderID
	return &review, created, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, principal models.Principal, reviewID uuid.UUID) (*RatingSummary, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeReviewNotFound, "review not found")
		}
		return nil, apperror.Internal("failed to load review", err)
	}
	if review.UserID != principal.UserID {
		return nil, apperror.Forbidden("review belongs to another user")
	}

	if err := s.db.WithContext(ctx).Delete(&review).Error; err != nil {
		return nil, apperror.Internal("failed to delete review", err)
	}

	summary, err := s.recompute(ctx, review.ProductID)
	if err != nil && !apperror.HasCode(err, apperror.CodeProductNotFound) {
		return nil, err
	}

	publishEvent(ctx, s.publisher, events.New(events.ReviewDeleted, review.ProductID.String(), ReviewPayload{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Summary:   summary,
	}))

	return &summary, nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, apperror.Internal("failed to fetch reviews", err)
	}
	return reviews, nil
}

// recompute rescans every review of the product, so concurrent writers
// converge on the correct aggregate once they settle.
func (s *ReviewService) recompute(ctx context.Context, productID uuid.UUID) (summary RatingSummary, err error) {
	ctx, span := tracer.Start(ctx, "ReviewService.recompute")
	defer func() { endSpan(span, err) }()

	summary.ProductID = productID

	var ratings []int
	if err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ?", productID).
		Pluck("rating", &ratings).Error; err != nil {
		return summary, apperror.Internal("failed to read ratings", err)
	}

	summary.TotalReviews = int64(len(ratings))
	if len(ratings) > 0 {
		sum := 0
		for _, rating := range ratings {
			sum += rating
		}
		summary.AverageRating = float64(sum) / float64(len(ratings))
	}

	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"average_rating": summary.AverageRating,
			"total_reviews":  summary.TotalReviews,
		})
	if result.Error != nil {
		return summary, apperror.Internal("failed to update rating", result.Error)
	}
	if result.RowsAffected == 0 {
		return summary, apperror.NotFound(apperror.CodeProductNotFound, "product not found")
	}
	return summary, nil
}
