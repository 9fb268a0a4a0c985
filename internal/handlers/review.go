// internal/handlers/review.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// POST /reviews
func (h *ReviewHandler) UpsertReview(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req services.UpsertReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.reviewService.UpsertReview(c.Request.Context(), principal, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, utils.APIResponse{
		Success: true,
		Data:    result,
		Meta:    gin.H{"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyReviewSaved)},
	})
}

// DELETE /reviews/:reviewId
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "reviewId", "review")
	if !ok {
		return
	}

	summary, err := h.reviewService.DeleteReview(c.Request.Context(), principal, reviewID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyReviewDeleted, summary)
}

// GET /products/:id/reviews
func (h *ReviewHandler) ListProductReviews(c *gin.Context) {
	productID, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListForProduct(c.Request.Context(), productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, reviews)
}
