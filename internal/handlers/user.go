// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

type WishlistRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), principal.UserID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// GET /users/addresses
func (h *UserHandler) ListAddresses(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	addresses, err := h.userService.ListAddresses(c.Request.Context(), principal)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, addresses)
}

// POST /users/addresses
func (h *UserHandler) AddAddress(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req services.AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	addresses, err := h.userService.AddAddress(c.Request.Context(), principal, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyAddressSaved, addresses)
}

// PUT /users/addresses/:addressId
func (h *UserHandler) UpdateAddress(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	addressID, ok := pathID(c, "addressId", "address")
	if !ok {
		return
	}

	var req services.UpdateAddressRequest
	if !bindJSON(c, &req) {
		return
	}

	addresses, err := h.userService.UpdateAddress(c.Request.Context(), principal, addressID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyAddressSaved, addresses)
}

// DELETE /users/addresses/:addressId
func (h *UserHandler) DeleteAddress(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	addressID, ok := pathID(c, "addressId", "address")
	if !ok {
		return
	}

	addresses, err := h.userService.DeleteAddress(c.Request.Context(), principal, addressID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyAddressDeleted, addresses)
}

// GET /users/wishlist
func (h *UserHandler) ListWishlist(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	products, err := h.userService.ListWishlist(c.Request.Context(), principal)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}

// POST /users/wishlist
func (h *UserHandler) AddToWishlist(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req WishlistRequest
	if !bindJSON(c, &req) {
		return
	}

	products, err := h.userService.AddToWishlist(c.Request.Context(), principal, req.ProductID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyWishlistItemAdded, products)
}

// DELETE /users/wishlist/:productId
func (h *UserHandler) RemoveFromWishlist(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}

	products, err := h.userService.RemoveFromWishlist(c.Request.Context(), principal, productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyWishlistItemRemoved, products)
}
