// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Get(c.Request.Context(), principal)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// POST /cart/items (also POST /cart)
func (h *CartHandler) AddItem(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req services.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.cartService.Add(c.Request.Context(), principal, req.ProductID, quantity)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyCartItemAdded, cart)
}

// PATCH /cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}

	var req services.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.Update(c.Request.Context(), principal, productID, req.Quantity)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyCartItemUpdated, cart)
}

// DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId", "product")
	if !ok {
		return
	}

	cart, err := h.cartService.Remove(c.Request.Context(), principal, productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyCartItemRemoved, cart)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Clear(c.Request.Context(), principal)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyCartCleared, cart)
}
