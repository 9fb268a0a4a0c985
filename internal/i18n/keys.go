// internal/i18n/keys.go
package i18n

import "strings"

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// Cart
	KeyCartItemAdded   = "cart.item_added"
	KeyCartItemUpdated = "cart.item_updated"
	KeyCartItemRemoved = "cart.item_removed"
	KeyCartCleared     = "cart.cleared"

	// Orders
	KeyOrderCreated       = "order.created"
	KeyOrderStatusUpdated = "order.status_updated"

	// Reviews
	KeyReviewSaved   = "review.saved"
	KeyReviewDeleted = "review.deleted"

	// Products
	KeyProductCreated = "product.created"
	KeyProductUpdated = "product.updated"
	KeyProductDeleted = "product.deleted"

	// Users
	KeyAddressSaved        = "user.address_saved"
	KeyAddressDeleted      = "user.address_deleted"
	KeyWishlistItemAdded   = "user.wishlist_added"
	KeyWishlistItemRemoved = "user.wishlist_removed"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Requests
	KeyRequestInvalid    = "request.invalid"
	KeyRequestInvalidID  = "request.invalid_id"
	KeyRateLimitExceeded = "request.rate_limited"
	KeyIdempotencyReplay = "request.idempotent_replay"
)

// ErrorKey returns the translation key for an apperror code, for example
// "error.insufficient_stock" for INSUFFICIENT_STOCK.
func ErrorKey(code string) string {
	return "error." + strings.ToLower(code)
}
