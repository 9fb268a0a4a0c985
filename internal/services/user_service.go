// internal/services/user_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

type UserService struct {
	db *gorm.DB
}

// Identity is what the identity provider asserts about the caller.
type Identity struct {
	Subject  string
	Email    string
	Name     string
	ImageURL string
	Role     models.Role
}

type AddressRequest struct {
	Label         string `json:"label" validate:"required,max=100"`
	FullName      string `json:"full_name" validate:"required,max=255"`
	StreetAddress string `json:"street_address" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"required,max=100"`
	ZipCode       string `json:"zip_code" validate:"required,max=20"`
	PhoneNumber   string `json:"phone_number" validate:"required,max=50"`
	IsDefault     bool   `json:"is_default"`
}

// UpdateAddressRequest only changes the fields that are set.
type UpdateAddressRequest struct {
	Label         *string `json:"label,omitempty" validate:"omitempty,min=1,max=100"`
	FullName      *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=255"`
	StreetAddress *string `json:"street_address,omitempty" validate:"omitempty,min=1,max=255"`
	City          *string `json:"city,omitempty" validate:"omitempty,min=1,max=100"`
	State         *string `json:"state,omitempty" validate:"omitempty,min=1,max=100"`
	ZipCode       *string `json:"zip_code,omitempty" validate:"omitempty,min=1,max=20"`
	PhoneNumber   *string `json:"phone_number,omitempty" validate:"omitempty,min=1,max=50"`
	IsDefault     *bool   `json:"is_default,omitempty"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureUser returns the local user for identity, creating it on first sight
// and refreshing profile fields that changed at the provider.
func (s *UserService) EnsureUser(ctx context.Context, identity Identity) (*models.User, error) {
	db := s.db.WithContext(ctx)
	if identity.Role == "" {
		identity.Role = models.RoleCustomer
	}

	user := models.User{
		Subject:  identity.Subject,
		Email:    identity.Email,
		Name:     identity.Name,
		ImageURL: identity.ImageURL,
		Role:     identity.Role,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return nil, apperror.Internal("failed to create user", err)
	}

	var stored models.User
	if err := db.Where("subject = ?", identity.Subject).First(&stored).Error; err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}

	updates := map[string]interface{}{}
	if identity.Email != "" && identity.Email != stored.Email {
		updates["email"] = identity.Email
	}
	if identity.Name != "" && identity.Name != stored.Name {
		updates["name"] = identity.Name
	}
	if identity.ImageURL != "" && identity.ImageURL != stored.ImageURL {
		updates["image_url"] = identity.ImageURL
	}
	if identity.Role != stored.Role {
		updates["role"] = identity.Role
	}
	if len(updates) > 0 {
		if err := db.Model(&stored).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update user", err)
		}
		if err := db.First(&stored, "id = ?", stored.ID).Error; err != nil {
			return nil, apperror.Internal("failed to load user", err)
		}
	}

	return &stored, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeUserNotFound, "user not found")
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) ListAddresses(ctx context.Context, principal models.Principal) ([]models.Address, error) {
	var addresses []models.Address
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", principal.UserID).
		Order("is_default DESC, created_at ASC").
		Find(&addresses).Error; err != nil {
		return nil, apperror.Internal("failed to fetch addresses", err)
	}
	return addresses, nil
}

// AddAddress stores a new address. Marking it default clears the flag on the
// principal's other addresses.
func (s *UserService) AddAddress(ctx context.Context, principal models.Principal, req *AddressRequest) ([]models.Address, error) {
	if err := utils.ValidateRequest(req); err != nil {
		return nil, err
	}

	address := models.Address{
		UserID:        principal.UserID,
		Label:         req.Label,
		FullName:      req.FullName,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		PhoneNumber:   req.PhoneNumber,
		IsDefault:     req.IsDefault,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefaultAddress(tx, principal.UserID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, apperror.Internal("failed to add address", err)
	}

	return s.ListAddresses(ctx, principal)
}

func (s *UserService) UpdateAddress(ctx context.Context, principal models.Principal, addressID uuid.UUID, req *UpdateAddressRequest) ([]models.Address, error) {
	if err := utils.ValidateRequest(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var address models.Address
		if err := tx.Where("id = ? AND user_id = ?", addressID, principal.UserID).First(&address).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setIfPresent(updates, "label", req.Label)
		setIfPresent(updates, "full_name", req.FullName)
		setIfPresent(updates, "street_address", req.StreetAddress)
		setIfPresent(updates, "city", req.City)
		setIfPresent(updates, "state", req.State)
		setIfPresent(updates, "zip_code", req.ZipCode)
		setIfPresent(updates, "phone_number", req.PhoneNumber)
		if req.IsDefault != nil {
			if *req.IsDefault {
				if err := clearDefaultAddress(tx, principal.UserID); err != nil {
					return err
				}
			}
			updates["is_default"] = *req.IsDefault
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&address).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(apperror.CodeAddressNotFound, "address not found")
		}
		return nil, apperror.Internal("failed to update address", err)
	}

	return s.ListAddresses(ctx, principal)
}

func (s *UserService) DeleteAddress(ctx context.Context, principal models.Principal, addressID uuid.UUID) ([]models.Address, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, principal.UserID).
		Delete(&models.Address{})
	if result.Error != nil {
		return nil, apperror.Internal("failed to delete address", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound(apperror.CodeAddressNotFound, "address not found")
	}

	return s.ListAddresses(ctx, principal)
}

func (s *UserService) ListWishlist(ctx context.Context, principal models.Principal) ([]models.Product, error) {
	var items []models.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", principal.UserID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, apperror.Internal("failed to fetch wishlist", err)
	}

	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		if item.Product != nil {
			products = append(products, *item.Product)
		}
	}
	return products, nil
}

func (s *UserService) AddToWishlist(ctx context.Context, principal models.Principal, productID uuid.UUID) ([]models.Product, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, apperror.Internal("failed to load product", err)
	}
	if count == 0 {
		return nil, apperror.NotFound(apperror.CodeProductNotFound, "product not found")
	}

	item := models.WishlistItem{UserID: principal.UserID, ProductID: productID}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Validation(apperror.CodeAlreadyInWishlist, "product already in wishlist")
		}
		return nil, apperror.Internal("failed to add to wishlist", err)
	}

	return s.ListWishlist(ctx, principal)
}

func (s *UserService) RemoveFromWishlist(ctx context.Context, principal models.Principal, productID uuid.UUID) ([]models.Product, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", principal.UserID, productID).
		Delete(&models.WishlistItem{})
	if result.Error != nil {
		return nil, apperror.Internal("failed to remove from wishlist", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.Validation(apperror.CodeNotInWishlist, "product not in wishlist")
	}

	return s.ListWishlist(ctx, principal)
}

func clearDefaultAddress(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func setIfPresent(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
