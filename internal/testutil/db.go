// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storefront/internal/database"
	"github.com/javajoker/storefront/internal/models"
)

// NewTestDB opens a private in-memory database with the production schema.
// A single connection serializes access, so code under test must only use the
// transaction handle inside a transaction.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Subject: "idp|" + uuid.NewString(),
		Email:   email,
		Name:    email,
		Role:    models.RoleCustomer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// PrincipalFor returns the principal the auth middleware would build for user.
func PrincipalFor(user *models.User) models.Principal {
	return models.Principal{
		UserID:  user.ID,
		Subject: user.Subject,
		Email:   user.Email,
		Role:    user.Role,
	}
}

func CreateProduct(t testing.TB, db *gorm.DB, name string, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    "general",
		Images:      models.ImageList{"https://cdn.example.com/" + name + ".png"},
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func StockOf(t testing.TB, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()

	var product models.Product
	require.NoError(t, db.Unscoped().Select("stock").First(&product, "id = ?", productID).Error)
	return product.Stock
}
