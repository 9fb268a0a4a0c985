package utils_test

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/testutil"
	"github.com/javajoker/storefront/internal/utils"
)

func TestPaginationParamsNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   utils.PaginationParams
		want utils.PaginationParams
	}{
		{
			name: "zero value",
			in:   utils.PaginationParams{},
			want: utils.PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Direction: "desc"},
		},
		{
			name: "limit above maximum",
			in:   utils.PaginationParams{Page: 3, Limit: 500, Sort: "price", Direction: "ASC"},
			want: utils.PaginationParams{Page: 3, Limit: 20, Sort: "price", Direction: "asc"},
		},
		{
			name: "negative page and unknown direction",
			in:   utils.PaginationParams{Page: -2, Limit: 5, Sort: "name", Direction: "asc; DROP TABLE products"},
			want: utils.PaginationParams{Page: 1, Limit: 5, Sort: "name", Direction: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestGetPaginationParamsFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/v1/products?page=2&limit=abc&sort=price&direction=asc", nil)

	params := utils.GetPaginationParams(c)

	assert.Equal(t, utils.PaginationParams{Page: 2, Limit: 20, Sort: "price", Direction: "asc"}, params)
}

func seedPricedProducts(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		testutil.CreateProduct(t, db, fmt.Sprintf("item-%02d", i), fmt.Sprintf("%d.00", i+1), 1)
	}
}

func TestApplyPaginationNormalizesCallerParams(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedPricedProducts(t, db, 25)

	var products []models.Product
	query := utils.ApplySort(db.Model(&models.Product{}), utils.PaginationParams{Sort: "price", Direction: "asc"}, []string{"price"})
	require.NoError(t, utils.ApplyPagination(query, utils.PaginationParams{}).Find(&products).Error)

	require.Len(t, products, utils.DefaultPageLimit)
	assert.Equal(t, "item-00", products[0].Name)

	result := utils.CreatePaginationResult(products, 25, utils.PaginationParams{})
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.Limit)
	assert.Equal(t, 2, result.TotalPages)
}

func TestApplySortIgnoresUnlistedColumnsAndBadDirection(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedPricedProducts(t, db, 3)

	var products []models.Product
	params := utils.PaginationParams{Sort: "price; DELETE FROM products", Direction: "asc, stock"}
	require.NoError(t, utils.ApplySort(db.Model(&models.Product{}), params, []string{"price"}).Find(&products).Error)

	assert.Len(t, products, 3)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestApplySortHonoursDirection(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedPricedProducts(t, db, 3)

	var asc, desc []models.Product
	require.NoError(t, utils.ApplySort(db.Model(&models.Product{}),
		utils.PaginationParams{Sort: "price", Direction: utils.SortAsc}, []string{"price"}).Find(&asc).Error)
	require.NoError(t, utils.ApplySort(db.Model(&models.Product{}),
		utils.PaginationParams{Sort: "price", Direction: utils.SortDesc}, []string{"price"}).Find(&desc).Error)

	require.Len(t, asc, 3)
	require.Len(t, desc, 3)
	assert.Equal(t, "item-00", asc[0].Name)
	assert.Equal(t, "item-02", desc[0].Name)
}
