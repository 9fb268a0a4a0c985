package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/events"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/testutil"
	"github.com/javajoker/storefront/internal/utils"
)

type memoryImageStore struct {
	mu      sync.Mutex
	next    int
	stored  map[string]bool
	deleted []string
	failOn  string
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{stored: map[string]bool{}}
}

func (m *memoryImageStore) Upload(ctx context.Context, folder string, file ImageFile) (*UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file.Filename == m.failOn {
		return nil, apperror.Validation(apperror.CodeInvalidImages, "bad image")
	}
	m.next++
	url := fmt.Sprintf("https://cdn.test/%s/%d-%s", folder, m.next, file.Filename)
	m.stored[url] = true
	return &UploadResult{URL: url}, nil
}

func (m *memoryImageStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, url)
	m.deleted = append(m.deleted, url)
	return nil
}

func images(names ...string) []ImageFile {
	files := make([]ImageFile, len(names))
	for i, name := range names {
		files[i] = ImageFile{Filename: name, Data: pngBytes}
	}
	return files
}

func validProductRequest() *CreateProductRequest {
	return &CreateProductRequest{
		Name:        "Desk lamp",
		Description: "Adjustable arm",
		Price:       decimal.RequireFromString("39.90"),
		Stock:       12,
		Category:    "lighting",
	}
}

func TestCreateProductUploadsImages(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := newMemoryImageStore()
	service := NewProductService(db, store, nil)

	product, err := service.CreateProduct(context.Background(), validProductRequest(), images("a.png", "b.png"))

	require.NoError(t, err)
	assert.Len(t, product.Images, 2)
	stored, err := service.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Images, stored.Images)
	assert.Equal(t, 12, stored.Stock)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("39.90")))
}

func TestCreateProductValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := newMemoryImageStore()
	service := NewProductService(db, store, nil)
	ctx := context.Background()

	_, err := service.CreateProduct(ctx, validProductRequest(), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidImages))

	_, err = service.CreateProduct(ctx, validProductRequest(), images("1.png", "2.png", "3.png", "4.png"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidImages))

	req := validProductRequest()
	req.Price = decimal.RequireFromString("-1")
	_, err = service.CreateProduct(ctx, req, images("a.png"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	req = validProductRequest()
	req.Stock = -1
	_, err = service.CreateProduct(ctx, req, images("a.png"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	// A failing upload removes the images uploaded before it.
	store.failOn = "bad.png"
	_, err = service.CreateProduct(ctx, validProductRequest(), images("good.png", "bad.png"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidImages))
	assert.Empty(t, store.stored)
}

func TestUpdateProductReplacesImages(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := newMemoryImageStore()
	service := NewProductService(db, store, nil)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, validProductRequest(), images("old.png"))
	require.NoError(t, err)
	oldURL := product.Images[0]

	name := "Floor lamp"
	stock := 3
	updated, err := service.UpdateProduct(ctx, product.ID, &UpdateProductRequest{Name: &name, Stock: &stock}, images("new1.png", "new2.png"))

	require.NoError(t, err)
	assert.Equal(t, "Floor lamp", updated.Name)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, "Adjustable arm", updated.Description)
	assert.Len(t, updated.Images, 2)
	assert.Contains(t, store.deleted, oldURL)
	assert.NotContains(t, updated.Images, oldURL)
}

func TestUpdateProductKeepsImagesWhenNoneUploaded(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := newMemoryImageStore()
	service := NewProductService(db, store, nil)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, validProductRequest(), images("keep.png"))
	require.NoError(t, err)

	price := decimal.RequireFromString("10.00")
	updated, err := service.UpdateProduct(ctx, product.ID, &UpdateProductRequest{Price: &price}, nil)

	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, product.Images, updated.Images)
	assert.Empty(t, store.deleted)

	_, err = service.UpdateProduct(ctx, uuid.New(), &UpdateProductRequest{Price: &price}, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
}

func TestDeleteProductCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := newMemoryImageStore()
	publisher := &recordingPublisher{}
	service := NewProductService(db, store, publisher)
	ctx := context.Background()

	product, err := service.CreateProduct(ctx, validProductRequest(), images("x.png"))
	require.NoError(t, err)
	principal := testutil.PrincipalFor(testutil.CreateUser(t, db, "fan@example.com"))

	_, err = NewCartService(db).Add(ctx, principal, product.ID, 1)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.WishlistItem{UserID: principal.UserID, ProductID: product.ID}).Error)
	order := placeDeliveredOrder(t, db, principal, product)
	_, err = NewReviewService(db, nil).UpsertReview(ctx, principal, &UpsertReviewRequest{
		ProductID: product.ID, OrderID: order.ID, Rating: 5,
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteProduct(ctx, product.ID))

	for _, model := range []interface{}{&models.CartItem{}, &models.WishlistItem{}, &models.Review{}} {
		var count int64
		require.NoError(t, db.Model(model).Where("product_id = ?", product.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
	_, err = service.GetProduct(ctx, product.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound))
	assert.Empty(t, store.stored)
	assert.Equal(t, []string{events.ProductDeleted}, publisher.types())

	// The order keeps its snapshot.
	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "Desk lamp", items[0].Name)
}

func TestSearchProducts(t *testing.T) {
	db := testutil.NewTestDB(t)
	service := NewProductService(db, newMemoryImageStore(), nil)
	ctx := context.Background()

	testutil.CreateProduct(t, db, "oak-table", "250.00", 2)
	testutil.CreateProduct(t, db, "pine-table", "120.00", 0)
	chair := testutil.CreateProduct(t, db, "oak-chair", "60.00", 8)
	require.NoError(t, db.Model(chair).Update("category", "seating").Error)

	params := utils.PaginationParams{Page: 1, Limit: 20, Sort: "price", Direction: utils.SortAsc}

	all, total, err := service.SearchProducts(ctx, ProductSearchParams{PaginationParams: params})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "oak-chair", all[0].Name)

	oak, total, err := service.SearchProducts(ctx, ProductSearchParams{PaginationParams: params, Search: "OAK"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, oak, 2)

	seating, _, err := service.SearchProducts(ctx, ProductSearchParams{PaginationParams: params, Category: "seating"})
	require.NoError(t, err)
	require.Len(t, seating, 1)
	assert.Equal(t, chair.ID, seating[0].ID)

	inStock := true
	stocked, total, err := service.SearchProducts(ctx, ProductSearchParams{PaginationParams: params, InStock: &inStock})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, stocked, 2)

	params.Limit = 1
	params.Page = 2
	page, total, err := service.SearchProducts(ctx, ProductSearchParams{PaginationParams: params})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "pine-table", page[0].Name)
}
