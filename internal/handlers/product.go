// internal/handlers/product.go
package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

const imagesFormField = "images"

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	// Build search parameters
	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Search:           c.Query("search"),
		Category:         c.Query("category"),
	}

	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := decimal.NewFromString(priceMinStr); err == nil {
			searchParams.PriceMin = &priceMin
		}
	}

	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := decimal.NewFromString(priceMaxStr); err == nil {
			searchParams.PriceMax = &priceMax
		}
	}

	if inStockStr := c.Query("in_stock"); inStockStr != "" {
		if inStock, err := strconv.ParseBool(inStockStr); err == nil {
			searchParams.InStock = &inStock
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /admin/products (multipart)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	var fieldErrs []utils.ValidationError

	req.Name = c.PostForm("name")
	req.Description = c.PostForm("description")
	req.Category = c.PostForm("category")
	if price, err := decimal.NewFromString(c.PostForm("price")); err == nil {
		req.Price = price
	} else {
		fieldErrs = append(fieldErrs, formFieldError("price", "decimal"))
	}
	if stock, err := strconv.Atoi(c.DefaultPostForm("stock", "0")); err == nil {
		req.Stock = stock
	} else {
		fieldErrs = append(fieldErrs, formFieldError("stock", "int"))
	}
	if len(fieldErrs) > 0 {
		utils.HandleError(c, apperror.Validation(apperror.CodeValidation, "invalid form fields").WithDetails(fieldErrs))
		return
	}

	images, err := readImages(c)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req, images)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /admin/products/:id (multipart, every field optional)
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	var fieldErrs []utils.ValidationError

	if name, exists := c.GetPostForm("name"); exists {
		req.Name = &name
	}
	if description, exists := c.GetPostForm("description"); exists {
		req.Description = &description
	}
	if category, exists := c.GetPostForm("category"); exists {
		req.Category = &category
	}
	if priceStr, exists := c.GetPostForm("price"); exists {
		if price, err := decimal.NewFromString(priceStr); err == nil {
			req.Price = &price
		} else {
			fieldErrs = append(fieldErrs, formFieldError("price", "decimal"))
		}
	}
	if stockStr, exists := c.GetPostForm("stock"); exists {
		if stock, err := strconv.Atoi(stockStr); err == nil {
			req.Stock = &stock
		} else {
			fieldErrs = append(fieldErrs, formFieldError("stock", "int"))
		}
	}
	if len(fieldErrs) > 0 {
		utils.HandleError(c, apperror.Validation(apperror.CodeValidation, "invalid form fields").WithDetails(fieldErrs))
		return
	}

	images, err := readImages(c)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req, images)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductUpdated, product)
}

// DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductDeleted, nil)
}

// readImages loads the "images" parts of a multipart request. A request
// without a multipart body yields no images.
func readImages(c *gin.Context) ([]services.ImageFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}

	headers := form.File[imagesFormField]
	images := make([]services.ImageFile, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			return nil, apperror.Validation(apperror.CodeInvalidImages, fmt.Sprintf("failed to read image %s", header.Filename))
		}
		images = append(images, services.ImageFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func formFieldError(field, tag string) utils.ValidationError {
	return utils.ValidationError{
		Field:   field,
		Tag:     tag,
		Message: fmt.Sprintf("%s must be a valid %s", field, tag),
	}
}
