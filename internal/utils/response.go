// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
)

// Context keys set by middleware.
const (
	ContextKeyPrincipal = "principal"
	ContextKeyLang      = "lang"
	ContextKeyRequestID = "request_id"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// MessageResponse answers 200 with data and a translated message in meta.
func MessageResponse(c *gin.Context, key string, data interface{}) {
	SuccessResponseWithMeta(c, data, gin.H{
		"message": i18n.T(GetLangFromContext(c), key),
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// HandleError writes err using the status, code and details of its
// apperror kind. Internal causes are logged, never returned.
func HandleError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	lang := GetLangFromContext(c)

	message := appErr.Message
	if key := i18n.ErrorKey(appErr.Code); i18n.Has(lang, key) {
		message = i18n.T(lang, key)
	}

	if appErr.Kind == apperror.KindInternal {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(ContextKeyRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).WithError(appErr).Error("Request failed")
		ErrorResponse(c, appErr.HTTPStatus(), appErr.Code, message, nil)
		return
	}

	ErrorResponse(c, appErr.HTTPStatus(), appErr.Code, message, appErr.Details)
}

func BadRequestResponse(c *gin.Context, reason string) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", i18n.T(lang, i18n.KeyRequestInvalid, reason), nil)
}

// InvalidIDResponse answers 400 for a path parameter that is not a uuid.
func InvalidIDResponse(c *gin.Context, resource string) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", i18n.T(lang, i18n.KeyRequestInvalidID, resource), nil)
}

func UnauthorizedResponse(c *gin.Context, key string) {
	lang := GetLangFromContext(c)
	if key == "" {
		key = i18n.KeyAuthRequired
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, key), nil)
}

func ForbiddenResponse(c *gin.Context) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusForbidden, apperror.CodeForbidden, i18n.T(lang, i18n.KeyAdminAccessDenied), nil)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get(ContextKeyLang); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

// GetPrincipal returns the authenticated principal stored by the auth middleware.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	if value, exists := c.Get(ContextKeyPrincipal); exists {
		if principal, ok := value.(models.Principal); ok {
			return principal, true
		}
	}
	return models.Principal{}, false
}
