// internal/handlers/common.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

// bindJSON decodes the request body into req, answering 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.HandleError(c, apperror.Validation(apperror.CodeValidation, "invalid request body").
			WithDetails(err.Error()))
		return false
	}
	return true
}

// pathID parses the uuid path parameter name.
func pathID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.InvalidIDResponse(c, resource)
		return uuid.Nil, false
	}
	return id, true
}

// mustPrincipal returns the principal set by the auth middleware.
func mustPrincipal(c *gin.Context) (models.Principal, bool) {
	principal, ok := utils.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return principal, ok
}
