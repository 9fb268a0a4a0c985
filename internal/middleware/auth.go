// internal/middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

// UserResolver maps a verified identity to the local user record.
type UserResolver interface {
	EnsureUser(ctx context.Context, identity services.Identity) (*models.User, error)
}

// AuthRequired verifies the bearer token and stores the request principal.
func AuthRequired(users UserResolver, authCfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.KeyAuthRequired)
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.UnauthorizedResponse(c, i18n.KeyAuthInvalidToken)
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			key := i18n.KeyAuthInvalidToken
			if utils.IsTokenExpired(err) {
				key = i18n.KeyAuthTokenExpired
			}
			utils.UnauthorizedResponse(c, key)
			c.Abort()
			return
		}

		role := models.RoleCustomer
		if claims.Role == string(models.RoleAdmin) || authCfg.IsAdminEmail(claims.Email) {
			role = models.RoleAdmin
		}

		user, err := users.EnsureUser(c.Request.Context(), services.Identity{
			Subject:  claims.Subject,
			Email:    claims.Email,
			Name:     claims.Name,
			ImageURL: claims.Picture,
			Role:     role,
		})
		if err != nil {
			logrus.WithError(err).WithField("subject", claims.Subject).Error("Failed to resolve user")
			utils.HandleError(c, err)
			c.Abort()
			return
		}

		c.Set(utils.ContextKeyPrincipal, models.Principal{
			UserID:  user.ID,
			Subject: user.Subject,
			Email:   user.Email,
			Role:    user.Role,
		})
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok || !principal.IsAdmin() {
			utils.ForbiddenResponse(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
