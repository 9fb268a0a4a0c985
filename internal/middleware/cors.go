// internal/middleware/cors.go
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/config"
)

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", "Accept-Language",
		idempotencyKeyHeader, requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{
		"X-Total-Count", "X-Page", "X-Per-Page", "X-Total-Pages",
		requestIDHeader, idempotentReplayHeader,
	}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}
