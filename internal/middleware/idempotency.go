// internal/middleware/idempotency.go
package middleware

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/idempotency"
	"github.com/javajoker/storefront/internal/utils"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotentReplayHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key already used by the same principal. Requests without the
// header pass through. Server errors free the key so the client can retry.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			utils.BadRequestResponse(c, idempotencyKeyHeader)
			c.Abort()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				utils.BadRequestResponse(c, "body")
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		scope := key
		if principal, ok := utils.GetPrincipal(c); ok {
			scope = principal.UserID.String() + ":" + key
		}
		fingerprint := utils.HashString(c.Request.Method + " " + c.Request.URL.Path + "\n" + utils.HashBytes(body))

		ctx := c.Request.Context()
		existing, acquired, err := store.Begin(ctx, scope, fingerprint)
		if err != nil {
			logrus.WithError(err).WithField("idempotency_key", key).Warn("Idempotency store unavailable, processing request without replay protection")
			c.Next()
			return
		}

		if !acquired {
			switch {
			case existing.Fingerprint != fingerprint:
				utils.HandleError(c, apperror.Validation(apperror.CodeIdempotencyKeyReused, "idempotency key was used with a different request"))
			case !existing.Completed:
				utils.HandleError(c, apperror.Conflict(apperror.CodeRequestInProgress, "request with this idempotency key is in progress"))
			default:
				c.Header(idempotentReplayHeader, "true")
				c.Data(existing.Status, existing.ContentType, existing.Body)
			}
			c.Abort()
			return
		}

		writer := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = writer

		storeCtx := context.WithoutCancel(ctx)
		completed := false
		defer func() {
			if completed {
				return
			}
			if err := store.Release(storeCtx, scope); err != nil {
				logrus.WithError(err).WithField("idempotency_key", key).Error("Failed to release idempotency key")
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			return
		}
		if err := store.Complete(storeCtx, scope, idempotency.Record{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}); err != nil {
			logrus.WithError(err).WithField("idempotency_key", key).Error("Failed to store idempotent response")
			return
		}
		completed = true
	}
}
