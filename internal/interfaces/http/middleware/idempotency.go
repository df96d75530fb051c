package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backend/internal/interfaces/http/dto"
)

// MaxIdempotencyKeyLength bounds Idempotency-Key values; longer keys are rejected, not truncated
const MaxIdempotencyKeyLength = 255

// IdempotencyKey validates the optional Idempotency-Key header and echoes it
// back. A key must be printable ASCII without spaces, since it becomes part
// of a store key shared across instances.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if msg := checkIdempotencyKey(key); msg != "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, msg, GetRequestID(c),
			))
			return
		}
		c.Writer.Header().Set(IdempotencyKeyHeader, key)
		c.Next()
	}
}

func checkIdempotencyKey(key string) string {
	if len(key) > MaxIdempotencyKeyLength {
		return "Idempotency-Key must be at most 255 characters"
	}
	if strings.IndexFunc(key, func(r rune) bool { return r <= ' ' || r > '~' }) >= 0 {
		return "Idempotency-Key must be printable ASCII without spaces"
	}
	return ""
}
