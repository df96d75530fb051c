package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures Tracing
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are served without a span, e.g. load balancer health probes.
	SkipPaths []string
}

// Tracing returns the otelgin server middleware followed by span enrichment.
// Span names follow "METHOD route", e.g. "POST /api/v1/credit-sales/:id/payments".
// It must run after RequestID.
func Tracing(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return nil
	}
	var opts []otelgin.Option
	if len(cfg.SkipPaths) > 0 {
		skip := slices.Clone(cfg.SkipPaths)
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(skip, r.URL.Path)
		}))
	}
	return gin.HandlersChain{otelgin.Middleware(cfg.ServiceName, opts...), enrichSpan}
}

// enrichSpan tags the server span with request_id, the sale id on sale routes
// and whether the client sent an idempotency key. After the handler it marks
// 4xx responses as errors too; otelgin only does so for 5xx and a rejected
// payment should stand out in traces.
func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if saleID, err := uuid.Parse(c.Param("id")); err == nil {
		span.SetAttributes(attribute.String("credit_sale_id", saleID.String()))
	}
	if c.GetHeader(IdempotencyKeyHeader) != "" {
		span.SetAttributes(attribute.Bool("idempotent", true))
	}

	c.Next()

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status < http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	} else {
		span.SetStatus(codes.Error, "Internal Server Error")
	}
}
