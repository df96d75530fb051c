package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backend/internal/interfaces/http/dto"
)

// DatabasePinger reports whether the database answers
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness information
type HealthHandler struct {
	BaseHandler
	name        string
	version     string
	db          DatabasePinger
	pingTimeout time.Duration
	startTime   time.Time
}

// NewHealthHandler creates a HealthHandler. db may be nil, in which case only liveness is reported.
func NewHealthHandler(name, version string, db DatabasePinger) *HealthHandler {
	return &HealthHandler{
		name:        name,
		version:     version,
		db:          db,
		pingTimeout: 2 * time.Second,
		startTime:   time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Health godoc
// @Summary      Health check
// @Description  Liveness plus a database ping; answers 503 when the database is unreachable
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]string{},
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, dto.Response{
				Success: false,
				Data:    resp,
				Error: &dto.ErrorInfo{
					Code:      dto.ErrCodeServiceUnavailable,
					Message:   "Database is unreachable",
					Timestamp: time.Now(),
				},
			})
			return
		}
		resp.Checks["database"] = "ok"
	}

	h.Success(c, resp)
}
