package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/retailpos/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notesInput struct {
	Notes string `json:"notes"`
}

func bodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	bind := func(c *gin.Context) {
		var in notesInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	}
	router.POST("/credit-sales", bind)
	router.PUT("/credit-sales/:id", bind)
	router.GET("/credit-sales", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestBodyLimit(t *testing.T) {
	router := bodyLimitRouter(64)
	longNotes := `{"notes":"` + strings.Repeat("fiado ", 30) + `"}`

	t.Run("small body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/credit-sales", strings.NewReader(`{"notes":"ok"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/credit-sales/abc", strings.NewReader(longNotes))
		req.Header.Set(RequestIDHeader, "req-large")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, errorCode(t, w))
		assert.Contains(t, w.Body.String(), "req-large")
	})

	t.Run("streamed body cut off while binding", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/credit-sales", strings.NewReader(longNotes))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, errorCode(t, w))
	})

	t.Run("reads are not limited", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/credit-sales", strings.NewReader(longNotes))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBodyLimit_DefaultWhenUnset(t *testing.T) {
	router := bodyLimitRouter(0)
	req := httptest.NewRequest(http.MethodPost, "/credit-sales", strings.NewReader(`{"notes":"`+strings.Repeat("x", 4096)+`"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
