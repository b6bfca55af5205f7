package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitEngine(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(BodyLimit(limit))
	engine.POST("/upload", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if IsBodyTooLarge(err) {
			c.String(http.StatusRequestEntityTooLarge, "streamed past limit")
			return
		}
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "%d", len(body))
	})
	return engine
}

func postBody(engine *gin.Engine, body string, contentLength int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.ContentLength = contentLength
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBodyLimit(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		w := postBody(bodyLimitEngine(64), "sku,name\nA-1,Boot\n", 18)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "18", w.Body.String())
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := postBody(bodyLimitEngine(100), strings.Repeat("x", 200), 200)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"ERR_IMPORT_FILE_TOO_LARGE"`)
		assert.Contains(t, w.Body.String(), "100 bytes")
	})

	t.Run("chunked body over limit", func(t *testing.T) {
		w := postBody(bodyLimitEngine(50), strings.Repeat("x", 100), -1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "streamed past limit", w.Body.String())
	})

	t.Run("disabled", func(t *testing.T) {
		w := postBody(bodyLimitEngine(0), strings.Repeat("x", 500), 500)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "500", w.Body.String())
	})
}

func TestIsBodyTooLarge(t *testing.T) {
	assert.True(t, IsBodyTooLarge(&http.MaxBytesError{Limit: 1}))
	assert.False(t, IsBodyTooLarge(io.ErrUnexpectedEOF))
	assert.False(t, IsBodyTooLarge(nil))
}
