package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"nhanhsync/internal/logger"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("error")
	r := gin.New()
	r.Use(Logger(log), Recovery(log))
	return r
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	r := newTestRouter()
	r.GET("/boom", func(c *gin.Context) {
		panic("unexpected")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestLoggerPassesRequestThrough(t *testing.T) {
	r := newTestRouter()
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok?page=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
