package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"nhanhsync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns handler panics into 500 responses. A client that hung up
// mid-response is not a panic worth reporting; the connection is just
// abandoned.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if clientGone(recovered) {
			c.Abort()
			return
		}

		log.Error("Panic in %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, recovered, debug.Stack())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

func clientGone(recovered interface{}) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var op *net.OpError
	if !errors.As(err, &op) {
		return false
	}
	var syscallErr *os.SyscallError
	if !errors.As(op.Err, &syscallErr) {
		return false
	}
	msg := strings.ToLower(syscallErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
