package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
)

// NhanhHandler covers the OAuth surface: building the login URL, receiving
// the callback and reporting connection state.
type NhanhHandler struct {
	client *nhanh.Client
	logger *logger.Logger
}

func NewNhanhHandler(client *nhanh.Client, logger *logger.Logger) *NhanhHandler {
	return &NhanhHandler{client: client, logger: logger}
}

func (h *NhanhHandler) LoginURL(c *gin.Context) {
	returnLink := c.Query("return_link")
	url, err := h.client.LoginURL(c.Request.Context(), returnLink)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback exchanges the access code Nhanh.vn redirects back with for an
// access token and persists the grant.
func (h *NhanhHandler) Callback(c *gin.Context) {
	accessCode := c.Query("accessCode")
	if accessCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing accessCode"})
		return
	}
	result, err := h.client.ExchangeAuthCode(c.Request.Context(), accessCode)
	if err != nil {
		h.logger.Error("OAuth exchange failed: %v", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *NhanhHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected": !h.client.IsTokenExpired(c.Request.Context()),
	})
}
