package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/sync"
)

type WebhookHandler struct {
	dispatcher *sync.WebhookDispatcher
	logger     *logger.Logger
}

func NewWebhookHandler(dispatcher *sync.WebhookDispatcher, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

type webhookPayload struct {
	Event               string          `json:"event"`
	Data                json.RawMessage `json:"data"`
	WebhooksVerifyToken string          `json:"webhooksVerifyToken"`
}

// Receive handles inbound Nhanh.vn webhooks. Every response is a well-formed
// JSON body with status and message, whatever went wrong.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Unable to read request body"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Malformed webhook payload"})
		return
	}

	ctx := c.Request.Context()
	if err := h.dispatcher.Verify(ctx, c.Query("token"), payload.WebhooksVerifyToken, c.GetHeader("Origin")); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "Webhook verification failed"})
		return
	}

	if payload.Event == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Missing event name"})
		return
	}

	err = h.dispatcher.Dispatch(ctx, payload.Event, payload.Data)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Webhook processed"})
	case errors.Is(err, sync.ErrUnsupportedEvent):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Unsupported event: " + payload.Event})
	case isValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	default:
		// Processing failures still acknowledge receipt so Nhanh.vn does not
		// retry a webhook that will keep failing for the same reason.
		h.logger.Error("Webhook %s failed: %v", payload.Event, err)
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": err.Error()})
	}
}

func isValidation(err error) bool {
	var validation *nhanh.ValidationError
	return errors.As(err, &validation)
}
