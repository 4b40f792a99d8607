package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nhanhsync/internal/events"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/sync"
)

type OrderHandler struct {
	db        *gorm.DB
	orders    *sync.OrderReconciler
	publisher *events.Publisher
	logger    *logger.Logger
}

func NewOrderHandler(db *gorm.DB, orders *sync.OrderReconciler, publisher *events.Publisher, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{db: db, orders: orders, publisher: publisher, logger: logger}
}

func (h *OrderHandler) Get(c *gin.Context) {
	var order models.Order
	if err := h.db.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Push sends a local order to Nhanh.vn.
func (h *OrderHandler) Push(c *gin.Context) {
	link, err := h.orders.PushNew(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if link == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Order sync is disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": link})
}

// Pull refreshes a local order's status and shipment from Nhanh.vn.
func (h *OrderHandler) Pull(c *gin.Context) {
	status, err := h.orders.PullStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// UpdateStatus applies a local status transition and propagates it.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing status"})
		return
	}

	orderID := c.Param("id")
	result := h.db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", req.Status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	// The transition goes onto the event bus; the worker propagates it to
	// Nhanh.vn. When the bus is unreachable the push happens inline.
	event := events.Event{Type: events.OrderStatusChanged, EntityID: orderID, Status: req.Status}
	if h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), event); err == nil {
			c.JSON(http.StatusAccepted, gin.H{"message": "Order status update queued"})
			return
		}
		h.logger.Warn("Event bus unavailable, pushing order %s status inline", orderID)
	}
	if err := h.orders.PushStatusChange(c.Request.Context(), orderID, req.Status); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
}
