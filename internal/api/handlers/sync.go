package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/sync"
)

// SyncHandler exposes manual sync triggers plus the activity trail and run
// statistics.
type SyncHandler struct {
	products  *sync.ProductReconciler
	inventory *sync.InventoryReconciler
	coord     *sync.Coordinator
	logger    *logger.Logger
}

func NewSyncHandler(products *sync.ProductReconciler, inventory *sync.InventoryReconciler, coord *sync.Coordinator, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{products: products, inventory: inventory, coord: coord, logger: logger}
}

func (h *SyncHandler) RunProducts(c *gin.Context) {
	res, err := h.products.Pull(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "results": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func (h *SyncHandler) RunInventory(c *gin.Context) {
	res, err := h.inventory.Pull(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "results": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func (h *SyncHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.coord.Stats()})
}

func (h *SyncHandler) Logs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.coord.Logs()})
}

func (h *SyncHandler) ClearLogs(c *gin.Context) {
	if err := h.coord.ClearLogs(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear sync logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sync logs cleared"})
}
