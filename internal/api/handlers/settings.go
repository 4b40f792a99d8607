package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/sync"
)

// editableSettings are the keys the settings API reads and writes. The access
// token and the rest of the grant are managed by the OAuth flow, not here.
var editableSettings = []string{
	nhanh.SettingAppID,
	nhanh.SettingSecretKey,
	sync.SettingSyncProducts,
	sync.SettingSyncInventory,
	sync.SettingSyncOrders,
	sync.SettingSyncFrequency,
	sync.SettingWebhookToken,
	sync.SettingAutoPushStock,
	sync.SettingWarehouseID,
	sync.SettingShopCity,
	sync.SettingShopDistrict,
	sync.SettingShippingMethod,
}

type SettingsHandler struct {
	settings sync.SettingsStore
	coord    *sync.Coordinator
	logger   *logger.Logger
}

func NewSettingsHandler(settings sync.SettingsStore, coord *sync.Coordinator, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, coord: coord, logger: logger}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	out := make(map[string]string, len(editableSettings))
	for _, key := range editableSettings {
		value, err := h.settings.Get(c.Request.Context(), key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read settings"})
			return
		}
		out[key] = value
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Update writes the submitted keys and reapplies the sync schedule so toggle
// and frequency changes take effect immediately.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed settings payload"})
		return
	}

	allowed := make(map[string]bool, len(editableSettings))
	for _, key := range editableSettings {
		allowed[key] = true
	}
	for key := range req {
		if !allowed[key] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown setting: " + key})
			return
		}
	}

	for key, value := range req {
		if err := h.settings.Set(c.Request.Context(), key, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
			return
		}
	}

	if err := h.coord.ApplySchedule(c.Request.Context()); err != nil {
		h.logger.Error("Failed to apply sync schedule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Settings saved but schedule update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}
