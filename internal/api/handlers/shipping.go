package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
	"nhanhsync/internal/sync"
)

// ShippingHandler quotes delivery fees through Nhanh.vn carriers. The origin
// comes from the shop settings; the caller supplies the destination.
type ShippingHandler struct {
	client   *nhanh.Client
	settings sync.SettingsStore
	logger   *logger.Logger
}

func NewShippingHandler(client *nhanh.Client, settings sync.SettingsStore, logger *logger.Logger) *ShippingHandler {
	return &ShippingHandler{client: client, settings: settings, logger: logger}
}

func (h *ShippingHandler) Estimate(c *gin.Context) {
	var req struct {
		ToCityName     string  `json:"toCityName" binding:"required"`
		ToDistrictName string  `json:"toDistrictName" binding:"required"`
		Weight         float64 `json:"weight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing destination"})
		return
	}

	ctx := c.Request.Context()
	fromCity, _ := h.settings.Get(ctx, sync.SettingShopCity)
	fromDistrict, _ := h.settings.Get(ctx, sync.SettingShopDistrict)
	method, _ := h.settings.Get(ctx, sync.SettingShippingMethod)
	if fromCity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shop origin city is not configured"})
		return
	}

	fee, err := h.client.ShippingFee(ctx, &nhanh.ShippingFeeRequest{
		FromCityName:     fromCity,
		FromDistrictName: fromDistrict,
		ToCityName:       req.ToCityName,
		ToDistrictName:   req.ToDistrictName,
		Weight:           req.Weight,
		ShippingMethod:   method,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee": fee})
}
