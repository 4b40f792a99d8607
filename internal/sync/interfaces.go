package sync

import (
	"context"
	"errors"
	"time"

	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

// ErrNotFound is returned by stores when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Setting keys owned by the sync engine.
const (
	SettingSyncProducts        = "sync_products_enabled"
	SettingSyncInventory       = "sync_inventory_enabled"
	SettingSyncOrders          = "sync_orders_enabled"
	SettingSyncFrequency       = "sync_frequency"
	SettingWebhookToken        = "webhook_token"
	SettingAutoPushStock       = "auto_push_stock"
	SettingWarehouseID         = "default_warehouse_id"
	SettingLastProductSync     = "last_product_sync"
	SettingRateLimitUnlockedAt = "rate_limit_unlocked_at"
	SettingShopCity            = "shop_city"
	SettingShopDistrict        = "shop_district"
	SettingShippingMethod      = "default_shipping_method"
)

// Results accumulates the outcome of one run.
type Results struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// CatalogStore is the host catalog the reconcilers write through. Upserts
// must be atomic per unique key; two racing writes to the same product must
// converge, not duplicate.
type CatalogStore interface {
	ProductByID(ctx context.Context, id string) (*models.Product, error)
	ProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	SaveProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, quantity int, inStock bool) error
	FindOrCreateCategory(ctx context.Context, name string) (string, error)
	AssignCategory(ctx context.Context, productID, categoryID string) error
}

// OrderStore is the host order book.
type OrderStore interface {
	OrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status, note string) error
	AttachTracking(ctx context.Context, id, number, carrier string) error
	AttachPaymentStatus(ctx context.Context, id, status string) error
	DeleteOrder(ctx context.Context, id string) error
}

// LinkStore persists the local↔remote identity mapping, indexed in both
// directions. Save upserts by (kind, local id) and stamps last_synced_at.
type LinkStore interface {
	ByLocal(ctx context.Context, kind models.EntityKind, localID string) (*models.ExternalLink, error)
	ByRemote(ctx context.Context, kind models.EntityKind, remoteID string) (*models.ExternalLink, error)
	Save(ctx context.Context, kind models.EntityKind, localID, remoteID string) (*models.ExternalLink, error)
}

// MediaStore imports remote images. AttachmentBySourceURL is the dedup
// contract: an already-imported asset is never downloaded again.
type MediaStore interface {
	AttachmentBySourceURL(ctx context.Context, url string) (string, error)
	ImportFromURL(ctx context.Context, url string) (string, error)
}

// SettingsStore persists toggles, tokens and schedule configuration.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// StateStore persists the coordinator's log trail and run statistics.
type StateStore interface {
	AppendLog(ctx context.Context, entry *models.SyncLog) error
	RecentLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
	ClearLogs(ctx context.Context) error
	SaveStat(ctx context.Context, stat *models.SyncStat) error
	LoadStats(ctx context.Context) ([]models.SyncStat, error)
}

// RemoteAPI is the slice of the Nhanh.vn client the reconcilers use.
type RemoteAPI interface {
	IsTokenExpired(ctx context.Context) bool
	ProductPage(ctx context.Context, page, limit int, updatedFrom *time.Time) (*nhanh.ProductPage, error)
	ProductDetail(ctx context.Context, remoteID string) (*nhanh.ProductRecord, error)
	SearchProductBySKU(ctx context.Context, sku string) (*nhanh.ProductRecord, error)
	InventoryPage(ctx context.Context, page, limit int, warehouseID string) (*nhanh.InventoryPage, error)
	UpdateInventory(ctx context.Context, remoteProductID string, quantity int, warehouseID string) error
	AddOrder(ctx context.Context, push *nhanh.OrderPush) (string, error)
	UpdateOrderStatus(ctx context.Context, remoteID, status string) error
	OrderDetail(ctx context.Context, remoteID string) (*nhanh.OrderDetail, error)
}
