package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

// InventoryReconciler keeps stock levels aligned in both directions.
type InventoryReconciler struct {
	api      RemoteAPI
	catalog  CatalogStore
	links    LinkStore
	settings SettingsStore
	coord    *Coordinator
	log      *logger.Logger
	pageSize int
}

func NewInventoryReconciler(api RemoteAPI, catalog CatalogStore, links LinkStore, settings SettingsStore, coord *Coordinator, log *logger.Logger) *InventoryReconciler {
	return &InventoryReconciler{
		api:      api,
		catalog:  catalog,
		links:    links,
		settings: settings,
		coord:    coord,
		log:      log,
		pageSize: defaultPageSize,
	}
}

// Pull walks the remote inventory and applies each level to its linked local
// product. Inventory resolution never falls back to SKU: a record without a
// link is a failure, since guessed stock writes are worse than none.
func (r *InventoryReconciler) Pull(ctx context.Context) (Results, error) {
	var res Results

	if r.api.IsTokenExpired(ctx) {
		r.coord.Record(ctx, TypeInventory, StatusError, "Access token missing or expired, connect to Nhanh.vn first")
		return res, &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		r.coord.Record(ctx, TypeInventory, StatusWarning, fmt.Sprintf("Inventory sync skipped, rate limited for another %s", r.coord.RateLimitWait().Round(time.Second)))
		return res, err
	}

	warehouseID, _ := r.settings.Get(ctx, SettingWarehouseID)

	page, totalPages := 1, 1
	for page <= totalPages {
		if err := ctx.Err(); err != nil {
			r.coord.Record(ctx, TypeInventory, StatusWarning, fmt.Sprintf("Inventory sync cancelled on page %d", page))
			return res, err
		}
		if err := r.coord.RateLimited(); err != nil {
			r.coord.ReportRun(ctx, TypeInventory, res)
			return res, err
		}

		batch, err := r.api.InventoryPage(ctx, page, r.pageSize, warehouseID)
		if err != nil {
			r.coord.HandleRemoteError(ctx, err)
			r.coord.Record(ctx, TypeInventory, StatusError, fmt.Sprintf("Failed to fetch inventory page %d: %v", page, err))
			r.coord.ReportRun(ctx, TypeInventory, res)
			return res, err
		}

		res.Total += len(batch.Items)
		for i := range batch.Items {
			if err := r.ApplyRecord(ctx, &batch.Items[i]); err != nil {
				res.Failed++
				r.log.Warn("Failed to apply inventory for remote product %s: %v", batch.Items[i].RemoteProductID(), err)
				continue
			}
			res.Synced++
		}
		if batch.TotalPages > 0 {
			totalPages = batch.TotalPages
		}
		page++
	}

	r.coord.ReportRun(ctx, TypeInventory, res)
	r.coord.Record(ctx, TypeInventory, StatusSuccess, fmt.Sprintf("Inventory synced: %d ok, %d failed of %d", res.Synced, res.Failed, res.Total))
	return res, nil
}

// ApplyRecord writes one remote stock level to its linked local product.
func (r *InventoryReconciler) ApplyRecord(ctx context.Context, rec *nhanh.InventoryRecord) error {
	link, err := r.links.ByRemote(ctx, models.EntityProduct, rec.RemoteProductID())
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remote product %s is not linked to any local product", rec.RemoteProductID())
	}
	if err != nil {
		return err
	}
	if err := r.catalog.SetStock(ctx, link.LocalID, rec.Quantity, rec.Quantity > 0); err != nil {
		return err
	}
	_, err = r.links.Save(ctx, models.EntityProduct, link.LocalID, link.RemoteID)
	return err
}

// PushStock propagates a local stock change to Nhanh.vn. It is gated on the
// auto-push toggle and quietly skips unlinked products.
func (r *InventoryReconciler) PushStock(ctx context.Context, productID string, quantity int) error {
	enabled, _ := r.settings.Get(ctx, SettingAutoPushStock)
	if enabled != "1" {
		return nil
	}
	if r.api.IsTokenExpired(ctx) {
		r.coord.Record(ctx, TypeInventory, StatusError, "Cannot push stock, access token missing or expired")
		return &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		r.coord.Record(ctx, TypeInventory, StatusWarning, fmt.Sprintf("Stock push for %s skipped, rate limited", productID))
		return err
	}

	link, err := r.links.ByLocal(ctx, models.EntityProduct, productID)
	if errors.Is(err, ErrNotFound) {
		r.log.Debug("Product %s has no Nhanh.vn link, skipping stock push", productID)
		return nil
	}
	if err != nil {
		return err
	}

	warehouseID, _ := r.settings.Get(ctx, SettingWarehouseID)
	if err := r.api.UpdateInventory(ctx, link.RemoteID, quantity, warehouseID); err != nil {
		r.coord.HandleRemoteError(ctx, err)
		r.coord.Record(ctx, TypeInventory, StatusError, fmt.Sprintf("Failed to push stock for product %s: %v", productID, err))
		return err
	}
	r.log.Debug("Pushed stock %d for product %s to Nhanh.vn", quantity, productID)
	return nil
}
