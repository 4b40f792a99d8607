package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

const defaultPageSize = 50

// ProductReconciler pulls the Nhanh.vn catalog into the local one.
type ProductReconciler struct {
	api      RemoteAPI
	catalog  CatalogStore
	links    LinkStore
	media    MediaStore
	settings SettingsStore
	coord    *Coordinator
	log      *logger.Logger
	pageSize int
}

func NewProductReconciler(api RemoteAPI, catalog CatalogStore, links LinkStore, media MediaStore, settings SettingsStore, coord *Coordinator, log *logger.Logger) *ProductReconciler {
	return &ProductReconciler{
		api:      api,
		catalog:  catalog,
		links:    links,
		media:    media,
		settings: settings,
		coord:    coord,
		log:      log,
		pageSize: defaultPageSize,
	}
}

// Pull walks every page of the remote catalog and upserts each record. Only
// products changed since the last completed run are requested. A page fetch
// failure aborts the walk; a single bad record only counts against the run.
func (r *ProductReconciler) Pull(ctx context.Context) (Results, error) {
	var res Results

	if r.api.IsTokenExpired(ctx) {
		r.coord.Record(ctx, TypeProducts, StatusError, "Access token missing or expired, connect to Nhanh.vn first")
		return res, &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		r.coord.Record(ctx, TypeProducts, StatusWarning, fmt.Sprintf("Product sync skipped, rate limited for another %s", r.coord.RateLimitWait().Round(time.Second)))
		return res, err
	}

	updatedFrom := r.lastRun(ctx)
	started := time.Now()

	page, totalPages := 1, 1
	for page <= totalPages {
		if err := ctx.Err(); err != nil {
			r.coord.Record(ctx, TypeProducts, StatusWarning, fmt.Sprintf("Product sync cancelled on page %d", page))
			return res, err
		}
		if err := r.coord.RateLimited(); err != nil {
			r.coord.ReportRun(ctx, TypeProducts, res)
			return res, err
		}

		batch, err := r.api.ProductPage(ctx, page, r.pageSize, updatedFrom)
		if err != nil {
			r.coord.HandleRemoteError(ctx, err)
			r.coord.Record(ctx, TypeProducts, StatusError, fmt.Sprintf("Failed to fetch product page %d: %v", page, err))
			r.coord.ReportRun(ctx, TypeProducts, res)
			return res, err
		}

		res.Total += len(batch.Products)
		for i := range batch.Products {
			if err := r.Upsert(ctx, &batch.Products[i]); err != nil {
				res.Failed++
				if r.coord.HandleRemoteError(ctx, err) {
					r.coord.ReportRun(ctx, TypeProducts, res)
					return res, err
				}
				r.log.Warn("Failed to sync product %s: %v", batch.Products[i].Code, err)
				continue
			}
			res.Synced++
		}
		if batch.TotalPages > 0 {
			totalPages = batch.TotalPages
		}
		page++
	}

	if err := r.settings.Set(ctx, SettingLastProductSync, strconv.FormatInt(started.Unix(), 10)); err != nil {
		r.log.Error("Failed to persist last product sync time: %v", err)
	}
	r.coord.ReportRun(ctx, TypeProducts, res)
	r.coord.Record(ctx, TypeProducts, StatusSuccess, fmt.Sprintf("Products synced: %d ok, %d failed of %d", res.Synced, res.Failed, res.Total))
	return res, nil
}

func (r *ProductReconciler) lastRun(ctx context.Context) *time.Time {
	raw, err := r.settings.Get(ctx, SettingLastProductSync)
	if err != nil || raw == "" {
		return nil
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	at := time.Unix(unix, 0)
	return &at
}

// Upsert applies one remote record to the local catalog. Resolution is by
// identity link first, then by SKU; an unmatched record creates a product,
// but only when it carries a code. Running it twice with the same record
// yields one product and one link.
func (r *ProductReconciler) Upsert(ctx context.Context, rec *nhanh.ProductRecord) error {
	product, err := r.resolve(ctx, rec)
	if err != nil {
		return err
	}

	created := product == nil
	if created {
		// Creation is keyed on the SKU; without one, every codeless
		// record would collapse onto the same empty-SKU row and steal
		// its identity link.
		if rec.Code == "" {
			return &nhanh.ValidationError{Reason: fmt.Sprintf("remote product %s has no code", rec.RemoteID())}
		}
		product = &models.Product{SKU: rec.Code}
	}
	r.apply(product, rec)
	if err := r.catalog.SaveProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to save product %s: %w", rec.Code, err)
	}
	if _, err := r.links.Save(ctx, models.EntityProduct, product.ID, rec.RemoteID()); err != nil {
		return fmt.Errorf("failed to link product %s: %w", rec.Code, err)
	}

	// Images and category are best effort; their failures never fail the
	// record itself.
	r.attachImages(ctx, product, rec.Images)
	r.attachCategory(ctx, product, rec.CategoryName)

	if created {
		r.log.Debug("Created product %s from Nhanh.vn id %s", rec.Code, rec.RemoteID())
	}
	return nil
}

// resolve finds the local product a record belongs to, or nil when it is
// new. A link whose local target vanished is a per-record failure, not an
// invitation to create a duplicate.
func (r *ProductReconciler) resolve(ctx context.Context, rec *nhanh.ProductRecord) (*models.Product, error) {
	link, err := r.links.ByRemote(ctx, models.EntityProduct, rec.RemoteID())
	if err == nil {
		product, err := r.catalog.ProductByID(ctx, link.LocalID)
		if err != nil {
			return nil, fmt.Errorf("link target %s missing for remote product %s: %w", link.LocalID, rec.RemoteID(), err)
		}
		return product, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if rec.Code == "" {
		return nil, nil
	}
	product, err := r.catalog.ProductBySKU(ctx, rec.Code)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *ProductReconciler) apply(product *models.Product, rec *nhanh.ProductRecord) {
	product.Name = rec.Name
	if rec.Code != "" {
		product.SKU = rec.Code
	}
	product.Price = rec.Price
	if rec.SalePrice > 0 && rec.SalePrice < rec.Price {
		sale := rec.SalePrice
		product.SalePrice = &sale
	} else {
		product.SalePrice = nil
	}
	if rec.Description != "" {
		desc := rec.Description
		product.Description = &desc
	}
	if rec.ShortDescription != "" {
		short := rec.ShortDescription
		product.ShortDescription = &short
	}
	if rec.ShippingWeight > 0 {
		weight := rec.ShippingWeight
		product.Weight = &weight
	}
	product.StockQuantity = rec.Quantity
	product.InStock = rec.Quantity > 0
	if rec.Status == nhanh.ProductInactive {
		product.Status = models.ProductStatusDraft
	} else {
		product.Status = models.ProductStatusPublished
	}
}

// attachImages imports remote images, first one as the primary, the rest as
// the gallery in their original order. Already-imported URLs are reused.
func (r *ProductReconciler) attachImages(ctx context.Context, product *models.Product, urls []string) {
	var ids []string
	for _, url := range urls {
		if url == "" {
			continue
		}
		id, err := r.media.AttachmentBySourceURL(ctx, url)
		if errors.Is(err, ErrNotFound) {
			id, err = r.media.ImportFromURL(ctx, url)
		}
		if err != nil {
			r.log.Warn("Failed to import image %s for product %s: %v", url, product.SKU, err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	product.ImageID = &ids[0]
	product.GalleryIDs = ids[1:]
	if err := r.catalog.SaveProduct(ctx, product); err != nil {
		r.log.Warn("Failed to save images for product %s: %v", product.SKU, err)
	}
}

func (r *ProductReconciler) attachCategory(ctx context.Context, product *models.Product, name string) {
	if name == "" {
		return
	}
	categoryID, err := r.catalog.FindOrCreateCategory(ctx, name)
	if err != nil {
		r.log.Warn("Failed to resolve category %q: %v", name, err)
		return
	}
	if err := r.catalog.AssignCategory(ctx, product.ID, categoryID); err != nil {
		r.log.Warn("Failed to assign category %q to product %s: %v", name, product.SKU, err)
	}
}

// SyncOne refreshes a single local product from its remote counterpart,
// resolving through the link table first and falling back to a SKU search
// when the product was never linked.
func (r *ProductReconciler) SyncOne(ctx context.Context, productID string) error {
	if r.api.IsTokenExpired(ctx) {
		return &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		return err
	}

	var rec *nhanh.ProductRecord
	link, err := r.links.ByLocal(ctx, models.EntityProduct, productID)
	switch {
	case err == nil:
		rec, err = r.api.ProductDetail(ctx, link.RemoteID)
	case errors.Is(err, ErrNotFound):
		var product *models.Product
		product, err = r.catalog.ProductByID(ctx, productID)
		if err != nil {
			return err
		}
		rec, err = r.api.SearchProductBySKU(ctx, product.SKU)
	default:
		return err
	}
	if err != nil {
		r.coord.HandleRemoteError(ctx, err)
		r.coord.Record(ctx, TypeProducts, StatusError, fmt.Sprintf("Failed to refresh product %s: %v", productID, err))
		return err
	}

	if err := r.Upsert(ctx, rec); err != nil {
		r.coord.Record(ctx, TypeProducts, StatusError, fmt.Sprintf("Failed to refresh product %s: %v", productID, err))
		return err
	}
	r.coord.Record(ctx, TypeProducts, StatusSuccess, fmt.Sprintf("Product %s refreshed from Nhanh.vn", rec.Code))
	return nil
}

// Link associates an existing local product with a remote one by SKU
// without touching any product fields.
func (r *ProductReconciler) Link(ctx context.Context, productID string) (*models.ExternalLink, error) {
	if r.api.IsTokenExpired(ctx) {
		return nil, &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	product, err := r.catalog.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	rec, err := r.api.SearchProductBySKU(ctx, product.SKU)
	if err != nil {
		r.coord.HandleRemoteError(ctx, err)
		return nil, err
	}
	return r.links.Save(ctx, models.EntityProduct, productID, rec.RemoteID())
}

// DeleteByRemote removes the local product behind a remote id, if any.
func (r *ProductReconciler) DeleteByRemote(ctx context.Context, remoteID string) error {
	link, err := r.links.ByRemote(ctx, models.EntityProduct, remoteID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.catalog.DeleteProduct(ctx, link.LocalID)
}
