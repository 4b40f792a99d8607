package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

type productFixture struct {
	api      *fakeAPI
	catalog  *fakeCatalog
	links    *fakeLinks
	media    *fakeMedia
	settings *fakeSettings
	coord    *Coordinator
	rec      *ProductReconciler
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	log := logger.New("error")
	settings := newFakeSettings(nil)
	f := &productFixture{
		api:      newFakeAPI(),
		catalog:  newFakeCatalog(),
		links:    newFakeLinks(),
		media:    newFakeMedia(),
		settings: settings,
		coord:    NewCoordinator(settings, newFakeState(), log),
	}
	f.rec = NewProductReconciler(f.api, f.catalog, f.links, f.media, f.settings, f.coord, log)
	return f
}

func remoteProduct(id int64, code string) nhanh.ProductRecord {
	return nhanh.ProductRecord{
		ID:       id,
		Name:     "Product " + code,
		Code:     code,
		Price:    150000,
		Quantity: 5,
		Status:   nhanh.ProductActive,
	}
}

func TestUpsertCreatesProductAndLink(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	rec := remoteProduct(99, "ABC")
	rec.Images = []string{"https://cdn.nhanh.vn/a.jpg", "https://cdn.nhanh.vn/b.jpg"}
	rec.CategoryName = "Shoes"
	require.NoError(t, f.rec.Upsert(ctx, &rec))

	product, err := f.catalog.ProductBySKU(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "Product ABC", product.Name)
	assert.Equal(t, 5, product.StockQuantity)
	assert.True(t, product.InStock)
	assert.Equal(t, models.ProductStatusPublished, product.Status)

	link, err := f.links.ByRemote(ctx, models.EntityProduct, "99")
	require.NoError(t, err)
	assert.Equal(t, product.ID, link.LocalID)

	// First image is primary, the rest are gallery, in order.
	stored := f.catalog.products[product.ID]
	require.NotNil(t, stored.ImageID)
	assert.Equal(t, f.media.imported["https://cdn.nhanh.vn/a.jpg"], *stored.ImageID)
	require.Len(t, stored.GalleryIDs, 1)
	assert.Equal(t, f.media.imported["https://cdn.nhanh.vn/b.jpg"], stored.GalleryIDs[0])
	require.NotNil(t, stored.CategoryID)
}

func TestUpsertIsIdempotent(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	rec := remoteProduct(99, "ABC")
	rec.Images = []string{"https://cdn.nhanh.vn/a.jpg"}
	require.NoError(t, f.rec.Upsert(ctx, &rec))
	require.NoError(t, f.rec.Upsert(ctx, &rec))

	assert.Len(t, f.catalog.products, 1)
	assert.Len(t, f.links.links, 1)
	// The image was only downloaded once.
	assert.Equal(t, 1, f.media.imports)
}

func TestUpsertMatchesExistingProductBySKU(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	existing := &models.Product{SKU: "ABC", Name: "Old name", Price: 1}
	require.NoError(t, f.catalog.SaveProduct(ctx, existing))

	rec := remoteProduct(99, "ABC")
	require.NoError(t, f.rec.Upsert(ctx, &rec))

	assert.Len(t, f.catalog.products, 1)
	product, err := f.catalog.ProductByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product ABC", product.Name)
	assert.Equal(t, float64(150000), product.Price)

	link, err := f.links.ByLocal(ctx, models.EntityProduct, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "99", link.RemoteID)
}

func TestUpsertInactiveBecomesDraft(t *testing.T) {
	f := newProductFixture(t)
	rec := remoteProduct(7, "X1")
	rec.Status = nhanh.ProductInactive
	rec.Quantity = 0

	require.NoError(t, f.rec.Upsert(context.Background(), &rec))

	product, err := f.catalog.ProductBySKU(context.Background(), "X1")
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusDraft, product.Status)
	assert.False(t, product.InStock)
}

func TestUpsertBrokenLinkFails(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	// Link points at a product that no longer exists locally.
	_, err := f.links.Save(ctx, models.EntityProduct, "gone", "99")
	require.NoError(t, err)

	rec := remoteProduct(99, "ABC")
	err = f.rec.Upsert(ctx, &rec)
	require.Error(t, err)
	// No duplicate was created.
	assert.Empty(t, f.catalog.products)
}

func TestPullWalksAllPages(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	f.api.productPages = []nhanh.ProductPage{
		{Products: []nhanh.ProductRecord{remoteProduct(1, "A"), remoteProduct(2, "B")}},
		{Products: []nhanh.ProductRecord{remoteProduct(3, "C")}},
		{Products: []nhanh.ProductRecord{remoteProduct(4, "D")}},
	}

	res, err := f.rec.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.api.pageCalls)
	assert.Equal(t, Results{Total: 4, Synced: 4, Failed: 0}, res)
	assert.Len(t, f.catalog.products, 4)

	// The run stamp enables incremental pulls next time.
	stamp, _ := f.settings.Get(ctx, SettingLastProductSync)
	assert.NotEmpty(t, stamp)
}

func TestPullCountsPerRecordFailures(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	// Remote product 2 resolves through a link whose local target is gone.
	_, err := f.links.Save(ctx, models.EntityProduct, "gone", "2")
	require.NoError(t, err)

	f.api.productPages = []nhanh.ProductPage{
		{Products: []nhanh.ProductRecord{remoteProduct(1, "A"), remoteProduct(2, "B"), remoteProduct(3, "C")}},
	}

	res, err := f.rec.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, Results{Total: 3, Synced: 2, Failed: 1}, res)

	stat := f.coord.Stats()[TypeProducts]
	assert.Equal(t, 3, stat.LastTotal)
	assert.Equal(t, 1, stat.LastFailed)
}

func TestPullRateLimitedMakesNoRemoteCalls(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	f.coord.HandleRemoteError(ctx, &nhanh.RateLimitError{UnlockedAt: time.Now().Add(time.Minute)})

	_, err := f.rec.Pull(ctx)
	var rle *nhanh.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Zero(t, f.api.pageCalls)
}

func TestPullExpiredTokenFails(t *testing.T) {
	f := newProductFixture(t)
	f.api.tokenExpired = true

	_, err := f.rec.Pull(context.Background())
	var auth *nhanh.AuthError
	require.True(t, errors.As(err, &auth))
	assert.Zero(t, f.api.pageCalls)
}

func TestPullCancelledBetweenPages(t *testing.T) {
	f := newProductFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.api.productPages = []nhanh.ProductPage{
		{Products: []nhanh.ProductRecord{remoteProduct(1, "A")}},
	}

	_, err := f.rec.Pull(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.api.pageCalls)
}

func TestSyncOneFallsBackToSKU(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	local := &models.Product{SKU: "ABC", Name: "Stale"}
	require.NoError(t, f.catalog.SaveProduct(ctx, local))
	rec := remoteProduct(99, "ABC")
	f.api.bySKU["ABC"] = &rec

	require.NoError(t, f.rec.SyncOne(ctx, local.ID))

	product, err := f.catalog.ProductByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product ABC", product.Name)

	link, err := f.links.ByLocal(ctx, models.EntityProduct, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "99", link.RemoteID)
}

func TestDeleteByRemote(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	rec := remoteProduct(99, "ABC")
	require.NoError(t, f.rec.Upsert(ctx, &rec))
	require.Len(t, f.catalog.products, 1)

	require.NoError(t, f.rec.DeleteByRemote(ctx, "99"))
	assert.Empty(t, f.catalog.products)

	// Unknown remote ids are a no-op.
	require.NoError(t, f.rec.DeleteByRemote(ctx, "404"))
}

func TestUpsertRejectsCodelessNewRecord(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	first := remoteProduct(1, "")
	first.Name = "First"
	second := remoteProduct(2, "")
	second.Name = "Second"

	var validation *nhanh.ValidationError
	err := f.rec.Upsert(ctx, &first)
	require.True(t, errors.As(err, &validation))
	err = f.rec.Upsert(ctx, &second)
	require.True(t, errors.As(err, &validation))

	// Neither record creates anything; in particular the two must not
	// collapse onto a shared empty-SKU row with a single link.
	assert.Empty(t, f.catalog.products)
	assert.Empty(t, f.links.links)
}

func TestUpsertCodelessRecordUpdatesLinkedProduct(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	linked := remoteProduct(1, "ABC")
	require.NoError(t, f.rec.Upsert(ctx, &linked))

	// A later update from remote 1 without a code still resolves through
	// the link and keeps the product's SKU.
	update := remoteProduct(1, "")
	update.Name = "Renamed"
	require.NoError(t, f.rec.Upsert(ctx, &update))

	// A codeless record for a different remote product is rejected and
	// leaves remote 1's product and link untouched.
	intruder := remoteProduct(2, "")
	intruder.Name = "Intruder"
	require.Error(t, f.rec.Upsert(ctx, &intruder))

	require.Len(t, f.catalog.products, 1)
	product, err := f.catalog.ProductBySKU(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", product.Name)

	link, err := f.links.ByRemote(ctx, models.EntityProduct, "1")
	require.NoError(t, err)
	assert.Equal(t, product.ID, link.LocalID)
	_, err = f.links.ByRemote(ctx, models.EntityProduct, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPullCountsCodelessRecordsAsFailed(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	f.api.productPages = []nhanh.ProductPage{
		{Products: []nhanh.ProductRecord{remoteProduct(1, "A"), remoteProduct(2, ""), remoteProduct(3, "")}},
	}

	res, err := f.rec.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, Results{Total: 3, Synced: 1, Failed: 2}, res)
	assert.Len(t, f.catalog.products, 1)
}

// wrappedNotFoundLinks decorates every lookup miss with context, the way a
// store is free to do.
type wrappedNotFoundLinks struct {
	*fakeLinks
}

func (w *wrappedNotFoundLinks) ByRemote(ctx context.Context, kind models.EntityKind, remoteID string) (*models.ExternalLink, error) {
	link, err := w.fakeLinks.ByRemote(ctx, kind, remoteID)
	if err != nil {
		return nil, fmt.Errorf("link %s/%s: %w", kind, remoteID, err)
	}
	return link, nil
}

func (w *wrappedNotFoundLinks) ByLocal(ctx context.Context, kind models.EntityKind, localID string) (*models.ExternalLink, error) {
	link, err := w.fakeLinks.ByLocal(ctx, kind, localID)
	if err != nil {
		return nil, fmt.Errorf("link %s/%s: %w", kind, localID, err)
	}
	return link, nil
}

func TestUpsertAcceptsWrappedNotFound(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	log := logger.New("error")
	rec := NewProductReconciler(f.api, f.catalog, &wrappedNotFoundLinks{f.links}, f.media, f.settings, f.coord, log)

	record := remoteProduct(42, "XYZ")
	require.NoError(t, rec.Upsert(ctx, &record))

	product, err := f.catalog.ProductBySKU(ctx, "XYZ")
	require.NoError(t, err)
	link, err := f.links.ByRemote(ctx, models.EntityProduct, "42")
	require.NoError(t, err)
	assert.Equal(t, product.ID, link.LocalID)
}
