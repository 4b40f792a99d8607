package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

type inventoryFixture struct {
	api      *fakeAPI
	catalog  *fakeCatalog
	links    *fakeLinks
	settings *fakeSettings
	coord    *Coordinator
	rec      *InventoryReconciler
}

func newInventoryFixture(t *testing.T, settings map[string]string) *inventoryFixture {
	t.Helper()
	log := logger.New("error")
	s := newFakeSettings(settings)
	f := &inventoryFixture{
		api:      newFakeAPI(),
		catalog:  newFakeCatalog(),
		links:    newFakeLinks(),
		settings: s,
		coord:    NewCoordinator(s, newFakeState(), log),
	}
	f.rec = NewInventoryReconciler(f.api, f.catalog, f.links, f.settings, f.coord, log)
	return f
}

func (f *inventoryFixture) linkedProduct(t *testing.T, sku, remoteID string) *models.Product {
	t.Helper()
	ctx := context.Background()
	product := &models.Product{SKU: sku, Name: sku, StockQuantity: 1, InStock: true}
	require.NoError(t, f.catalog.SaveProduct(ctx, product))
	_, err := f.links.Save(ctx, models.EntityProduct, product.ID, remoteID)
	require.NoError(t, err)
	return product
}

func TestApplyRecordSetsStock(t *testing.T) {
	f := newInventoryFixture(t, nil)
	product := f.linkedProduct(t, "ABC", "99")

	require.NoError(t, f.rec.ApplyRecord(context.Background(), &nhanh.InventoryRecord{ProductID: 99, Quantity: 0}))

	stored := f.catalog.products[product.ID]
	assert.Equal(t, 0, stored.StockQuantity)
	assert.False(t, stored.InStock)
}

func TestApplyRecordUnlinkedFails(t *testing.T) {
	f := newInventoryFixture(t, nil)

	err := f.rec.ApplyRecord(context.Background(), &nhanh.InventoryRecord{ProductID: 42, Quantity: 7})
	require.Error(t, err)
}

func TestInventoryPullCountsUnlinkedAsFailed(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.linkedProduct(t, "ABC", "1")

	f.api.inventoryPages = []nhanh.InventoryPage{
		{Items: []nhanh.InventoryRecord{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 9},
		}},
	}

	res, err := f.rec.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Results{Total: 2, Synced: 1, Failed: 1}, res)
}

func TestPushStockDisabledByDefault(t *testing.T) {
	f := newInventoryFixture(t, nil)
	product := f.linkedProduct(t, "ABC", "99")

	require.NoError(t, f.rec.PushStock(context.Background(), product.ID, 12))
	assert.Empty(t, f.api.inventoryPushes)
}

func TestPushStockUnlinkedIsSkipped(t *testing.T) {
	f := newInventoryFixture(t, map[string]string{SettingAutoPushStock: "1"})

	require.NoError(t, f.rec.PushStock(context.Background(), "no-such-product", 12))
	assert.Empty(t, f.api.inventoryPushes)
}

func TestPushStockSendsWarehouse(t *testing.T) {
	f := newInventoryFixture(t, map[string]string{
		SettingAutoPushStock: "1",
		SettingWarehouseID:   "175",
	})
	product := f.linkedProduct(t, "ABC", "99")

	require.NoError(t, f.rec.PushStock(context.Background(), product.ID, 12))
	require.Len(t, f.api.inventoryPushes, 1)
	assert.Equal(t, "99:12:175", f.api.inventoryPushes[0])
}
