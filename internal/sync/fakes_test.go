package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

type fakeSettings struct {
	mu     gosync.Mutex
	values map[string]string
}

func newFakeSettings(seed map[string]string) *fakeSettings {
	if seed == nil {
		seed = map[string]string{}
	}
	return &fakeSettings{values: seed}
}

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

type fakeState struct {
	mu    gosync.Mutex
	logs  []models.SyncLog
	stats map[string]models.SyncStat
}

func newFakeState() *fakeState {
	return &fakeState{stats: map[string]models.SyncStat{}}
}

func (f *fakeState) AppendLog(_ context.Context, entry *models.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeState) RecentLogs(_ context.Context, limit int) ([]models.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.logs[i])
	}
	return out, nil
}

func (f *fakeState) ClearLogs(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = nil
	return nil
}

func (f *fakeState) SaveStat(_ context.Context, stat *models.SyncStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[stat.Type] = *stat
	return nil
}

func (f *fakeState) LoadStats(_ context.Context) ([]models.SyncStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncStat
	for _, stat := range f.stats {
		out = append(out, stat)
	}
	return out, nil
}

type fakeCatalog struct {
	products   map[string]*models.Product
	categories map[string]string
	saves      int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:   map[string]*models.Product{},
		categories: map[string]string{},
	}
}

func (f *fakeCatalog) ProductByID(_ context.Context, id string) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeCatalog) ProductBySKU(_ context.Context, sku string) (*models.Product, error) {
	for _, p := range f.products {
		if p.SKU == sku {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeCatalog) SaveProduct(_ context.Context, p *models.Product) error {
	f.saves++
	if p.ID == "" {
		for _, existing := range f.products {
			if existing.SKU == p.SKU {
				p.ID = existing.ID
				break
			}
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	clone := *p
	f.products[p.ID] = &clone
	return nil
}

func (f *fakeCatalog) DeleteProduct(_ context.Context, id string) error {
	delete(f.products, id)
	return nil
}

func (f *fakeCatalog) SetStock(_ context.Context, id string, quantity int, inStock bool) error {
	p, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	p.StockQuantity = quantity
	p.InStock = inStock
	return nil
}

func (f *fakeCatalog) FindOrCreateCategory(_ context.Context, name string) (string, error) {
	if id, ok := f.categories[name]; ok {
		return id, nil
	}
	id := uuid.New().String()
	f.categories[name] = id
	return id, nil
}

func (f *fakeCatalog) AssignCategory(_ context.Context, productID, categoryID string) error {
	p, ok := f.products[productID]
	if !ok {
		return ErrNotFound
	}
	p.CategoryID = &categoryID
	return nil
}

type fakeOrders struct {
	orders map[string]*models.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*models.Order{}}
}

func (f *fakeOrders) OrderByID(_ context.Context, id string) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		clone := *o
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, id, status, note string) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.StatusNote = note
	return nil
}

func (f *fakeOrders) AttachTracking(_ context.Context, id, number, carrier string) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.TrackingNumber = &number
	o.Carrier = &carrier
	return nil
}

func (f *fakeOrders) AttachPaymentStatus(_ context.Context, id, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = &status
	return nil
}

func (f *fakeOrders) DeleteOrder(_ context.Context, id string) error {
	delete(f.orders, id)
	return nil
}

type fakeLinks struct {
	links map[string]*models.ExternalLink
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: map[string]*models.ExternalLink{}}
}

func linkKey(kind models.EntityKind, localID string) string {
	return string(kind) + "/" + localID
}

func (f *fakeLinks) ByLocal(_ context.Context, kind models.EntityKind, localID string) (*models.ExternalLink, error) {
	if l, ok := f.links[linkKey(kind, localID)]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeLinks) ByRemote(_ context.Context, kind models.EntityKind, remoteID string) (*models.ExternalLink, error) {
	for _, l := range f.links {
		if l.EntityKind == kind && l.RemoteID == remoteID {
			clone := *l
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeLinks) Save(_ context.Context, kind models.EntityKind, localID, remoteID string) (*models.ExternalLink, error) {
	now := time.Now()
	link := &models.ExternalLink{
		ID:           uuid.New().String(),
		EntityKind:   kind,
		LocalID:      localID,
		RemoteID:     remoteID,
		LastSyncedAt: &now,
	}
	f.links[linkKey(kind, localID)] = link
	clone := *link
	return &clone, nil
}

type fakeMedia struct {
	imported map[string]string
	imports  int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{imported: map[string]string{}}
}

func (f *fakeMedia) AttachmentBySourceURL(_ context.Context, url string) (string, error) {
	if id, ok := f.imported[url]; ok {
		return id, nil
	}
	return "", ErrNotFound
}

func (f *fakeMedia) ImportFromURL(_ context.Context, url string) (string, error) {
	f.imports++
	id := uuid.New().String()
	f.imported[url] = id
	return id, nil
}

// fakeAPI is a scriptable RemoteAPI. Unset lookups return NotFoundError the
// way the real client does.
type fakeAPI struct {
	tokenExpired bool

	productPages   []nhanh.ProductPage
	pageCalls      int
	pageErr        error
	details        map[string]*nhanh.ProductRecord
	bySKU          map[string]*nhanh.ProductRecord
	inventoryPages []nhanh.InventoryPage
	invPageCalls   int

	addOrderID    string
	addOrderErr   error
	addOrderCalls int
	lastPush      *nhanh.OrderPush

	statusUpdates   map[string]string
	inventoryPushes []string
	orderDetails    map[string]*nhanh.OrderDetail
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		details:       map[string]*nhanh.ProductRecord{},
		bySKU:         map[string]*nhanh.ProductRecord{},
		statusUpdates: map[string]string{},
		orderDetails:  map[string]*nhanh.OrderDetail{},
	}
}

func (f *fakeAPI) IsTokenExpired(context.Context) bool { return f.tokenExpired }

func (f *fakeAPI) ProductPage(_ context.Context, page, _ int, _ *time.Time) (*nhanh.ProductPage, error) {
	f.pageCalls++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if page < 1 || page > len(f.productPages) {
		return &nhanh.ProductPage{TotalPages: len(f.productPages)}, nil
	}
	result := f.productPages[page-1]
	result.TotalPages = len(f.productPages)
	return &result, nil
}

func (f *fakeAPI) ProductDetail(_ context.Context, remoteID string) (*nhanh.ProductRecord, error) {
	if rec, ok := f.details[remoteID]; ok {
		return rec, nil
	}
	return nil, &nhanh.NotFoundError{Kind: "product", ID: remoteID}
}

func (f *fakeAPI) SearchProductBySKU(_ context.Context, sku string) (*nhanh.ProductRecord, error) {
	if rec, ok := f.bySKU[sku]; ok {
		return rec, nil
	}
	return nil, &nhanh.NotFoundError{Kind: "product", ID: sku}
}

func (f *fakeAPI) InventoryPage(_ context.Context, page, _ int, _ string) (*nhanh.InventoryPage, error) {
	f.invPageCalls++
	if page < 1 || page > len(f.inventoryPages) {
		return &nhanh.InventoryPage{TotalPages: len(f.inventoryPages)}, nil
	}
	result := f.inventoryPages[page-1]
	result.TotalPages = len(f.inventoryPages)
	return &result, nil
}

func (f *fakeAPI) UpdateInventory(_ context.Context, remoteProductID string, quantity int, warehouseID string) error {
	f.inventoryPushes = append(f.inventoryPushes, fmt.Sprintf("%s:%d:%s", remoteProductID, quantity, warehouseID))
	return nil
}

func (f *fakeAPI) AddOrder(_ context.Context, push *nhanh.OrderPush) (string, error) {
	f.addOrderCalls++
	f.lastPush = push
	if f.addOrderErr != nil {
		return "", f.addOrderErr
	}
	if f.addOrderID == "" {
		return "9001", nil
	}
	return f.addOrderID, nil
}

func (f *fakeAPI) UpdateOrderStatus(_ context.Context, remoteID, status string) error {
	f.statusUpdates[remoteID] = status
	return nil
}

func (f *fakeAPI) OrderDetail(_ context.Context, remoteID string) (*nhanh.OrderDetail, error) {
	if detail, ok := f.orderDetails[remoteID]; ok {
		return detail, nil
	}
	return nil, &nhanh.NotFoundError{Kind: "order", ID: remoteID}
}
