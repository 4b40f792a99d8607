package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

// OrderReconciler pushes local orders to Nhanh.vn and pulls status and
// shipment updates back.
type OrderReconciler struct {
	api      RemoteAPI
	orders   OrderStore
	catalog  CatalogStore
	links    LinkStore
	settings SettingsStore
	coord    *Coordinator
	log      *logger.Logger
}

func NewOrderReconciler(api RemoteAPI, orders OrderStore, catalog CatalogStore, links LinkStore, settings SettingsStore, coord *Coordinator, log *logger.Logger) *OrderReconciler {
	return &OrderReconciler{
		api:      api,
		orders:   orders,
		catalog:  catalog,
		links:    links,
		settings: settings,
		coord:    coord,
		log:      log,
	}
}

func (r *OrderReconciler) enabled(ctx context.Context) bool {
	v, _ := r.settings.Get(ctx, SettingSyncOrders)
	return v == "1"
}

// PushNew sends a local order to Nhanh.vn and records the identity link. An
// order whose lines all fail to resolve to remote products is rejected
// before any remote call is made.
func (r *OrderReconciler) PushNew(ctx context.Context, orderID string) (*models.ExternalLink, error) {
	if !r.enabled(ctx) {
		return nil, nil
	}
	if r.api.IsTokenExpired(ctx) {
		r.coord.Record(ctx, TypeOrders, StatusError, "Cannot push order, access token missing or expired")
		return nil, &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		r.coord.Record(ctx, TypeOrders, StatusWarning, fmt.Sprintf("Order %s push skipped, rate limited", orderID))
		return nil, err
	}

	if link, err := r.links.ByLocal(ctx, models.EntityOrder, orderID); err == nil {
		return link, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	order, err := r.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines := r.resolveLines(ctx, order)
	if len(lines) == 0 {
		r.coord.Record(ctx, TypeOrders, StatusError, fmt.Sprintf("Order %s has no items matched on Nhanh.vn, push aborted", order.Number))
		r.coord.ReportRun(ctx, TypeOrders, Results{Total: 1, Failed: 1})
		return nil, &nhanh.ValidationError{Reason: fmt.Sprintf("order %s has no resolvable items", order.Number)}
	}

	push := &nhanh.OrderPush{
		Code:            order.Number,
		Type:            "Shopping",
		CustomerShipFee: order.ShippingTotal,
		CustomerNote:    order.CustomerNote,
		Products:        lines,
	}
	push.Customer.Name = order.CustomerName
	push.Customer.Mobile = order.CustomerPhone
	push.Customer.Email = order.CustomerEmail
	push.Customer.Address = order.Address
	push.Customer.CityName = order.City
	push.Customer.DistrictName = order.District

	remoteID, err := r.api.AddOrder(ctx, push)
	if err != nil {
		r.coord.HandleRemoteError(ctx, err)
		r.coord.Record(ctx, TypeOrders, StatusError, fmt.Sprintf("Failed to push order %s: %v", order.Number, err))
		r.coord.ReportRun(ctx, TypeOrders, Results{Total: 1, Failed: 1})
		return nil, err
	}

	link, err := r.links.Save(ctx, models.EntityOrder, orderID, remoteID)
	if err != nil {
		return nil, err
	}
	r.coord.ReportRun(ctx, TypeOrders, Results{Total: 1, Synced: 1})
	r.coord.Record(ctx, TypeOrders, StatusSuccess, fmt.Sprintf("Order %s pushed to Nhanh.vn as %s", order.Number, remoteID))
	return link, nil
}

// resolveLines maps order items to remote product lines. Resolution goes
// through the link table first and falls back to a SKU search, persisting
// any link it discovers. Unresolvable items are skipped.
func (r *OrderReconciler) resolveLines(ctx context.Context, order *models.Order) []nhanh.OrderLine {
	var lines []nhanh.OrderLine
	for _, item := range order.Items {
		remoteID, err := r.resolveItem(ctx, item.ProductID)
		if err != nil {
			r.log.Warn("Order %s item %s not matched on Nhanh.vn: %v", order.Number, item.ProductID, err)
			continue
		}
		id, err := strconv.ParseInt(remoteID, 10, 64)
		if err != nil {
			r.log.Warn("Order %s item %s has malformed remote id %q", order.Number, item.ProductID, remoteID)
			continue
		}
		price := item.LineTotal
		if item.Quantity > 0 {
			price = item.LineTotal / float64(item.Quantity)
		}
		lines = append(lines, nhanh.OrderLine{ProductID: id, Quantity: item.Quantity, Price: price})
	}
	return lines
}

func (r *OrderReconciler) resolveItem(ctx context.Context, productID string) (string, error) {
	link, err := r.links.ByLocal(ctx, models.EntityProduct, productID)
	if err == nil {
		return link.RemoteID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	product, err := r.catalog.ProductByID(ctx, productID)
	if err != nil {
		return "", err
	}
	rec, err := r.api.SearchProductBySKU(ctx, product.SKU)
	if err != nil {
		return "", err
	}
	if _, err := r.links.Save(ctx, models.EntityProduct, productID, rec.RemoteID()); err != nil {
		r.log.Warn("Failed to persist discovered link for product %s: %v", productID, err)
	}
	return rec.RemoteID(), nil
}

// PushStatusChange propagates a local status transition to Nhanh.vn. A
// status with no remote mapping is an intentional no-op, and an order that
// was never pushed gets pushed first.
func (r *OrderReconciler) PushStatusChange(ctx context.Context, orderID, newStatus string) error {
	if !r.enabled(ctx) {
		return nil
	}
	remoteStatus, ok := nhanh.StatusFromLocal(newStatus)
	if !ok {
		r.log.Debug("Local status %q has no Nhanh.vn mapping, skipping order %s", newStatus, orderID)
		return nil
	}
	if r.api.IsTokenExpired(ctx) {
		r.coord.Record(ctx, TypeOrders, StatusError, "Cannot update order status, access token missing or expired")
		return &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		r.coord.Record(ctx, TypeOrders, StatusWarning, fmt.Sprintf("Status update for order %s skipped, rate limited", orderID))
		return err
	}

	link, err := r.links.ByLocal(ctx, models.EntityOrder, orderID)
	if errors.Is(err, ErrNotFound) {
		link, err = r.PushNew(ctx, orderID)
		if err != nil || link == nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := r.api.UpdateOrderStatus(ctx, link.RemoteID, remoteStatus); err != nil {
		r.coord.HandleRemoteError(ctx, err)
		r.coord.Record(ctx, TypeOrders, StatusError, fmt.Sprintf("Failed to update Nhanh.vn status for order %s: %v", orderID, err))
		return err
	}
	r.coord.Record(ctx, TypeOrders, StatusSuccess, fmt.Sprintf("Order %s status pushed to Nhanh.vn as %s", orderID, remoteStatus))
	return nil
}

// PullStatus refreshes a local order from its remote counterpart, mapping
// the remote status into the local vocabulary and persisting any shipment
// details that arrived with it.
func (r *OrderReconciler) PullStatus(ctx context.Context, orderID string) (string, error) {
	if r.api.IsTokenExpired(ctx) {
		return "", &nhanh.AuthError{Reason: "access token missing or expired"}
	}
	if err := r.coord.RateLimited(); err != nil {
		return "", err
	}

	link, err := r.links.ByLocal(ctx, models.EntityOrder, orderID)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("order %s was never pushed to Nhanh.vn", orderID)
	}
	if err != nil {
		return "", err
	}

	detail, err := r.api.OrderDetail(ctx, link.RemoteID)
	if err != nil {
		r.coord.HandleRemoteError(ctx, err)
		r.coord.Record(ctx, TypeOrders, StatusError, fmt.Sprintf("Failed to pull order %s from Nhanh.vn: %v", orderID, err))
		return "", err
	}

	local := nhanh.StatusToLocal(detail.Status)
	if err := r.orders.UpdateOrderStatus(ctx, orderID, local, "Status updated from Nhanh.vn"); err != nil {
		return "", err
	}
	if detail.ShipmentInfo != nil && detail.ShipmentInfo.TrackingNumber != "" {
		if err := r.orders.AttachTracking(ctx, orderID, detail.ShipmentInfo.TrackingNumber, detail.ShipmentInfo.Carrier); err != nil {
			r.log.Warn("Failed to persist tracking for order %s: %v", orderID, err)
		}
	}
	r.coord.Record(ctx, TypeOrders, StatusSuccess, fmt.Sprintf("Order %s pulled from Nhanh.vn, status %s", orderID, local))
	return local, nil
}

// ApplyRemoteUpdate handles an inbound order change for a remote order id:
// status mapping, tracking and an optional payment marker. Unlinked remote
// orders are ignored.
func (r *OrderReconciler) ApplyRemoteUpdate(ctx context.Context, remoteID, remoteStatus string, shipment *nhanh.ShipmentInfo) error {
	link, err := r.links.ByRemote(ctx, models.EntityOrder, remoteID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remote order %s is not linked to any local order", remoteID)
	}
	if err != nil {
		return err
	}

	if remoteStatus != "" {
		local := nhanh.StatusToLocal(remoteStatus)
		if err := r.orders.UpdateOrderStatus(ctx, link.LocalID, local, fmt.Sprintf("Nhanh.vn reported status %s", remoteStatus)); err != nil {
			return err
		}
	}
	if shipment != nil && shipment.TrackingNumber != "" {
		if err := r.orders.AttachTracking(ctx, link.LocalID, shipment.TrackingNumber, shipment.Carrier); err != nil {
			r.log.Warn("Failed to persist tracking for order %s: %v", link.LocalID, err)
		}
	}
	return nil
}

// MarkPaid records a remote payment confirmation against the local order.
func (r *OrderReconciler) MarkPaid(ctx context.Context, remoteID string) error {
	link, err := r.links.ByRemote(ctx, models.EntityOrder, remoteID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remote order %s is not linked to any local order", remoteID)
	}
	if err != nil {
		return err
	}
	return r.orders.AttachPaymentStatus(ctx, link.LocalID, "paid")
}

// DeleteByRemote removes the local order behind a deleted remote one.
func (r *OrderReconciler) DeleteByRemote(ctx context.Context, remoteID string) error {
	link, err := r.links.ByRemote(ctx, models.EntityOrder, remoteID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.orders.DeleteOrder(ctx, link.LocalID)
}
