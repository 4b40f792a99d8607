package sync

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/services/nhanh"
)

// ErrUnsupportedEvent marks a webhook event outside the known vocabulary.
var ErrUnsupportedEvent = errors.New("unsupported webhook event")

// ErrVerifyFailed marks a webhook that failed token or origin verification.
var ErrVerifyFailed = errors.New("webhook verification failed")

// WebhookDispatcher verifies inbound Nhanh.vn webhooks and routes them to
// the reconcilers.
type WebhookDispatcher struct {
	products  *ProductReconciler
	inventory *InventoryReconciler
	orders    *OrderReconciler
	api       RemoteAPI
	settings  SettingsStore
	coord     *Coordinator
	log       *logger.Logger
}

func NewWebhookDispatcher(products *ProductReconciler, inventory *InventoryReconciler, orders *OrderReconciler, api RemoteAPI, settings SettingsStore, coord *Coordinator, log *logger.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		products:  products,
		inventory: inventory,
		orders:    orders,
		api:       api,
		settings:  settings,
		coord:     coord,
		log:       log,
	}
}

// Verify checks the shared webhook token, accepted from either the query
// string or the request body, and the origin header when one is present.
// Comparison is constant time. A missing configured token rejects everything.
func (d *WebhookDispatcher) Verify(ctx context.Context, queryToken, bodyToken, origin string) error {
	stored, err := d.settings.Get(ctx, SettingWebhookToken)
	if err != nil || stored == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, "Webhook rejected: no verify token configured")
		return ErrVerifyFailed
	}
	if origin != "" && !strings.Contains(origin, "nhanh.vn") {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook rejected: unexpected origin %q", origin))
		return ErrVerifyFailed
	}
	if tokenMatches(stored, queryToken) || tokenMatches(stored, bodyToken) {
		return nil
	}
	d.coord.Record(ctx, TypeWebhook, StatusError, "Webhook rejected: verify token mismatch")
	return ErrVerifyFailed
}

func tokenMatches(stored, candidate string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

type productEvent struct {
	ID json.Number `json:"id"`
}

type orderEvent struct {
	ID           json.Number         `json:"id"`
	OrderID      json.Number         `json:"orderId"`
	Status       string              `json:"status"`
	ShipmentInfo *nhanh.ShipmentInfo `json:"shipmentInfo"`
}

func (e *orderEvent) remoteID() string {
	if e.OrderID.String() != "" {
		return e.OrderID.String()
	}
	return e.ID.String()
}

// Dispatch routes one verified webhook event to the reconciler that handles
// it. Events outside the vocabulary return ErrUnsupportedEvent. Every
// outcome lands in the activity trail.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event string, data json.RawMessage) error {
	switch event {
	case "product.update", "productAdd", "productUpdate":
		return d.productUpdate(ctx, event, data)
	case "productDelete":
		return d.productDelete(ctx, data)
	case "inventory.update", "inventoryChange":
		return d.inventoryUpdate(ctx, event, data)
	case "order.update", "orderAdd", "orderUpdate":
		return d.orderUpdate(ctx, event, data)
	case "orderDelete":
		return d.orderDelete(ctx, data)
	case "paymentReceived":
		return d.paymentReceived(ctx, data)
	case "webhooksEnabled":
		d.coord.Record(ctx, TypeWebhook, StatusSuccess, "Nhanh.vn webhooks enabled")
		return nil
	default:
		d.coord.Record(ctx, TypeWebhook, StatusWarning, fmt.Sprintf("Unsupported webhook event %q", event))
		return ErrUnsupportedEvent
	}
}

func (d *WebhookDispatcher) productUpdate(ctx context.Context, event string, data json.RawMessage) error {
	var payload productEvent
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID.String() == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s carried no product id", event))
		return &nhanh.ValidationError{Reason: "missing product id"}
	}
	rec, err := d.api.ProductDetail(ctx, payload.ID.String())
	if err != nil {
		d.coord.HandleRemoteError(ctx, err)
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s: failed to fetch product %s: %v", event, payload.ID, err))
		return err
	}
	if err := d.products.Upsert(ctx, rec); err != nil {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s: failed to apply product %s: %v", event, rec.Code, err))
		return err
	}
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook %s applied for product %s", event, rec.Code))
	return nil
}

func (d *WebhookDispatcher) productDelete(ctx context.Context, data json.RawMessage) error {
	var payload productEvent
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID.String() == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, "Webhook productDelete carried no product id")
		return &nhanh.ValidationError{Reason: "missing product id"}
	}
	if err := d.products.DeleteByRemote(ctx, payload.ID.String()); err != nil {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook productDelete failed for product %s: %v", payload.ID, err))
		return err
	}
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook productDelete applied for product %s", payload.ID))
	return nil
}

// inventoryUpdate accepts either a batch ({"items": [...]}) or a single
// record, since Nhanh.vn delivers both shapes.
func (d *WebhookDispatcher) inventoryUpdate(ctx context.Context, event string, data json.RawMessage) error {
	var batch struct {
		Items []nhanh.InventoryRecord `json:"items"`
	}
	if err := json.Unmarshal(data, &batch); err == nil && len(batch.Items) == 0 {
		var single nhanh.InventoryRecord
		if err := json.Unmarshal(data, &single); err == nil && single.ProductID != 0 {
			batch.Items = append(batch.Items, single)
		}
	}
	if len(batch.Items) == 0 {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s carried no inventory records", event))
		return &nhanh.ValidationError{Reason: "missing inventory records"}
	}

	var res Results
	res.Total = len(batch.Items)
	for i := range batch.Items {
		if err := d.inventory.ApplyRecord(ctx, &batch.Items[i]); err != nil {
			res.Failed++
			d.log.Warn("Webhook %s: %v", event, err)
			continue
		}
		res.Synced++
	}
	d.coord.ReportRun(ctx, TypeInventory, res)
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook %s applied: %d ok, %d failed", event, res.Synced, res.Failed))
	return nil
}

func (d *WebhookDispatcher) orderUpdate(ctx context.Context, event string, data json.RawMessage) error {
	var payload orderEvent
	if err := json.Unmarshal(data, &payload); err != nil || payload.remoteID() == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s carried no order id", event))
		return &nhanh.ValidationError{Reason: "missing order id"}
	}
	if err := d.orders.ApplyRemoteUpdate(ctx, payload.remoteID(), payload.Status, payload.ShipmentInfo); err != nil {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook %s failed for order %s: %v", event, payload.remoteID(), err))
		return err
	}
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook %s applied for order %s", event, payload.remoteID()))
	return nil
}

func (d *WebhookDispatcher) orderDelete(ctx context.Context, data json.RawMessage) error {
	var payload orderEvent
	if err := json.Unmarshal(data, &payload); err != nil || payload.remoteID() == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, "Webhook orderDelete carried no order id")
		return &nhanh.ValidationError{Reason: "missing order id"}
	}
	if err := d.orders.DeleteByRemote(ctx, payload.remoteID()); err != nil {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook orderDelete failed for order %s: %v", payload.remoteID(), err))
		return err
	}
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook orderDelete applied for order %s", payload.remoteID()))
	return nil
}

func (d *WebhookDispatcher) paymentReceived(ctx context.Context, data json.RawMessage) error {
	var payload orderEvent
	if err := json.Unmarshal(data, &payload); err != nil || payload.remoteID() == "" {
		d.coord.Record(ctx, TypeWebhook, StatusError, "Webhook paymentReceived carried no order id")
		return &nhanh.ValidationError{Reason: "missing order id"}
	}
	if err := d.orders.MarkPaid(ctx, payload.remoteID()); err != nil {
		d.coord.Record(ctx, TypeWebhook, StatusError, fmt.Sprintf("Webhook paymentReceived failed for order %s: %v", payload.remoteID(), err))
		return err
	}
	d.coord.Record(ctx, TypeWebhook, StatusSuccess, fmt.Sprintf("Webhook paymentReceived applied for order %s", payload.remoteID()))
	return nil
}
