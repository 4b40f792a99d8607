package processors

import (
	"context"
	"time"

	"nhanhsync/internal/events"
	"nhanhsync/internal/logger"
	"nhanhsync/internal/sync"
)

const processTimeout = 2 * time.Minute

// EventProcessor routes store events to the reconciler that pushes the
// change to Nhanh.vn.
type EventProcessor struct {
	orders    *sync.OrderReconciler
	inventory *sync.InventoryReconciler
	logger    *logger.Logger
}

func NewEventProcessor(orders *sync.OrderReconciler, inventory *sync.InventoryReconciler, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		orders:    orders,
		inventory: inventory,
		logger:    logger,
	}
}

func (ep *EventProcessor) Process(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	switch event.Type {
	case events.OrderCreated:
		_, err := ep.orders.PushNew(ctx, event.EntityID)
		return err
	case events.OrderStatusChanged:
		return ep.orders.PushStatusChange(ctx, event.EntityID, event.Status)
	case events.StockUpdated:
		return ep.inventory.PushStock(ctx, event.EntityID, event.Quantity)
	default:
		ep.logger.Warn("Ignoring unknown event type %q", event.Type)
		return nil
	}
}
