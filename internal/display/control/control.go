// Package control validates and issues operator-initiated transitions.
// Every action applies its result to the store optimistically and confirms
// with the remote API in the background; a failed confirmation triggers a
// resync instead of a field-by-field rollback.
package control

import (
	"context"
	"fmt"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display/store"
	"kitchen-display/internal/domain"
)

// RemoteAPI is the order service as seen from a display.
type RemoteAPI interface {
	FetchActive(ctx context.Context) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, st domain.OrderStatus) error
	SetItemStatus(ctx context.Context, itemID string, st domain.ItemStatus) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// Controller methods run on the session loop; only the remote round trip
// leaves it. notify is how a finished round trip gets back onto the loop.
type Controller struct {
	store    *store.Store
	remote   RemoteAPI
	lg       *logger.Logger
	inflight map[string]bool
	notify   func(orderID string, err error)
}

func New(st *store.Store, remote RemoteAPI, lg *logger.Logger, notify func(orderID string, err error)) *Controller {
	if notify == nil {
		notify = func(string, error) {}
	}
	return &Controller{
		store:    st,
		remote:   remote,
		lg:       lg,
		inflight: make(map[string]bool),
		notify:   notify,
	}
}

// StartPreparing moves every confirmed item of the order into preparing.
// Requires at least one item currently confirmed.
func (c *Controller) StartPreparing(ctx context.Context, orderID string) error {
	if c.inflight[orderID] {
		return domain.ErrActionPending
	}
	o, ok := c.store.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	confirmed := 0
	for _, it := range o.Items {
		if it.Status == domain.ItemConfirmed {
			confirmed++
		}
	}
	if confirmed == 0 {
		return fmt.Errorf("start preparing %s: no confirmed items: %w", orderID, domain.ErrPrecondition)
	}

	for i := range o.Items {
		if o.Items[i].Status == domain.ItemConfirmed {
			o.Items[i].Status = domain.ItemPreparing
		}
	}
	o.Status = domain.OrderPreparing
	c.store.Upsert(o)

	c.dispatch(ctx, orderID, func(ctx context.Context) error {
		return c.remote.SetOrderStatus(ctx, orderID, domain.OrderPreparing)
	})
	return nil
}

// MarkOrderReady requires every active item to already be ready.
func (c *Controller) MarkOrderReady(ctx context.Context, orderID string) error {
	if c.inflight[orderID] {
		return domain.ErrActionPending
	}
	o, ok := c.store.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	active := 0
	for _, it := range o.Items {
		if !it.Status.Active() {
			continue
		}
		active++
		if it.Status != domain.ItemReady {
			return fmt.Errorf("mark ready %s: item %s is %s: %w", orderID, it.ID, it.Status, domain.ErrPrecondition)
		}
	}
	if active == 0 {
		return fmt.Errorf("mark ready %s: no active items: %w", orderID, domain.ErrPrecondition)
	}

	o.Status = domain.OrderReady
	c.store.Upsert(o)

	c.dispatch(ctx, orderID, func(ctx context.Context) error {
		return c.remote.SetOrderStatus(ctx, orderID, domain.OrderReady)
	})
	return nil
}

// MarkItemReady advances a single item; the store recomputes the order
// aggregate as part of the patch.
func (c *Controller) MarkItemReady(ctx context.Context, itemID string) error {
	orderID, ok := c.store.Owner(itemID)
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	if c.inflight[orderID] {
		return domain.ErrActionPending
	}
	o, _ := c.store.Get(orderID)
	for _, it := range o.Items {
		if it.ID != itemID {
			continue
		}
		if !it.Status.Active() || it.Status == domain.ItemReady {
			return fmt.Errorf("mark item ready %s: item is %s: %w", itemID, it.Status, domain.ErrPrecondition)
		}
	}
	if _, err := c.store.PatchItemStatus(itemID, domain.ItemReady); err != nil {
		return err
	}

	c.dispatch(ctx, orderID, func(ctx context.Context) error {
		return c.remote.SetItemStatus(ctx, itemID, domain.ItemReady)
	})
	return nil
}

// Complete is called back on the session loop once the remote round trip
// for an order resolves. Returns true when the caller must resync.
func (c *Controller) Complete(orderID string, err error) (resync bool) {
	delete(c.inflight, orderID)
	if err != nil {
		c.lg.Error("remote_call_failed", err, map[string]any{"order_id": orderID})
		return true
	}
	return false
}

func (c *Controller) Pending(orderID string) bool { return c.inflight[orderID] }

func (c *Controller) dispatch(ctx context.Context, orderID string, call func(context.Context) error) {
	c.inflight[orderID] = true
	go func() {
		err := call(ctx)
		c.notify(orderID, err)
	}()
}
