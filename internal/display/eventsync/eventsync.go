// Package eventsync merges push notifications into the order store.
// Events may arrive duplicated, out of order, or stale; applying one must
// always be safe.
package eventsync

import (
	"encoding/json"
	"fmt"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display/store"
	"kitchen-display/internal/domain"
)

// Result reports what an applied event did to the store, so the session can
// reconcile tick subscriptions and refresh projections.
type Result struct {
	Applied bool
	Created bool
	OrderID string
}

type Synchronizer struct {
	store *store.Store
	lg    *logger.Logger
	alert func(domain.Order) // fired on each distinct transition into confirmed
}

func New(st *store.Store, lg *logger.Logger, alert func(domain.Order)) *Synchronizer {
	if alert == nil {
		alert = func(domain.Order) {}
	}
	return &Synchronizer{store: st, lg: lg, alert: alert}
}

// Apply decodes a raw payload and applies it. Malformed payloads are
// dropped and logged; they never mutate the store.
func (s *Synchronizer) Apply(raw []byte) Result {
	var ev domain.OrderChangedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.lg.Error("event_dropped", fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err), nil)
		return Result{}
	}
	return s.ApplyEvent(ev)
}

func (s *Synchronizer) ApplyEvent(ev domain.OrderChangedEvent) Result {
	if err := ev.Validate(); err != nil {
		s.lg.Error("event_dropped", err, map[string]any{"order_id": ev.OrderID, "event_id": ev.EventID})
		return Result{}
	}
	if !s.itemOwnershipConsistent(ev) {
		// Two events claiming the same item under different orders is an
		// invariant violation, not something to resolve quietly.
		return Result{}
	}

	prev, known := s.store.Get(ev.OrderID)
	if known && s.stale(prev.Status, ev.Order.Status) {
		s.lg.Debug("stale_event_ignored", map[string]any{
			"order_id": ev.OrderID,
			"stored":   string(prev.Status),
			"incoming": string(ev.Order.Status),
		})
		return Result{OrderID: ev.OrderID}
	}

	created := s.store.Upsert(ev.Order)

	// Alert on the transition into confirmed, not on event arrival, so a
	// duplicate retransmission of the same snapshot stays silent.
	if ev.Order.Status == domain.OrderConfirmed && (!known || prev.Status != domain.OrderConfirmed) {
		s.lg.Info("order_alert", map[string]any{"order_id": ev.OrderID, "table": ev.Order.TableRef})
		s.alert(ev.Order)
	}

	return Result{Applied: true, Created: created, OrderID: ev.OrderID}
}

// stale: a lower lifecycle rank never overwrites a higher one already
// recorded, unless the event is a cancellation.
func (s *Synchronizer) stale(stored, incoming domain.OrderStatus) bool {
	if incoming == domain.OrderCancelled {
		return false
	}
	return incoming.Rank() < stored.Rank()
}

func (s *Synchronizer) itemOwnershipConsistent(ev domain.OrderChangedEvent) bool {
	for _, it := range ev.Order.Items {
		owner, ok := s.store.Owner(it.ID)
		if ok && owner != ev.OrderID {
			s.lg.Error("item_ownership_conflict", domain.ErrMalformedEvent, map[string]any{
				"item_id":        it.ID,
				"tracked_order":  owner,
				"incoming_order": ev.OrderID,
			})
			return false
		}
	}
	return true
}
