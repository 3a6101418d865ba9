// Package view derives the tab-scoped queues from a store snapshot.
// Projection is pure: filter by the tab's policy, sort oldest first.
package view

import (
	"sort"

	"kitchen-display/internal/domain"
)

type View string

const (
	KitchenActive     View = "kitchen_active"
	NeedsConfirmation View = "needs_confirmation"
	KitchenReady      View = "kitchen_ready"
	WaiterServing     View = "waiter_serving"
	WaiterPayment     View = "waiter_payment"
)

var policies = map[View]func(domain.Order) bool{
	KitchenActive: func(o domain.Order) bool {
		switch o.Status {
		case domain.OrderConfirmed, domain.OrderPreparing, domain.OrderReady:
			return true
		}
		return false
	},
	NeedsConfirmation: func(o domain.Order) bool {
		if o.Status.Terminal() {
			return false
		}
		for _, it := range o.Items {
			if it.Status == domain.ItemConfirmed {
				return true
			}
		}
		return false
	},
	KitchenReady: func(o domain.Order) bool {
		return o.Status == domain.OrderReady
	},
	WaiterServing: func(o domain.Order) bool {
		return o.Status == domain.OrderReady || o.Status == domain.OrderServed
	},
	WaiterPayment: func(o domain.Order) bool {
		return o.Status == domain.OrderPaymentRequested || o.Status == domain.OrderPaymentPending
	},
}

// Project filters and sorts a snapshot for one tab. The input is not
// mutated; an unknown view projects to an empty queue.
func Project(v View, orders []domain.Order) []domain.Order {
	keep := policies[v]
	if keep == nil {
		return nil
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderedAt.Equal(out[j].OrderedAt) {
			return out[i].OrderedAt.Before(out[j].OrderedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// KitchenViews and WaiterViews are the tab sets each display role renders.
func KitchenViews() []View { return []View{NeedsConfirmation, KitchenActive, KitchenReady} }
func WaiterViews() []View  { return []View{WaiterServing, WaiterPayment} }
