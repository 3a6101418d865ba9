package domain

// RecomputeAggregate keeps an order's status consistent with its items:
// items in served/cancelled are excluded; the order is ready iff every
// remaining item is ready, and preparing once every remaining item has left
// confirmed. The aggregate never moves an order backward, and an order with
// no active items is left as is.
func RecomputeAggregate(o *Order) {
	active, ready, beyondConfirmed := 0, 0, 0
	for _, it := range o.Items {
		if !it.Status.Active() {
			continue
		}
		active++
		if it.Status == ItemReady {
			ready++
		}
		if it.Status.Rank() > ItemConfirmed.Rank() {
			beyondConfirmed++
		}
	}
	if active == 0 {
		return
	}
	switch {
	case ready == active:
		if o.Status.Rank() < OrderReady.Rank() {
			o.Status = OrderReady
		}
	case beyondConfirmed == active:
		if o.Status.Rank() < OrderPreparing.Rank() {
			o.Status = OrderPreparing
		}
	}
}
