package domain

import "time"

// OrderChangedEvent is the only wire payload the displays consume: a full
// order snapshot, published after every accepted change. Item-level deltas
// arrive as a changed order snapshot, never separately.
type OrderChangedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	Order      Order     `json:"order"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate rejects payloads the synchronizer must not apply.
func (e OrderChangedEvent) Validate() error {
	if e.OrderID == "" || e.Order.ID == "" {
		return ErrMalformedEvent
	}
	if e.OrderID != e.Order.ID {
		return ErrMalformedEvent
	}
	if !e.Order.Status.Valid() {
		return ErrMalformedEvent
	}
	for _, it := range e.Order.Items {
		if it.ID == "" || !it.Status.Valid() {
			return ErrMalformedEvent
		}
	}
	return nil
}
