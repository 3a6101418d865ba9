package domain

import "time"

type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderConfirmed        OrderStatus = "confirmed"
	OrderPreparing        OrderStatus = "preparing"
	OrderReady            OrderStatus = "ready"
	OrderServed           OrderStatus = "served"
	OrderPaymentRequested OrderStatus = "payment_requested"
	OrderPaymentPending   OrderStatus = "payment_pending"
	OrderCompleted        OrderStatus = "completed"
	OrderCancelled        OrderStatus = "cancelled"
)

var orderRank = map[OrderStatus]int{
	OrderPending:          0,
	OrderConfirmed:        1,
	OrderPreparing:        2,
	OrderReady:            3,
	OrderServed:           4,
	OrderPaymentRequested: 5,
	OrderPaymentPending:   6,
	OrderCompleted:        7,
	OrderCancelled:        8,
}

// Rank places a status on the lifecycle ordering. A stale event may never
// move an order to a lower rank unless it is a cancellation.
func (s OrderStatus) Rank() int { return orderRank[s] }

func (s OrderStatus) Valid() bool { _, ok := orderRank[s]; return ok }

// ActivelyTimed reports whether the escalation stopwatch still runs for an
// order in this status.
func (s OrderStatus) ActivelyTimed() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderPreparing
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemConfirmed ItemStatus = "confirmed"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
	ItemCancelled ItemStatus = "cancelled"
)

var itemRank = map[ItemStatus]int{
	ItemPending:   0,
	ItemConfirmed: 1,
	ItemPreparing: 2,
	ItemReady:     3,
	ItemServed:    4,
	ItemCancelled: 5,
}

func (s ItemStatus) Rank() int { return itemRank[s] }

func (s ItemStatus) Valid() bool { _, ok := itemRank[s]; return ok }

// Active reports whether the item still counts toward the order aggregate.
func (s ItemStatus) Active() bool { return s != ItemServed && s != ItemCancelled }

type OrderItem struct {
	ID          string     `json:"id"`
	Status      ItemStatus `json:"status"`
	Quantity    int        `json:"quantity"`
	MenuItemRef string     `json:"menu_item_ref"`
	Modifiers   []string   `json:"modifiers,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type Order struct {
	ID          string      `json:"id"`
	TableRef    string      `json:"table_ref"`
	Status      OrderStatus `json:"status"`
	OrderedAt   time.Time   `json:"ordered_at"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
}

// Clone returns a deep copy so callers can hand snapshots out of the store
// without aliasing the canonical record.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		ci := it
		ci.Modifiers = append([]string(nil), it.Modifiers...)
		c.Items[i] = ci
	}
	return c
}

// Stats mirrors the aggregate counters exposed by the order API.
type Stats struct {
	Pending        int `json:"pending"`
	Preparing      int `json:"preparing"`
	Ready          int `json:"ready"`
	CompletedToday int `json:"completed_today"`
}
