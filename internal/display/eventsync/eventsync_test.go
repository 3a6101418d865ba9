package eventsync_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display/eventsync"
	"kitchen-display/internal/display/store"
	"kitchen-display/internal/domain"
)

func event(orderID string, st domain.OrderStatus, items ...domain.OrderItem) domain.OrderChangedEvent {
	return domain.OrderChangedEvent{
		EventID: "ev-" + orderID + "-" + string(st),
		OrderID: orderID,
		Order: domain.Order{
			ID:        orderID,
			TableRef:  "T3",
			Status:    st,
			OrderedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Items:     items,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func newSync(st *store.Store, alerts *int) *eventsync.Synchronizer {
	return eventsync.New(st, logger.New("test"), func(domain.Order) { *alerts++ })
}

func TestApplyCreatesThenUpdates(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	res := s.ApplyEvent(event("o1", domain.OrderPending))
	assert.True(t, res.Applied)
	assert.True(t, res.Created)

	res = s.ApplyEvent(event("o1", domain.OrderConfirmed))
	assert.True(t, res.Applied)
	assert.False(t, res.Created)

	got, _ := st.Get("o1")
	assert.Equal(t, domain.OrderConfirmed, got.Status)
}

func TestHighestRankWins(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	for _, status := range []domain.OrderStatus{
		domain.OrderPending, domain.OrderConfirmed, domain.OrderPreparing, domain.OrderReady,
	} {
		s.ApplyEvent(event("o1", status))
	}
	got, _ := st.Get("o1")
	assert.Equal(t, domain.OrderReady, got.Status)
}

func TestStaleEventDiscarded(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	s.ApplyEvent(event("o1", domain.OrderPreparing))
	// повторная доставка устаревшего confirmed не должна откатить статус
	res := s.ApplyEvent(event("o1", domain.OrderConfirmed))
	assert.False(t, res.Applied)

	got, _ := st.Get("o1")
	assert.Equal(t, domain.OrderPreparing, got.Status)
}

func TestCancellationOverridesRank(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	s.ApplyEvent(event("o1", domain.OrderReady))
	res := s.ApplyEvent(event("o1", domain.OrderCancelled))
	assert.True(t, res.Applied)

	got, _ := st.Get("o1")
	assert.Equal(t, domain.OrderCancelled, got.Status)
}

func TestIdempotentApply(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	ev := event("o1", domain.OrderPreparing, domain.OrderItem{ID: "i1", Status: domain.ItemPreparing, Quantity: 2, MenuItemRef: "carbonara"})
	s.ApplyEvent(ev)
	first, _ := st.Get("o1")

	s.ApplyEvent(ev)
	second, _ := st.Get("o1")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.Len())
}

func TestAlertExactlyOncePerConfirmedTransition(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	s.ApplyEvent(event("o1", domain.OrderConfirmed))
	s.ApplyEvent(event("o1", domain.OrderConfirmed)) // duplicate retransmission
	assert.Equal(t, 1, alerts)

	s.ApplyEvent(event("o1", domain.OrderPreparing))
	assert.Equal(t, 1, alerts)

	// a different order confirming alerts again
	s.ApplyEvent(event("o2", domain.OrderConfirmed))
	assert.Equal(t, 2, alerts)
}

func TestNoAlertOnNonConfirmedCreate(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	s.ApplyEvent(event("o1", domain.OrderPending))
	assert.Equal(t, 0, alerts)
}

func TestMalformedEventsDropped(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	cases := []domain.OrderChangedEvent{
		{},                                  // no ids at all
		event("", domain.OrderConfirmed),    // missing order id
		event("o1", domain.OrderStatus("")), // empty status
		event("o1", domain.OrderStatus("baked")),
		func() domain.OrderChangedEvent { // id mismatch
			ev := event("o1", domain.OrderConfirmed)
			ev.Order.ID = "o2"
			return ev
		}(),
		event("o1", domain.OrderConfirmed, domain.OrderItem{ID: "i1", Status: domain.ItemStatus("frozen")}),
	}
	for _, ev := range cases {
		res := s.ApplyEvent(ev)
		assert.False(t, res.Applied)
	}
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 0, alerts)
}

func TestApplyRejectsGarbageJSON(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	res := s.Apply([]byte(`{"order_id": 42`))
	assert.False(t, res.Applied)
	assert.Equal(t, 0, st.Len())
}

func TestApplyDecodesWirePayload(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	ev := event("o1", domain.OrderConfirmed, domain.OrderItem{ID: "i1", Status: domain.ItemConfirmed, Quantity: 1, MenuItemRef: "tiramisu"})
	raw, err := json.Marshal(ev)
	assert.NoError(t, err)

	res := s.Apply(raw)
	assert.True(t, res.Applied)
	got, ok := st.Get("o1")
	assert.True(t, ok)
	assert.Equal(t, "tiramisu", got.Items[0].MenuItemRef)
}

func TestItemOwnershipConflictDropped(t *testing.T) {
	st := store.New()
	var alerts int
	s := newSync(st, &alerts)

	s.ApplyEvent(event("o1", domain.OrderConfirmed, domain.OrderItem{ID: "i1", Status: domain.ItemConfirmed, Quantity: 1, MenuItemRef: "salad"}))
	// same item id claimed by another order: dropped, store untouched
	res := s.ApplyEvent(event("o2", domain.OrderConfirmed, domain.OrderItem{ID: "i1", Status: domain.ItemConfirmed, Quantity: 1, MenuItemRef: "salad"}))
	assert.False(t, res.Applied)

	_, ok := st.Get("o2")
	assert.False(t, ok)
	owner, _ := st.Owner("i1")
	assert.Equal(t, "o1", owner)
}
