package control_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display/control"
	"kitchen-display/internal/display/store"
	"kitchen-display/internal/domain"
)

type fakeRemote struct {
	mu         sync.Mutex
	orderCalls []string
	itemCalls  []string
	fail       bool
}

func (f *fakeRemote) FetchActive(context.Context) ([]domain.Order, error) { return nil, nil }
func (f *fakeRemote) Stats(context.Context) (domain.Stats, error)         { return domain.Stats{}, nil }

func (f *fakeRemote) SetOrderStatus(_ context.Context, orderID string, st domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls = append(f.orderCalls, orderID+":"+string(st))
	if f.fail {
		return errors.New("remote down")
	}
	return nil
}

func (f *fakeRemote) SetItemStatus(_ context.Context, itemID string, st domain.ItemStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls = append(f.itemCalls, itemID+":"+string(st))
	if f.fail {
		return errors.New("remote down")
	}
	return nil
}

type fixture struct {
	st     *store.Store
	remote *fakeRemote
	ctrl   *control.Controller
	doneCh chan error
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:     store.New(),
		remote: &fakeRemote{},
		doneCh: make(chan error, 4),
	}
	f.ctrl = control.New(f.st, f.remote, logger.New("test"), func(_ string, err error) {
		f.doneCh <- err
	})
	return f
}

func (f *fixture) waitRemote(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.doneCh:
		return err
	case <-time.After(time.Second):
		t.Fatal("remote call never completed")
		return nil
	}
}

func seedOrder(st *store.Store, orderStatus domain.OrderStatus, items ...domain.OrderItem) {
	st.Upsert(domain.Order{
		ID:        "o1",
		TableRef:  "T5",
		Status:    orderStatus,
		OrderedAt: time.Now().Add(-time.Minute),
		Items:     items,
	})
}

func TestStartPreparingOptimistic(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderConfirmed,
		domain.OrderItem{ID: "a", Status: domain.ItemConfirmed, Quantity: 1},
		domain.OrderItem{ID: "b", Status: domain.ItemServed, Quantity: 1},
	)

	err := f.ctrl.StartPreparing(context.Background(), "o1")
	assert.NoError(t, err)

	// UI state moved before the remote call resolved
	got, _ := f.st.Get("o1")
	assert.Equal(t, domain.OrderPreparing, got.Status)
	assert.Equal(t, domain.ItemPreparing, got.Items[0].Status)
	assert.Equal(t, domain.ItemServed, got.Items[1].Status)
	assert.True(t, f.ctrl.Pending("o1"))

	assert.NoError(t, f.waitRemote(t))
	assert.False(t, f.ctrl.Complete("o1", nil))
	assert.False(t, f.ctrl.Pending("o1"))
	assert.Equal(t, []string{"o1:preparing"}, f.remote.orderCalls)
}

func TestStartPreparingRequiresConfirmedItem(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderPreparing,
		domain.OrderItem{ID: "a", Status: domain.ItemPreparing, Quantity: 1},
	)

	err := f.ctrl.StartPreparing(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Empty(t, f.remote.orderCalls)
}

func TestStartPreparingUnknownOrder(t *testing.T) {
	f := setup(t)
	err := f.ctrl.StartPreparing(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSecondActionOnSameOrderRejected(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderConfirmed,
		domain.OrderItem{ID: "a", Status: domain.ItemConfirmed, Quantity: 1},
	)

	assert.NoError(t, f.ctrl.StartPreparing(context.Background(), "o1"))
	err := f.ctrl.MarkOrderReady(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrActionPending)

	assert.NoError(t, f.waitRemote(t))
	f.ctrl.Complete("o1", nil)

	// resolved: the next action goes through (items are preparing now)
	err = f.ctrl.MarkItemReady(context.Background(), "a")
	assert.NoError(t, err)
	assert.NoError(t, f.waitRemote(t))
}

func TestMarkOrderReadyRequiresAllActiveReady(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderPreparing,
		domain.OrderItem{ID: "a", Status: domain.ItemReady, Quantity: 1},
		domain.OrderItem{ID: "b", Status: domain.ItemPreparing, Quantity: 1},
	)

	err := f.ctrl.MarkOrderReady(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	got, _ := f.st.Get("o1")
	assert.Equal(t, domain.OrderPreparing, got.Status)
}

func TestMarkOrderReadyHappyPath(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderPreparing,
		domain.OrderItem{ID: "a", Status: domain.ItemReady, Quantity: 1},
		domain.OrderItem{ID: "b", Status: domain.ItemCancelled, Quantity: 1},
	)

	assert.NoError(t, f.ctrl.MarkOrderReady(context.Background(), "o1"))
	got, _ := f.st.Get("o1")
	assert.Equal(t, domain.OrderReady, got.Status)

	assert.NoError(t, f.waitRemote(t))
	assert.Equal(t, []string{"o1:ready"}, f.remote.orderCalls)
}

func TestMarkItemReadyRecomputesAggregate(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderPreparing,
		domain.OrderItem{ID: "a", Status: domain.ItemPreparing, Quantity: 1},
	)

	assert.NoError(t, f.ctrl.MarkItemReady(context.Background(), "a"))
	got, _ := f.st.Get("o1")
	assert.Equal(t, domain.ItemReady, got.Items[0].Status)
	assert.Equal(t, domain.OrderReady, got.Status)

	assert.NoError(t, f.waitRemote(t))
	assert.Equal(t, []string{"a:ready"}, f.remote.itemCalls)
}

func TestMarkItemReadyPreconditions(t *testing.T) {
	f := setup(t)
	seedOrder(f.st, domain.OrderReady,
		domain.OrderItem{ID: "a", Status: domain.ItemReady, Quantity: 1},
		domain.OrderItem{ID: "b", Status: domain.ItemServed, Quantity: 1},
	)

	assert.ErrorIs(t, f.ctrl.MarkItemReady(context.Background(), "a"), domain.ErrPrecondition)
	assert.ErrorIs(t, f.ctrl.MarkItemReady(context.Background(), "b"), domain.ErrPrecondition)
	assert.ErrorIs(t, f.ctrl.MarkItemReady(context.Background(), "ghost"), domain.ErrNotFound)
}

func TestRemoteFailureAsksForResync(t *testing.T) {
	f := setup(t)
	f.remote.fail = true
	seedOrder(f.st, domain.OrderConfirmed,
		domain.OrderItem{ID: "a", Status: domain.ItemConfirmed, Quantity: 1},
	)

	assert.NoError(t, f.ctrl.StartPreparing(context.Background(), "o1"))
	err := f.waitRemote(t)
	assert.Error(t, err)

	// the optimistic change is not rolled back locally; a resync is
	resync := f.ctrl.Complete("o1", err)
	assert.True(t, resync)
	got, _ := f.st.Get("o1")
	assert.Equal(t, domain.OrderPreparing, got.Status)
}
