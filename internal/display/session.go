// Package display runs one display instance: a single dispatch loop that
// owns the order store and serializes every mutation — inbound events,
// operator actions, tick recomputation and resync results.
package display

import (
	"context"
	"errors"
	"time"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/display/clock"
	"kitchen-display/internal/display/control"
	"kitchen-display/internal/display/escalate"
	"kitchen-display/internal/display/eventsync"
	"kitchen-display/internal/display/store"
	"kitchen-display/internal/display/view"
	"kitchen-display/internal/domain"
)

type Projection struct {
	View   view.View
	Orders []domain.Order
}

type Config struct {
	TickInterval time.Duration
	Thresholds   escalate.Thresholds
	Views        []view.View

	// OnChange receives fresh projections after any store change or
	// urgency flip. Called on the dispatch loop: keep it cheap.
	OnChange func([]Projection)
	// Alert is the audible "waiter approved new items" side effect.
	Alert func(domain.Order)
}

type task struct {
	fn   func(ctx context.Context) error
	resp chan error
}

type Session struct {
	cfg    Config
	lg     *logger.Logger
	st     *store.Store
	ticker *clock.Ticker
	syncer *eventsync.Synchronizer
	ctrl   *control.Controller
	remote control.RemoteAPI

	events chan []byte
	tasks  chan task

	urgency   map[string]escalate.Tier
	resyncing bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(cfg Config, remote control.RemoteAPI, lg *logger.Logger) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Thresholds == (escalate.Thresholds{}) {
		cfg.Thresholds = escalate.DefaultThresholds()
	}
	if len(cfg.Views) == 0 {
		cfg.Views = view.KitchenViews()
	}

	s := &Session{
		cfg:     cfg,
		lg:      lg,
		st:      store.New(),
		ticker:  clock.New(cfg.TickInterval),
		remote:  remote,
		events:  make(chan []byte, 64),
		tasks:   make(chan task, 64),
		urgency: make(map[string]escalate.Tier),
		done:    make(chan struct{}),
	}
	s.syncer = eventsync.New(s.st, lg, cfg.Alert)
	s.ctrl = control.New(s.st, remote, lg, s.onRemoteDone)
	return s
}

// Start launches the dispatch loop and schedules the initial load.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.ticker.Start()
	go s.run(ctx)
	s.submitAsync(func(ctx context.Context) error {
		s.startResync(ctx)
		return nil
	})
}

// Close tears down the loop, the ticker and every subscription.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
	s.ticker.Stop()
}

// Enqueue hands a raw push-channel payload to the loop. Safe from any
// goroutine; blocks only when the loop is far behind.
func (s *Session) Enqueue(raw []byte) {
	select {
	case s.events <- raw:
	case <-s.done:
	}
}

// Operator actions. Each runs on the loop and resolves before returning.

func (s *Session) StartPreparing(ctx context.Context, orderID string) error {
	return s.submit(ctx, func(ctx context.Context) error {
		return s.afterAction(ctx, orderID, s.ctrl.StartPreparing(ctx, orderID))
	})
}

func (s *Session) MarkOrderReady(ctx context.Context, orderID string) error {
	return s.submit(ctx, func(ctx context.Context) error {
		return s.afterAction(ctx, orderID, s.ctrl.MarkOrderReady(ctx, orderID))
	})
}

func (s *Session) MarkItemReady(ctx context.Context, itemID string) error {
	return s.submit(ctx, func(ctx context.Context) error {
		orderID, _ := s.st.Owner(itemID)
		return s.afterAction(ctx, orderID, s.ctrl.MarkItemReady(ctx, itemID))
	})
}

// Queues projects the configured views from the current snapshot.
func (s *Session) Queues(ctx context.Context) ([]Projection, error) {
	var out []Projection
	err := s.submit(ctx, func(context.Context) error {
		out = s.project()
		return nil
	})
	return out, err
}

// Tiers returns the current urgency classification per tracked order.
func (s *Session) Tiers(ctx context.Context) (map[string]escalate.Tier, error) {
	out := make(map[string]escalate.Tier)
	err := s.submit(ctx, func(context.Context) error {
		for id, t := range s.urgency {
			out[id] = t
		}
		return nil
	})
	return out, err
}

// Resync forces a full refetch of ground truth.
func (s *Session) Resync(ctx context.Context) error {
	return s.submit(ctx, func(ctx context.Context) error {
		s.startResync(ctx)
		return nil
	})
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-s.events:
			res := s.syncer.Apply(raw)
			if res.Applied {
				s.reconcile(res.OrderID)
				s.prune(res.OrderID)
				s.publish()
			}
		case t := <-s.tasks:
			err := t.fn(ctx)
			if t.resp != nil {
				t.resp <- err
			}
		case ids := <-s.ticker.Ticks():
			s.retick(ids)
		}
	}
}

func (s *Session) submit(ctx context.Context, fn func(context.Context) error) error {
	resp := make(chan error, 1)
	select {
	case s.tasks <- task{fn: fn, resp: resp}:
	case <-s.done:
		return errors.New("display session closed")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) submitAsync(fn func(context.Context) error) {
	select {
	case s.tasks <- task{fn: fn}:
	case <-s.done:
	}
}

// onRemoteDone is invoked from a remote-call goroutine; the actual state
// change is marshalled back onto the loop.
func (s *Session) onRemoteDone(orderID string, err error) {
	s.submitAsync(func(ctx context.Context) error {
		if s.ctrl.Complete(orderID, err) {
			s.startResync(ctx)
		}
		return nil
	})
}

func (s *Session) afterAction(ctx context.Context, orderID string, err error) error {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Local state has drifted; re-establish ground truth.
			s.startResync(ctx)
		}
		return err
	}
	s.reconcile(orderID)
	s.publish()
	return nil
}

// reconcile keeps the tick subscription in step with the order's status:
// subscribed while actively timed, dropped the moment it is not.
func (s *Session) reconcile(orderID string) {
	o, ok := s.st.Get(orderID)
	if ok && o.Status.ActivelyTimed() {
		s.ticker.Subscribe(orderID)
		return
	}
	s.ticker.Unsubscribe(orderID)
	delete(s.urgency, orderID)
}

// prune evicts orders no view will show again. The fact they happened
// lives on in the stats counters, not in the display store.
func (s *Session) prune(orderID string) {
	o, ok := s.st.Get(orderID)
	if ok && o.Status.Terminal() {
		s.st.Remove(orderID)
		s.ticker.Unsubscribe(orderID)
		delete(s.urgency, orderID)
	}
}

func (s *Session) retick(ids []string) {
	now := time.Now()
	changed := false
	for _, id := range ids {
		o, ok := s.st.Get(id)
		if !ok || !o.Status.ActivelyTimed() {
			s.ticker.Unsubscribe(id)
			delete(s.urgency, id)
			continue
		}
		tier := escalate.Classify(escalate.Elapsed(now, o.OrderedAt), s.cfg.Thresholds)
		if s.urgency[id] != tier {
			s.urgency[id] = tier
			changed = true
			if tier != escalate.TierOnTime {
				s.lg.Warn("order_escalated", map[string]any{"order_id": id, "tier": string(tier)})
			}
		}
	}
	if changed {
		s.publish()
	}
}

func (s *Session) startResync(ctx context.Context) {
	if s.resyncing {
		return
	}
	s.resyncing = true
	s.lg.Info("resync_started", nil)
	go func() {
		orders, err := s.remote.FetchActive(ctx)
		s.submitAsync(func(context.Context) error {
			s.finishResync(orders, err)
			return nil
		})
	}()
}

func (s *Session) finishResync(orders []domain.Order, err error) {
	s.resyncing = false
	if err != nil {
		s.lg.Error("resync_failed", err, nil)
		return
	}
	s.st.Replace(orders)
	s.urgency = make(map[string]escalate.Tier)
	for _, o := range orders {
		s.reconcile(o.ID)
	}
	s.lg.Info("resync_done", map[string]any{"orders": len(orders)})
	s.publish()
}

func (s *Session) project() []Projection {
	snap := s.st.Snapshot()
	out := make([]Projection, 0, len(s.cfg.Views))
	for _, v := range s.cfg.Views {
		out = append(out, Projection{View: v, Orders: view.Project(v, snap)})
	}
	return out
}

func (s *Session) publish() {
	if s.cfg.OnChange == nil {
		return
	}
	s.cfg.OnChange(s.project())
}
