package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/common/mq"
	"kitchen-display/internal/domain"
	"kitchen-display/internal/orderapi/repository"
)

type OrderAPIServiceInterface interface {
	ListActive(ctx context.Context) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, st domain.OrderStatus) (domain.Order, error)
	SetItemStatus(ctx context.Context, itemID string, st domain.ItemStatus) (domain.Order, error)
	StatsToday(ctx context.Context) (domain.Stats, error)
}

type OrderAPIService struct {
	repo repository.OrdersRepositoryInterface
	mqc  *mq.Client
	lg   *logger.Logger
}

func New(repo repository.OrdersRepositoryInterface, mqc *mq.Client, lg *logger.Logger) OrderAPIServiceInterface {
	return &OrderAPIService{repo: repo, mqc: mqc, lg: lg}
}

func (s *OrderAPIService) ListActive(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListActive(ctx)
}

func (s *OrderAPIService) StatsToday(ctx context.Context) (domain.Stats, error) {
	return s.repo.StatsToday(ctx)
}

func (s *OrderAPIService) SetOrderStatus(ctx context.Context, orderID string, st domain.OrderStatus) (domain.Order, error) {
	if !st.Valid() {
		return domain.Order{}, fmt.Errorf("unknown status %q: %w", st, domain.ErrPrecondition)
	}
	o, err := s.repo.UpdateOrderStatusTx(ctx, orderID, st)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.publishChanged(ctx, o); err != nil {
		return domain.Order{}, err
	}
	s.lg.Debug("order_status_updated", map[string]any{"order_id": orderID, "status": string(st)})
	return o, nil
}

func (s *OrderAPIService) SetItemStatus(ctx context.Context, itemID string, st domain.ItemStatus) (domain.Order, error) {
	if !st.Valid() {
		return domain.Order{}, fmt.Errorf("unknown status %q: %w", st, domain.ErrPrecondition)
	}
	o, err := s.repo.UpdateItemStatusTx(ctx, itemID, st)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.publishChanged(ctx, o); err != nil {
		return domain.Order{}, err
	}
	s.lg.Debug("item_status_updated", map[string]any{"item_id": itemID, "status": string(st), "order_status": string(o.Status)})
	return o, nil
}

// publishChanged fans the full updated snapshot out to every display.
func (s *OrderAPIService) publishChanged(ctx context.Context, o domain.Order) error {
	ev := domain.OrderChangedEvent{
		EventID:    uuid.NewString(),
		OrderID:    o.ID,
		Order:      o,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.mqc.PublishOrderEvent(pctx, ev.EventID, o.ID, body); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}
