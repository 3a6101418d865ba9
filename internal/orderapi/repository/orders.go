package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kitchen-display/internal/common/db"
	"kitchen-display/internal/domain"
)

type OrdersRepositoryInterface interface {
	ListActive(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrderStatusTx(ctx context.Context, orderID string, st domain.OrderStatus) (domain.Order, error)
	UpdateItemStatusTx(ctx context.Context, itemID string, st domain.ItemStatus) (domain.Order, error)
	StatsToday(ctx context.Context) (domain.Stats, error)
}

type OrdersRepository struct {
	db *db.Conn
}

func NewOrdersRepository(conn *db.Conn) OrdersRepositoryInterface {
	return &OrdersRepository{db: conn}
}

func (r *OrdersRepository) ListActive(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, table_ref, status, ordered_at, total_amount
FROM orders
WHERE status NOT IN ('completed','cancelled')
ORDER BY ordered_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	byID := map[string]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.TableRef, &o.Status, &o.OrderedAt, &o.TotalAmount); err != nil {
			return nil, err
		}
		byID[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	irows, err := r.db.Query(ctx, `
SELECT id, order_id, status, quantity, menu_item_ref, modifiers, COALESCE(notes,'')
FROM order_items
WHERE order_id = ANY($1)
ORDER BY created_at ASC, id ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var it domain.OrderItem
		var orderID string
		if err := irows.Scan(&it.ID, &orderID, &it.Status, &it.Quantity, &it.MenuItemRef, &it.Modifiers, &it.Notes); err != nil {
			return nil, err
		}
		if i, ok := byID[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return orders, irows.Err()
}

func (r *OrdersRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return r.getOrder(ctx, r.db, orderID)
}

// pgx.Tx and pgxpool.Pool both satisfy this.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *OrdersRepository) getOrder(ctx context.Context, q querier, orderID string) (domain.Order, error) {
	var o domain.Order
	err := q.QueryRow(ctx, `
SELECT id, table_ref, status, ordered_at, total_amount
FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.TableRef, &o.Status, &o.OrderedAt, &o.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}
	rows, err := q.Query(ctx, `
SELECT id, status, quantity, menu_item_ref, modifiers, COALESCE(notes,'')
FROM order_items WHERE order_id=$1
ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.Status, &it.Quantity, &it.MenuItemRef, &it.Modifiers, &it.Notes); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// UpdateOrderStatusTx moves the order forward under a row lock. A request
// that would move it backward is rejected unless it is a cancellation; a
// repeat of the current status is an idempotent no-op.
func (r *OrdersRepository) UpdateOrderStatusTx(ctx context.Context, orderID string, st domain.OrderStatus) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur domain.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}
	if st != cur {
		if st.Rank() < cur.Rank() && st != domain.OrderCancelled {
			return domain.Order{}, fmt.Errorf("order %s is %s, cannot move to %s: %w", orderID, cur, st, domain.ErrPrecondition)
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, st); err != nil {
			return domain.Order{}, err
		}
		if err := cascadeItems(ctx, tx, orderID, st); err != nil {
			return domain.Order{}, err
		}
	}

	o, err := r.getOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, tx.Commit(ctx)
}

// cascadeItems drags items along with coarse order-level transitions so the
// snapshot stays consistent with the aggregate rule.
func cascadeItems(ctx context.Context, tx pgx.Tx, orderID string, st domain.OrderStatus) error {
	var sql string
	switch st {
	case domain.OrderPreparing:
		sql = `UPDATE order_items SET status='preparing' WHERE order_id=$1 AND status='confirmed'`
	case domain.OrderReady:
		sql = `UPDATE order_items SET status='ready' WHERE order_id=$1 AND status IN ('confirmed','preparing')`
	case domain.OrderServed:
		sql = `UPDATE order_items SET status='served' WHERE order_id=$1 AND status='ready'`
	case domain.OrderCancelled:
		sql = `UPDATE order_items SET status='cancelled' WHERE order_id=$1 AND status NOT IN ('served','cancelled')`
	default:
		return nil
	}
	_, err := tx.Exec(ctx, sql, orderID)
	return err
}

// UpdateItemStatusTx patches one item and recomputes the order aggregate
// inside the same transaction.
func (r *OrdersRepository) UpdateItemStatusTx(ctx context.Context, itemID string, st domain.ItemStatus) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID string
	err = tx.QueryRow(ctx, `
SELECT o.id FROM orders o
JOIN order_items i ON i.order_id = o.id
WHERE i.id=$1
FOR UPDATE OF o`, itemID).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}

	var cur domain.ItemStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM order_items WHERE id=$1`, itemID).Scan(&cur); err != nil {
		return domain.Order{}, err
	}
	if st != cur && st.Rank() < cur.Rank() && st != domain.ItemCancelled {
		return domain.Order{}, fmt.Errorf("item %s is %s, cannot move to %s: %w", itemID, cur, st, domain.ErrPrecondition)
	}
	if _, err := tx.Exec(ctx, `UPDATE order_items SET status=$2 WHERE id=$1`, itemID, st); err != nil {
		return domain.Order{}, err
	}

	o, err := r.getOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	before := o.Status
	domain.RecomputeAggregate(&o)
	if o.Status != before {
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, o.Status); err != nil {
			return domain.Order{}, err
		}
	}
	return o, tx.Commit(ctx)
}

func (r *OrdersRepository) StatsToday(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRow(ctx, `
SELECT
  COUNT(*) FILTER (WHERE status IN ('pending','confirmed')),
  COUNT(*) FILTER (WHERE status = 'preparing'),
  COUNT(*) FILTER (WHERE status = 'ready'),
  COUNT(*) FILTER (WHERE status = 'completed' AND updated_at::date = CURRENT_DATE)
FROM orders`).Scan(&s.Pending, &s.Preparing, &s.Ready, &s.CompletedToday)
	return s, err
}
