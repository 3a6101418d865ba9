// Package store holds the canonical in-memory view of every order a display
// instance tracks. It has no locking on purpose: all mutation and reads run
// on the session dispatch loop, which is the only goroutine allowed in here.
package store

import (
	"fmt"

	"kitchen-display/internal/domain"
)

type Store struct {
	orders map[string]*domain.Order
	// item id -> owning order id; item ids are unique system-wide
	owners map[string]string
}

func New() *Store {
	return &Store{
		orders: make(map[string]*domain.Order),
		owners: make(map[string]string),
	}
}

// Upsert inserts the snapshot if the order is unknown, otherwise replaces
// the stored record wholesale. The incoming snapshot is trusted to be
// complete and authoritative for its id. Returns whether the record was
// newly created.
func (s *Store) Upsert(o domain.Order) bool {
	prev, existed := s.orders[o.ID]
	if existed {
		for _, it := range prev.Items {
			delete(s.owners, it.ID)
		}
	}
	c := o.Clone()
	s.orders[o.ID] = &c
	for _, it := range c.Items {
		s.owners[it.ID] = o.ID
	}
	return !existed
}

func (s *Store) Get(id string) (domain.Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Owner resolves which tracked order an item belongs to.
func (s *Store) Owner(itemID string) (string, bool) {
	id, ok := s.owners[itemID]
	return id, ok
}

// PatchItemStatus updates a single item's status and recomputes the owning
// order's aggregate status. Returns the updated order.
func (s *Store) PatchItemStatus(itemID string, st domain.ItemStatus) (domain.Order, error) {
	orderID, ok := s.owners[itemID]
	if !ok {
		return domain.Order{}, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}
	o := s.orders[orderID]
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].Status = st
			break
		}
	}
	domain.RecomputeAggregate(o)
	return o.Clone(), nil
}

func (s *Store) Remove(id string) {
	o, ok := s.orders[id]
	if !ok {
		return
	}
	for _, it := range o.Items {
		delete(s.owners, it.ID)
	}
	delete(s.orders, id)
}

// Snapshot returns copies of every tracked order, in no particular order;
// the projector does the sorting.
func (s *Store) Snapshot() []domain.Order {
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	return out
}

func (s *Store) Len() int { return len(s.orders) }

// Replace resets the tracked set to the given snapshot list. Used by
// resync, where the remote list is ground truth and the rank gate does not
// apply.
func (s *Store) Replace(orders []domain.Order) {
	s.orders = make(map[string]*domain.Order, len(orders))
	s.owners = make(map[string]string)
	for _, o := range orders {
		s.Upsert(o)
	}
}
