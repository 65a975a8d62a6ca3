// Package ordertest provides an in-memory order.Repository for unit tests.
package ordertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/order"
)

// Memory enforces one order per bid like the orders_bid_id_key constraint.
// BidLookup decides which bids exist; nil means every bid exists.
type Memory struct {
	mu     sync.Mutex
	orders map[uuid.UUID]order.Order

	BidLookup func(bidID uuid.UUID) bool
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[uuid.UUID]order.Order)}
}

func (m *Memory) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[uuid.UUID]order.Order, len(m.orders))
	for id, o := range m.orders {
		saved[id] = o
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders = saved
	}
}

// ForBid returns every order referencing bidID.
func (m *Memory) ForBid(bidID uuid.UUID) []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []order.Order
	for _, o := range m.orders {
		if o.BidID == bidID {
			out = append(out, o)
		}
	}
	return out
}

func (m *Memory) Create(ctx context.Context, q db.Querier, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.orders {
		if existing.BidID == o.BidID {
			return order.ErrOrderExists
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.Must(uuid.NewV4())
	}
	now := time.Now().UTC()
	o.CreatedDate, o.UpdatedAt = now, now
	m.orders[o.ID] = *o
	return nil
}

func (m *Memory) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

func (m *Memory) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []order.Order
	for _, o := range m.orders {
		if (o.ExporterID == userID || o.ManufacturerID == userID) && o.Status != order.StatusDeleted {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDate.After(out[j].CreatedDate) })
	return out, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, q db.Querier, id uuid.UUID, status order.Status, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	if completedAt != nil {
		o.CompletionDate = completedAt
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return nil
}

func (m *Memory) BidExists(ctx context.Context, q db.Querier, bidID uuid.UUID) (bool, error) {
	if m.BidLookup == nil {
		return true, nil
	}
	return m.BidLookup(bidID), nil
}
