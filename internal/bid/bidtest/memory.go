// Package bidtest provides an in-memory bid.Repository for unit tests.
package bidtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/bid"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

// Memory enforces one response per (bid, manufacturer) pair. OwnerLookup, when
// set, fills Bid.Owner in ListActive.
type Memory struct {
	mu        sync.Mutex
	bids      map[uuid.UUID]bid.Bid
	responses map[uuid.UUID]bid.Response
	seq       int

	OwnerLookup func(userID uuid.UUID) *user.User
}

func NewMemory() *Memory {
	return &Memory{
		bids:      make(map[uuid.UUID]bid.Bid),
		responses: make(map[uuid.UUID]bid.Response),
	}
}

func (m *Memory) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	bids := make(map[uuid.UUID]bid.Bid, len(m.bids))
	for id, b := range m.bids {
		bids[id] = b
	}
	responses := make(map[uuid.UUID]bid.Response, len(m.responses))
	for id, r := range m.responses {
		responses[id] = r
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.bids, m.responses = bids, responses
	}
}

// tick keeps timestamps strictly increasing so ordering is deterministic.
func (m *Memory) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *Memory) Create(ctx context.Context, q db.Querier, b *bid.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.Must(uuid.NewV4())
	}
	now := m.tick()
	b.CreatedAt, b.UpdatedAt = now, now
	m.bids[b.ID] = *b
	return nil
}

func (m *Memory) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*bid.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[id]
	if !ok {
		return nil, bid.ErrBidNotFound
	}
	return &b, nil
}

func (m *Memory) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*bid.Bid, error) {
	return m.GetByID(ctx, q, id)
}

func (m *Memory) Update(ctx context.Context, q db.Querier, b *bid.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bids[b.ID]; !ok {
		return bid.ErrBidNotFound
	}
	b.UpdatedAt = m.tick()
	m.bids[b.ID] = *b
	return nil
}

func (m *Memory) SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status bid.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[id]
	if !ok {
		return bid.ErrBidNotFound
	}
	b.Status = status
	b.UpdatedAt = m.tick()
	m.bids[id] = b
	return nil
}

func (m *Memory) ListActive(ctx context.Context, q db.Querier) ([]bid.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []bid.Bid
	for _, b := range m.bids {
		if b.Status != bid.StatusActive {
			continue
		}
		if m.OwnerLookup != nil {
			b.Owner = m.OwnerLookup(b.UserID)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]bid.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []bid.Bid
	for _, b := range m.bids {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateResponse(ctx context.Context, q db.Querier, r *bid.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.responses {
		if existing.BidID == r.BidID && existing.ManufacturerID == r.ManufacturerID {
			return bid.ErrDuplicateResponse
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.Must(uuid.NewV4())
	}
	now := m.tick()
	r.CreatedAt, r.UpdatedAt = now, now
	m.responses[r.ID] = *r
	return nil
}

func (m *Memory) FindResponse(ctx context.Context, q db.Querier, bidID, manufacturerID uuid.UUID) (*bid.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.responses {
		if r.BidID == bidID && r.ManufacturerID == manufacturerID {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetResponse(ctx context.Context, q db.Querier, id uuid.UUID) (*bid.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.responses[id]
	if !ok {
		return nil, bid.ErrResponseNotFound
	}
	return &r, nil
}

func (m *Memory) GetResponseForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*bid.Response, error) {
	return m.GetResponse(ctx, q, id)
}

func (m *Memory) SetResponseStatus(ctx context.Context, q db.Querier, id uuid.UUID, status bid.ResponseStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.responses[id]
	if !ok {
		return bid.ErrResponseNotFound
	}
	r.Status = status
	r.UpdatedAt = m.tick()
	m.responses[id] = r
	return nil
}

func (m *Memory) RejectPending(ctx context.Context, q db.Querier, bidID, keepID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.responses {
		if r.BidID == bidID && id != keepID && r.Status == bid.ResponsePending {
			r.Status = bid.ResponseRejected
			r.UpdatedAt = m.tick()
			m.responses[id] = r
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListResponses(ctx context.Context, q db.Querier, bidID uuid.UUID) ([]bid.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []bid.Response
	for _, r := range m.responses {
		if r.BidID == bidID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
