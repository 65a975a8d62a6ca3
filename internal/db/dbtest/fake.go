package dbtest

import (
	"context"
	"sync"

	"github.com/vasiliy-maslov/garment-costing/internal/db"
)

// Snapshotter is implemented by in-memory stores that take part in FakeTx rollbacks.
type Snapshotter interface {
	Snapshot() (restore func())
}

// FakeTx is a Transactor for unit tests. It passes a nil Querier to fn, so it
// only works with stores that ignore the querier. On error every registered
// store is restored to its state before the call.
type FakeTx struct {
	mu     sync.Mutex
	Stores []Snapshotter

	Commits   int
	Rollbacks int
}

func NewFakeTx(stores ...Snapshotter) *FakeTx {
	return &FakeTx{Stores: stores}
}

func (f *FakeTx) WithinTx(ctx context.Context, fn func(q db.Querier) error) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	restores := make([]func(), 0, len(f.Stores))
	for _, s := range f.Stores {
		restores = append(restores, s.Snapshot())
	}

	defer func() {
		if p := recover(); p != nil {
			f.rollback(restores)
			panic(p)
		}
		if err != nil {
			f.rollback(restores)
			return
		}
		f.Commits++
	}()

	return fn(nil)
}

func (f *FakeTx) rollback(restores []func()) {
	for _, restore := range restores {
		restore()
	}
	f.Rollbacks++
}
