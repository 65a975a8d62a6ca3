// Package usertest provides an in-memory user.Repository for unit tests.
package usertest

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
)

type Memory struct {
	mu       sync.Mutex
	users    map[uuid.UUID]user.User
	machines map[uuid.UUID]user.Machine
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[uuid.UUID]user.User),
		machines: make(map[uuid.UUID]user.Machine),
	}
}

// AddUser registers a user with the given role and returns it.
func (m *Memory) AddUser(role user.Role) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.Must(uuid.NewV4())
	u := user.User{
		ID:        id,
		Name:      string(role) + "-" + id.String()[:8],
		Email:     id.String() + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.users[id] = u
	return u
}

// AddMachine registers a machine owned by manufacturerID and returns it.
func (m *Memory) AddMachine(manufacturerID uuid.UUID) user.Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	mc := user.Machine{
		ID:             uuid.Must(uuid.NewV4()),
		ManufacturerID: manufacturerID,
		Name:           "Overlock",
		MachineType:    "stitching",
		CreatedAt:      time.Now().UTC(),
	}
	m.machines[mc.ID] = mc
	return mc
}

func (m *Memory) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (m *Memory) GetManufacturer(ctx context.Context, q db.Querier, id uuid.UUID) (*user.User, error) {
	u, err := m.GetByID(ctx, q, id)
	if err != nil || u.Role != user.RoleManufacturer {
		return nil, user.ErrManufacturerNotFound
	}
	return u, nil
}

func (m *Memory) GetMachine(ctx context.Context, q db.Querier, id uuid.UUID) (*user.Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mc, ok := m.machines[id]
	if !ok {
		return nil, user.ErrMachineNotFound
	}
	return &mc, nil
}
