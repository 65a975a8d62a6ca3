// Package projecttest provides an in-memory project.Repository for unit tests.
package projecttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/project"
)

type Memory struct {
	mu       sync.Mutex
	projects map[uuid.UUID]project.Project
}

func NewMemory() *Memory {
	return &Memory{projects: make(map[uuid.UUID]project.Project)}
}

func (m *Memory) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[uuid.UUID]project.Project, len(m.projects))
	for id, p := range m.projects {
		saved[id] = p
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.projects = saved
	}
}

// Owner resolves a project to its owner; it plugs into stagetest.MemoryStore.ProjectLookup.
func (m *Memory) Owner(projectID uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	return p.UserID, ok
}

func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.projects)
}

func (m *Memory) Create(ctx context.Context, q db.Querier, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV4())
	}
	if _, ok := m.projects[p.ID]; ok {
		return project.ErrDuplicateProject
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.projects[p.ID] = strip(*p)
	return nil
}

func (m *Memory) Exists(ctx context.Context, q db.Querier, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.projects[id]
	return ok, nil
}

func (m *Memory) GetByID(ctx context.Context, q db.Querier, id uuid.UUID) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return &p, nil
}

func (m *Memory) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*project.Project, error) {
	return m.GetByID(ctx, q, id)
}

func (m *Memory) Update(ctx context.Context, q db.Querier, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; !ok {
		return project.ErrProjectNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	m.projects[p.ID] = strip(*p)
	return nil
}

func (m *Memory) SetStatus(ctx context.Context, q db.Querier, id uuid.UUID, status project.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return project.ErrProjectNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	m.projects[id] = p
	return nil
}

func (m *Memory) ListByUser(ctx context.Context, q db.Querier, userID uuid.UUID) ([]project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []project.Project
	for _, p := range m.projects {
		if p.UserID == userID && p.Status != project.StatusInactive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// strip drops the loaded stage records; the table does not store them.
func strip(p project.Project) project.Project {
	p.Records = nil
	return p
}
