// Package stagetest provides an in-memory stage.Store for unit tests.
package stagetest

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
)

// MemoryStore keeps records per kind. Projects maps project id to owner id;
// set ProjectLookup to resolve projects from another fake instead.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[stage.Kind]map[uuid.UUID]stage.Record
	Projects map[uuid.UUID]uuid.UUID

	ProjectLookup func(projectID uuid.UUID) (ownerID uuid.UUID, ok bool)

	// Writes counts Insert, Update, SetStatus and ResetDraft calls.
	Writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[stage.Kind]map[uuid.UUID]stage.Record),
		Projects: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *MemoryStore) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[stage.Kind]map[uuid.UUID]stage.Record, len(m.records))
	for kind, byID := range m.records {
		cp := make(map[uuid.UUID]stage.Record, len(byID))
		for id, rec := range byID {
			cp[id] = rec
		}
		saved[kind] = cp
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.records = saved
	}
}

// Count returns the number of stored records of every kind.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, byID := range m.records {
		n += len(byID)
	}
	return n
}

func (m *MemoryStore) Insert(ctx context.Context, q db.Querier, rec *stage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(rec.ProjectID); !ok {
		return stage.ErrProjectNotFound
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.Must(uuid.NewV4())
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	if m.records[rec.Kind] == nil {
		m.records[rec.Kind] = make(map[uuid.UUID]stage.Record)
	}
	m.records[rec.Kind][rec.ID] = *rec
	m.Writes++
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, q db.Querier, rec *stage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.Kind][rec.ID]; !ok {
		return stage.ErrRecordNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	m.records[rec.Kind][rec.ID] = *rec
	m.Writes++
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, q db.Querier, kind stage.Kind, id uuid.UUID) (*stage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return nil, stage.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) GetByProject(ctx context.Context, q db.Querier, kind stage.Kind, projectID uuid.UUID) (*stage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records[kind] {
		if rec.ProjectID == projectID {
			return &rec, nil
		}
	}
	return nil, stage.ErrRecordNotFound
}

func (m *MemoryStore) ListByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) ([]stage.Record, error) {
	var out []stage.Record
	for _, kind := range stage.Kinds {
		rec, err := m.GetByProject(ctx, q, kind, projectID)
		if err == nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, q db.Querier, kind stage.Kind, id uuid.UUID, status stage.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return stage.ErrRecordNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	m.records[kind][id] = rec
	m.Writes++
	return nil
}

func (m *MemoryStore) ResetDraft(ctx context.Context, q db.Querier, kind stage.Kind, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return stage.ErrRecordNotFound
	}
	rec.Status = stage.StatusDraft
	m.records[kind][id] = rec
	m.Writes++
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, q db.Querier, kind stage.Kind, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[kind][id]
	return ok, nil
}

func (m *MemoryStore) DeactivateByProject(ctx context.Context, q db.Querier, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, kind := range stage.Kinds {
		for id, rec := range m.records[kind] {
			if rec.ProjectID == projectID && rec.Status != stage.StatusInactive {
				rec.Status = stage.StatusInactive
				rec.UpdatedAt = now
				m.records[kind][id] = rec
			}
		}
	}
	return nil
}

func (m *MemoryStore) ProjectExists(ctx context.Context, q db.Querier, projectID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(projectID)
	return ok, nil
}

func (m *MemoryStore) ProjectOwner(ctx context.Context, q db.Querier, projectID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.lookup(projectID)
	if !ok || owner == uuid.Nil {
		return uuid.Nil, stage.ErrOwnerNotFound
	}
	return owner, nil
}

func (m *MemoryStore) lookup(projectID uuid.UUID) (uuid.UUID, bool) {
	if m.ProjectLookup != nil {
		return m.ProjectLookup(projectID)
	}
	owner, ok := m.Projects[projectID]
	return owner, ok
}
