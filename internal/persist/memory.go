package persist

import (
	"sync"

	"golang.org/x/text/cases"

	"github.com/ambonmud/server/internal/model"
)

var nameFolder = cases.Fold()

// MemoryRepository is the in-memory reference PlayerRepository, used by
// STANDALONE mode and by package tests that don't want a real database.
// Name lookups fold case the same way the Player Registry does, so the
// two stay consistent about what "the same name" means.
type MemoryRepository struct {
	mu      sync.Mutex
	byId    map[model.PlayerId]PlayerSnapshot
	nameIdx map[string]model.PlayerId
	nextId  model.PlayerId
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byId:    make(map[model.PlayerId]PlayerSnapshot),
		nameIdx: make(map[string]model.PlayerId),
	}
}

func foldName(name string) string { return nameFolder.String(name) }

func (m *MemoryRepository) FindByName(name string) (*PlayerSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.nameIdx[foldName(name)]
	if !ok {
		return nil, false, nil
	}
	snap := m.byId[id]
	return &snap, true, nil
}

func (m *MemoryRepository) FindById(id model.PlayerId) (*PlayerSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.byId[id]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (m *MemoryRepository) Create(snap PlayerSnapshot) (model.PlayerId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.nameIdx[foldName(snap.Name)]; taken {
		return 0, ErrNameTaken{Name: snap.Name}
	}
	m.nextId++
	id := m.nextId
	snap.PlayerId = id
	m.byId[id] = snap
	m.nameIdx[foldName(snap.Name)] = id
	return id, nil
}

// Save is idempotent: writing the same snapshot twice leaves the stored
// row unchanged beyond the second write's own fields.
func (m *MemoryRepository) Save(snap PlayerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byId[snap.PlayerId]; !ok {
		return ErrNotFound{PlayerId: snap.PlayerId}
	}
	m.byId[snap.PlayerId] = snap
	return nil
}
