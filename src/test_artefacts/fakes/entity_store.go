package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

// EntityStore is an in-memory entities table.
type EntityStore struct {
	mu       sync.Mutex
	entities map[entities.Reference]entities.Entity
	nextID   int64

	// Err, quando definido, é devolvido por toda chamada.
	Err error
}

func NewEntityStore() *EntityStore {
	return &EntityStore{entities: make(map[entities.Reference]entities.Entity)}
}

// Put seeds an entity and returns it with its assigned id.
func (s *EntityStore) Put(entity entities.Entity) entities.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(entity)
}

func (s *EntityStore) put(entity entities.Entity) entities.Entity {
	s.nextID++
	entity.ID = s.nextID
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
		entity.UpdatedAt = entity.CreatedAt
	}
	s.entities[entity.Ref()] = entity
	return entity
}

func (s *EntityStore) Get(ref entities.Reference) (entities.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[ref]
	return entity, ok
}

func (s *EntityStore) find(ref entities.Reference) (*entities.Entity, error) {
	entity, ok := s.entities[ref]
	if !ok {
		return nil, fmt.Errorf("fakes.EntityStore - %s: %w", ref, domain.ErrNotFound)
	}
	return &entity, nil
}

func (s *EntityStore) FindByReference(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	return s.find(ref)
}

func (s *EntityStore) FindByReferences(ctx context.Context, refs []entities.Reference) (map[entities.Reference]entities.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	result := make(map[entities.Reference]entities.Entity, len(refs))
	for _, ref := range refs {
		if entity, ok := s.entities[ref]; ok {
			result[ref] = entity
		}
	}
	return result, nil
}

func (s *EntityStore) Upsert(ctx context.Context, model entities.Model) (*entities.Entity, error) {
	kind, err := kinds.KindOf(model)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	base := *model.Base()
	base.Type = kind

	if existing, ok := s.entities[base.Ref()]; ok {
		existing.Properties = base.Properties
		existing.UpdatedAt = time.Now().UTC()
		s.entities[base.Ref()] = existing
		return &existing, nil
	}

	entity := s.put(base)
	return &entity, nil
}

func (s *EntityStore) SoftDelete(ctx context.Context, ref entities.Reference) (*entities.Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, false, s.Err
	}

	entity, err := s.find(ref)
	if err != nil {
		return nil, false, err
	}
	if entity.IsDeleted {
		return entity, false, nil
	}

	entity.IsDeleted = true
	entity.UpdatedAt = time.Now().UTC()
	s.entities[ref] = *entity
	return entity, true, nil
}

func (s *EntityStore) Destroy(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	entity, err := s.find(ref)
	if err != nil {
		return nil, err
	}
	delete(s.entities, ref)
	return entity, nil
}
