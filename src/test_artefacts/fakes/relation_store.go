package fakes

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"

	"github.com/google/uuid"
)

// RelationStore is an in-memory prov_relations table. Transactions are
// serialized and rolled back on error; the active-triple uniqueness of the
// partial index is enforced on insert.
type RelationStore struct {
	mu        sync.Mutex
	entities  *EntityStore
	relations map[uuid.UUID]entities.Relation

	// Err, quando definido, é devolvido por toda chamada.
	Err error
}

func NewRelationStore(entityStore *EntityStore) *RelationStore {
	return &RelationStore{
		entities:  entityStore,
		relations: make(map[uuid.UUID]entities.Relation),
	}
}

func (s *RelationStore) Put(relation entities.Relation) entities.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[relation.ID] = relation
	return relation
}

// All returns every stored relation ordered by creation.
func (s *RelationStore) All() []entities.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entities.Relation, 0, len(s.relations))
	for _, relation := range s.relations {
		result = append(result, relation)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (s *RelationStore) WithinTransaction(ctx context.Context, fn func(tx domain.RelationTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	snapshot := maps.Clone(s.relations)
	if err := fn(&relationTx{store: s}); err != nil {
		s.relations = snapshot
		return err
	}
	return nil
}

func (s *RelationStore) SoftDelete(ctx context.Context, id uuid.UUID) (*entities.Relation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, false, s.Err
	}

	relation, ok := s.relations[id]
	if !ok {
		return nil, false, fmt.Errorf("fakes.RelationStore - relation %s: %w", id, domain.ErrNotFound)
	}
	if relation.IsDeleted {
		return &relation, false, nil
	}

	relation.IsDeleted = true
	relation.UpdatedAt = time.Now().UTC()
	s.relations[id] = relation
	return &relation, true, nil
}

func (s *RelationStore) Destroy(ctx context.Context, id uuid.UUID) (*entities.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	relation, ok := s.relations[id]
	if !ok {
		return nil, fmt.Errorf("fakes.RelationStore - relation %s: %w", id, domain.ErrNotFound)
	}
	delete(s.relations, id)
	return &relation, nil
}

func (s *RelationStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	relation, ok := s.relations[id]
	if !ok {
		return nil, fmt.Errorf("fakes.RelationStore - relation %s: %w", id, domain.ErrNotFound)
	}
	return &relation, nil
}

func (s *RelationStore) FindActive(ctx context.Context, ids []string) (map[string]entities.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	result := make(map[string]entities.Relation, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if relation, ok := s.relations[parsed]; ok && !relation.IsDeleted {
			result[id] = relation
		}
	}
	return result, nil
}

type relationTx struct {
	store *RelationStore
}

func (t *relationTx) FindEntity(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	return t.store.entities.FindByReference(ctx, ref)
}

func (t *relationTx) ActiveRelationExists(ctx context.Context, relationshipType string, from entities.Reference, to entities.Reference) (bool, error) {
	for _, relation := range t.store.relations {
		if !relation.IsDeleted && relation.RelationshipType == relationshipType && relation.From == from && relation.To == to {
			return true, nil
		}
	}
	return false, nil
}

func (t *relationTx) InsertRelation(ctx context.Context, relation *entities.Relation) error {
	exists, _ := t.ActiveRelationExists(ctx, relation.RelationshipType, relation.From, relation.To)
	if exists {
		return fmt.Errorf("fakes.RelationStore - %s: %w", relation.RelationshipType, domain.ErrDuplicateRelation)
	}

	now := time.Now().UTC()
	relation.CreatedAt = now
	relation.UpdatedAt = now
	relation.IsDeleted = false
	t.store.relations[relation.ID] = *relation
	return nil
}
