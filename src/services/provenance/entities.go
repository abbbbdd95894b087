package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/services/graphsync"
)

// UpsertEntity grava o objeto no banco relacional e garante o nó espelho,
// para que ele apareça em consultas mesmo sem relações.
func (s *ProvenanceService) UpsertEntity(ctx context.Context, ref entities.Reference, properties json.RawMessage, actorID string) (*entities.Entity, error) {
	model, err := newModel(ref)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.UpsertEntity - %w", err)
	}

	model.Base().Properties = properties

	entity, err := s.entityRepository.Upsert(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.UpsertEntity - %w", err)
	}

	node, err := graphsync.NodeFor(entity.Ref(), entity.IsDeleted)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.UpsertEntity - %w", err)
	}

	s.mirror(ctx, domain.MirrorCommand{Operation: domain.MirrorEnsureNode, Node: &node})
	s.audit(ctx, domain.ActionCreate, actorID, entity.Ref(), map[string]any{"properties": entity.Properties})

	return entity, nil
}

// SoftDeleteEntity marks the object deleted and flags its mirror node.
// Relations touching it are kept; WasInvalidatedBy depends on this state.
func (s *ProvenanceService) SoftDeleteEntity(ctx context.Context, ref entities.Reference, actorID string) error {
	node, err := graphsync.NodeFor(ref, true)
	if err != nil {
		return fmt.Errorf("ProvenanceService.SoftDeleteEntity - %w", err)
	}

	_, flipped, err := s.entityRepository.SoftDelete(ctx, ref)
	if err != nil {
		return fmt.Errorf("ProvenanceService.SoftDeleteEntity - %w", err)
	}

	if flipped {
		s.logger.Info("Entity soft deleted", "entity", ref.String(), "actor_id", actorID)
		s.audit(ctx, domain.ActionDestroy, actorID, ref, map[string]any{
			"is_deleted": []bool{false, true},
		})
	}

	// Reenviado mesmo sem mudança: o espelho pode ter perdido a escrita anterior.
	s.mirror(ctx, domain.MirrorCommand{Operation: domain.MirrorLogicallyDeleteNode, Node: &node})
	return nil
}

// DestroyEntity removes the row and the mirror node with its edges.
func (s *ProvenanceService) DestroyEntity(ctx context.Context, ref entities.Reference) error {
	node, err := graphsync.NodeFor(ref, true)
	if err != nil {
		return fmt.Errorf("ProvenanceService.DestroyEntity - %w", err)
	}

	if _, err := s.entityRepository.Destroy(ctx, ref); err != nil {
		return fmt.Errorf("ProvenanceService.DestroyEntity - %w", err)
	}

	s.logger.Info("Entity destroyed", "entity", ref.String())

	s.mirror(ctx, domain.MirrorCommand{Operation: domain.MirrorDeleteNode, Node: &node})
	return nil
}

// GetEntity reads the relational row of an object.
func (s *ProvenanceService) GetEntity(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	if !kinds.IsEntityKind(ref.Kind) {
		return nil, fmt.Errorf("ProvenanceService.GetEntity - %q: %w", ref.Kind, domain.ErrUnknownKind)
	}

	entity, err := s.entityRepository.FindByReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.GetEntity - %w", err)
	}

	return entity, nil
}

// newModel instancia o tipo concreto registrado para a kind.
func newModel(ref entities.Reference) (entities.Model, error) {
	if !kinds.IsEntityKind(ref.Kind) {
		return nil, fmt.Errorf("%q: %w", ref.Kind, domain.ErrUnknownKind)
	}

	t, err := kinds.Resolve(ref.Kind)
	if err != nil {
		return nil, err
	}

	model, ok := reflect.New(t).Interface().(entities.Model)
	if !ok {
		return nil, fmt.Errorf("%s does not embed entities.Entity", t)
	}

	model.Base().Reference = ref.ID
	return model, nil
}
