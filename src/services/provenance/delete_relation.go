package provenance

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/services/graphsync"

	"github.com/google/uuid"
)

// SoftDeleteRelation marca a relação como removida. Repetir a chamada é
// um no-op. A aresta espelho fica no grafo; as projeções filtram pelo
// registro relacional.
func (s *ProvenanceService) SoftDeleteRelation(ctx context.Context, id uuid.UUID, actorID string) error {
	relation, flipped, err := s.relationWriter.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("ProvenanceService.SoftDeleteRelation - %w", err)
	}

	if !flipped {
		s.logger.Debug("Relation already deleted", "id", id.String())
		return nil
	}

	s.logger.Info("Relation soft deleted", "id", id.String(), "actor_id", actorID)

	s.audit(ctx, domain.ActionDestroy, actorID, relation.Ref(), map[string]any{
		"is_deleted": []bool{false, true},
	})

	return nil
}

// DestroyRelation is administrative teardown: the record and its mirror
// edge are removed for good.
func (s *ProvenanceService) DestroyRelation(ctx context.Context, id uuid.UUID) error {
	relation, err := s.relationWriter.Destroy(ctx, id)
	if err != nil {
		return fmt.Errorf("ProvenanceService.DestroyRelation - %w", err)
	}

	s.logger.Info("Relation destroyed", "id", id.String())

	edge, err := graphsync.EdgeFor(*relation, false, false)
	if err != nil {
		s.logger.Error("Failed to build mirror edge", "error", err, "id", id.String())
		return nil
	}

	s.mirror(ctx, domain.MirrorCommand{Operation: domain.MirrorDeleteEdge, Edge: &edge})
	return nil
}
