package provenance

import (
	"context"
	"fmt"

	"provenancegraph/src/domain/entities"

	"github.com/google/uuid"
)

// GetRelation returns soft-deleted relations too.
func (s *ProvenanceService) GetRelation(ctx context.Context, id uuid.UUID) (*entities.Relation, error) {
	relation, err := s.relationReader.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.GetRelation - %w", err)
	}

	return relation, nil
}
