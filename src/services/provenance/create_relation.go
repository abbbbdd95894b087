package provenance

import (
	"context"
	"errors"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/services/graphsync"

	"github.com/google/uuid"
)

const (
	fieldCreator          = "creator"
	fieldFrom             = "relatable_from"
	fieldTo               = "relatable_to"
	fieldRelationshipType = "relationship_type"
)

// CreateRelation valida e persiste uma relação de proveniência e depois
// espelha no grafo. Falhas de validação voltam como *domain.ValidationError;
// nada é gravado nesse caso.
func (s *ProvenanceService) CreateRelation(ctx context.Context, request domain.CreateRelationRequest) (*entities.Relation, error) {
	def, err := catalog.Lookup(request.Variant)
	if err != nil {
		return nil, fmt.Errorf("ProvenanceService.CreateRelation - %w", err)
	}

	if err := checkPresence(request); err != nil {
		return nil, err
	}

	if err := checkEndpoints(def, request.From, request.To); err != nil {
		return nil, err
	}

	// O tipo informado pelo chamador é sempre descartado.
	relation := &entities.Relation{
		ID:               uuid.New(),
		Kind:             def.Kind,
		RelationshipType: def.RelationshipType,
		CreatorID:        request.CreatorID,
		From:             request.From,
		To:               request.To,
	}

	var from, to *entities.Entity

	err = s.relationWriter.WithinTransaction(ctx, func(tx domain.RelationTx) error {
		var err error

		if from, err = tx.FindEntity(ctx, relation.From); err != nil {
			return err
		}
		if to, err = tx.FindEntity(ctx, relation.To); err != nil {
			return err
		}

		taken, err := tx.ActiveRelationExists(ctx, relation.RelationshipType, relation.From, relation.To)
		if err != nil {
			return err
		}
		if taken {
			return duplicateRelation()
		}

		if err := s.checkRule(ctx, tx, def, relation, from); err != nil {
			return err
		}

		return tx.InsertRelation(ctx, relation)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidationFailed):
			return nil, err
		case errors.Is(err, domain.ErrDuplicateRelation):
			// Corrida perdida para outra transação: o índice parcial decidiu.
			return nil, duplicateRelation()
		}
		return nil, fmt.Errorf("ProvenanceService.CreateRelation - %w", err)
	}

	s.logger.Info("Relation created",
		"id", relation.ID.String(),
		"relationship_type", relation.RelationshipType,
		"from", relation.From.String(),
		"to", relation.To.String())

	edge, err := graphsync.EdgeFor(*relation, from.IsDeleted, to.IsDeleted)
	if err != nil {
		s.logger.Error("Failed to build mirror edge", "error", err, "id", relation.ID.String())
	} else {
		s.mirror(ctx, domain.MirrorCommand{Operation: domain.MirrorCreateEdge, Edge: &edge})
	}

	s.audit(ctx, domain.ActionCreate, relation.CreatorID, relation.Ref(), map[string]any{
		"relationship_type": relation.RelationshipType,
		"relatable_from":    relation.From,
		"relatable_to":      relation.To,
	})

	return relation, nil
}

func checkPresence(request domain.CreateRelationRequest) error {
	if request.CreatorID == "" {
		return domain.NewValidationError(fieldCreator, "can't be blank", nil)
	}
	if request.From.IsZero() {
		return domain.NewValidationError(fieldFrom, "can't be blank", nil)
	}
	if request.To.IsZero() {
		return domain.NewValidationError(fieldTo, "can't be blank", nil)
	}
	return nil
}

func checkEndpoints(def catalog.Definition, from entities.Reference, to entities.Reference) error {
	if _, err := kinds.Resolve(from.Kind); err != nil {
		return domain.NewValidationError(fieldFrom, "kind is not registered", domain.ErrUnknownKind)
	}
	if _, err := kinds.Resolve(to.Kind); err != nil {
		return domain.NewValidationError(fieldTo, "kind is not registered", domain.ErrUnknownKind)
	}

	if !def.AllowsFrom(from.Kind) {
		return domain.NewValidationError(fieldFrom, fmt.Sprintf("%s is not allowed for %s", from.Kind, def.Name), domain.ErrEndpointKindMismatch)
	}
	if !def.AllowsTo(to.Kind) {
		return domain.NewValidationError(fieldTo, fmt.Sprintf("%s is not allowed for %s", to.Kind, def.Name), domain.ErrEndpointKindMismatch)
	}
	return nil
}

func (s *ProvenanceService) checkRule(ctx context.Context, tx domain.RelationTx, def catalog.Definition, relation *entities.Relation, from *entities.Entity) error {
	switch def.Rule {
	case catalog.RuleNotUsedByActivity:
		// WasGeneratedBy(E -> A) conflita com Used(A -> E) ativo.
		used := catalog.ForVariant(catalog.Used)
		exists, err := tx.ActiveRelationExists(ctx, used.RelationshipType, relation.To, relation.From)
		if err != nil {
			return err
		}
		if exists {
			return domain.NewValidationError(fieldFrom, "was already used by the activity", domain.ErrConflictingRelation)
		}

	case catalog.RuleEntityDeleted:
		if !from.IsDeleted {
			return domain.NewValidationError(fieldFrom, "must be deleted before it is invalidated", domain.ErrEntityNotYetDeleted)
		}
	}

	return nil
}

func duplicateRelation() error {
	return domain.NewValidationError(fieldRelationshipType, "has already been taken", domain.ErrDuplicateRelation)
}
