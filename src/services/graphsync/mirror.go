package graphsync

import (
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

// NodeFor builds the mirror of an entity reference.
func NodeFor(ref entities.Reference, isDeleted bool) (entities.GraphNode, error) {
	if !kinds.IsEntityKind(ref.Kind) {
		return entities.GraphNode{}, fmt.Errorf("graphsync.NodeFor - %q is not a node kind: %w", ref.Kind, domain.ErrUnknownKind)
	}

	label, err := kinds.Label(ref.Kind)
	if err != nil {
		return entities.GraphNode{}, fmt.Errorf("graphsync.NodeFor - %w", err)
	}

	return entities.GraphNode{
		Label:     label,
		ModelKind: ref.Kind,
		ModelID:   ref.ID,
		IsDeleted: isDeleted,
	}, nil
}

// EdgeFor builds the mirror of a relation. The edge label comes from the
// catalog entry of the persisted relationship type, never from the caller.
func EdgeFor(relation entities.Relation, fromDeleted bool, toDeleted bool) (entities.GraphEdge, error) {
	def, err := catalog.ByRelationshipType(relation.RelationshipType)
	if err != nil {
		return entities.GraphEdge{}, fmt.Errorf("graphsync.EdgeFor - %w", err)
	}

	from, err := NodeFor(relation.From, fromDeleted)
	if err != nil {
		return entities.GraphEdge{}, err
	}

	to, err := NodeFor(relation.To, toDeleted)
	if err != nil {
		return entities.GraphEdge{}, err
	}

	return entities.GraphEdge{
		Label:            def.EdgeLabel,
		RelationshipType: def.RelationshipType,
		ModelKind:        relation.Kind,
		ModelID:          relation.ID.String(),
		From:             from,
		To:               to,
	}, nil
}
