package projection

import (
	"context"
	"log/slog"

	"provenancegraph/src/domain/entities"
)

type GraphReader interface {
	FindNode(ctx context.Context, label string, ref entities.Reference) (*entities.GraphNode, error)
	IncidentEdges(ctx context.Context, node entities.GraphNode) ([]entities.GraphEdge, error)
}

// ActiveRelationFinder returns, for the given ids, only the relations whose
// record exists and is not soft-deleted.
type ActiveRelationFinder interface {
	FindActive(ctx context.Context, ids []string) (map[string]entities.Relation, error)
}

type EntityFinder interface {
	FindByReferences(ctx context.Context, refs []entities.Reference) (map[entities.Reference]entities.Entity, error)
}

// Projector answers "what touches this node" over the graph mirror, with the
// relational store as the authority on which relations are live.
type Projector struct {
	logger       *slog.Logger
	graphReader  GraphReader
	relations    ActiveRelationFinder
	entityFinder EntityFinder
}

func NewProjector(
	logger *slog.Logger,
	graphReader GraphReader,
	relations ActiveRelationFinder,
	entityFinder EntityFinder,
) *Projector {
	return &Projector{
		logger:       logger,
		graphReader:  graphReader,
		relations:    relations,
		entityFinder: entityFinder,
	}
}
