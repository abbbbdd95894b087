package repositories

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	graphdb "provenancegraph/src/infra/neo4j"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphQueryRepository struct {
	client *graphdb.Neo4jClient
}

func NewGraphQueryRepository(client *graphdb.Neo4jClient) *GraphQueryRepository {
	return &GraphQueryRepository{client: client}
}

func (r *GraphQueryRepository) FindNode(ctx context.Context, label string, ref entities.Reference) (*entities.GraphNode, error) {
	if err := checkIdentifier(label); err != nil {
		return nil, fmt.Errorf("GraphQueryRepository.FindNode - %w", err)
	}

	query := fmt.Sprintf(`
		MATCH (n:%s {model_kind: $model_kind, model_id: $model_id})
		RETURN 
			n.model_kind AS model_kind, 
			n.model_id AS model_id, 
			coalesce(n.is_deleted, false) AS is_deleted
		LIMIT 1
	`, label)

	records, err := r.read(ctx, query, map[string]any{"model_kind": ref.Kind, "model_id": ref.ID})
	if err != nil {
		return nil, fmt.Errorf("GraphQueryRepository.FindNode - %s: %w", ref, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("GraphQueryRepository.FindNode - %s: %w", ref, domain.ErrNotFound)
	}

	return &entities.GraphNode{
		Label:     label,
		ModelKind: getStringFromRecord(records[0], "model_kind"),
		ModelID:   getStringFromRecord(records[0], "model_id"),
		IsDeleted: getBoolFromRecord(records[0], "is_deleted"),
	}, nil
}

// IncidentEdges walks one hop in either direction and returns each edge once,
// with both endpoints. Self loops appear a single time.
func (r *GraphQueryRepository) IncidentEdges(ctx context.Context, node entities.GraphNode) ([]entities.GraphEdge, error) {
	if err := checkIdentifier(node.Label); err != nil {
		return nil, fmt.Errorf("GraphQueryRepository.IncidentEdges - %w", err)
	}

	query := fmt.Sprintf(`
		MATCH (n:%s {model_kind: $model_kind, model_id: $model_id})-[r]-()
		WITH DISTINCT r
		WITH r, startNode(r) AS a, endNode(r) AS b
		RETURN
			type(r) AS label,
			r.model_kind AS model_kind,
			r.model_id AS model_id,
			r.relationship_type AS relationship_type,
			head(labels(a)) AS from_label,
			a.model_kind AS from_kind,
			a.model_id AS from_id,
			coalesce(a.is_deleted, false) AS from_deleted,
			head(labels(b)) AS to_label,
			b.model_kind AS to_kind,
			b.model_id AS to_id,
			coalesce(b.is_deleted, false) AS to_deleted
		ORDER BY relationship_type, model_id
	`, node.Label)

	records, err := r.read(ctx, query, map[string]any{"model_kind": node.ModelKind, "model_id": node.ModelID})
	if err != nil {
		return nil, fmt.Errorf("GraphQueryRepository.IncidentEdges - %s: %w", node.Ref(), err)
	}

	edges := make([]entities.GraphEdge, 0, len(records))
	for _, record := range records {
		edges = append(edges, entities.GraphEdge{
			Label:            getStringFromRecord(record, "label"),
			RelationshipType: getStringFromRecord(record, "relationship_type"),
			ModelKind:        getStringFromRecord(record, "model_kind"),
			ModelID:          getStringFromRecord(record, "model_id"),
			From: entities.GraphNode{
				Label:     getStringFromRecord(record, "from_label"),
				ModelKind: getStringFromRecord(record, "from_kind"),
				ModelID:   getStringFromRecord(record, "from_id"),
				IsDeleted: getBoolFromRecord(record, "from_deleted"),
			},
			To: entities.GraphNode{
				Label:     getStringFromRecord(record, "to_label"),
				ModelKind: getStringFromRecord(record, "to_kind"),
				ModelID:   getStringFromRecord(record, "to_id"),
				IsDeleted: getBoolFromRecord(record, "to_deleted"),
			},
		})
	}

	return edges, nil
}

func (r *GraphQueryRepository) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	return result.([]*neo4j.Record), nil
}
