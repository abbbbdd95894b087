package repositories

import (
	"context"
	"fmt"
	"log"
	"strings"

	"provenancegraph/src/domain/entities"
	graphdb "provenancegraph/src/infra/neo4j"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphMirrorRepository writes the node/edge mirror of the relational store.
// Every write is a MERGE or a conditional delete, so replays are harmless.
type GraphMirrorRepository struct {
	client *graphdb.Neo4jClient
}

func NewGraphMirrorRepository(client *graphdb.Neo4jClient) *GraphMirrorRepository {
	return &GraphMirrorRepository{client: client}
}

// EnsureSchema creates the uniqueness constraints the MERGEs rely on.
func (r *GraphMirrorRepository) EnsureSchema(ctx context.Context, nodeLabels []string, edgeLabels []string) error {
	statements := make([]string, 0, len(nodeLabels)+len(edgeLabels))

	for _, label := range nodeLabels {
		if err := checkIdentifier(label); err != nil {
			return fmt.Errorf("GraphMirrorRepository.EnsureSchema - %w", err)
		}
		statements = append(statements, fmt.Sprintf(
			"CREATE CONSTRAINT %s_model_key IF NOT EXISTS FOR (n:%s) REQUIRE (n.model_kind, n.model_id) IS UNIQUE",
			strings.ToLower(label), label,
		))
	}

	for _, label := range edgeLabels {
		if err := checkIdentifier(label); err != nil {
			return fmt.Errorf("GraphMirrorRepository.EnsureSchema - %w", err)
		}
		statements = append(statements, fmt.Sprintf(
			"CREATE CONSTRAINT %s_model_id IF NOT EXISTS FOR ()-[r:%s]-() REQUIRE r.model_id IS UNIQUE",
			strings.ToLower(label), label,
		))
	}

	session := r.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// DDL não pode dividir transação com escrita; uma por statement.
	for _, statement := range statements {
		result, err := session.Run(ctx, statement, nil)
		if err != nil {
			return fmt.Errorf("GraphMirrorRepository.EnsureSchema - %s: %w", statement, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("GraphMirrorRepository.EnsureSchema - %s: %w", statement, err)
		}
	}

	log.Printf("Graph schema ensured: %d node labels, %d edge labels", len(nodeLabels), len(edgeLabels))
	return nil
}

func (r *GraphMirrorRepository) MergeNode(ctx context.Context, node entities.GraphNode) error {
	if err := checkIdentifier(node.Label); err != nil {
		return fmt.Errorf("GraphMirrorRepository.MergeNode - %w", err)
	}

	query := fmt.Sprintf(`
		MERGE (n:%s {model_kind: $model_kind, model_id: $model_id})
		ON CREATE SET n.is_deleted = $is_deleted
		ON MATCH SET n.is_deleted = coalesce(n.is_deleted, false) OR $is_deleted
	`, node.Label)

	params := map[string]any{
		"model_kind": node.ModelKind,
		"model_id":   node.ModelID,
		"is_deleted": node.IsDeleted,
	}

	if err := r.write(ctx, query, params); err != nil {
		return fmt.Errorf("GraphMirrorRepository.MergeNode - %s: %w", node.Ref(), err)
	}
	return nil
}

// MergeEdge garante os dois nós e a aresta numa única transação.
func (r *GraphMirrorRepository) MergeEdge(ctx context.Context, edge entities.GraphEdge) error {
	for _, identifier := range []string{edge.From.Label, edge.To.Label, edge.Label} {
		if err := checkIdentifier(identifier); err != nil {
			return fmt.Errorf("GraphMirrorRepository.MergeEdge - %w", err)
		}
	}

	query := fmt.Sprintf(`
		MERGE (from:%s {model_kind: $from_kind, model_id: $from_id})
		ON CREATE SET from.is_deleted = $from_deleted
		ON MATCH SET from.is_deleted = coalesce(from.is_deleted, false) OR $from_deleted
		MERGE (to:%s {model_kind: $to_kind, model_id: $to_id})
		ON CREATE SET to.is_deleted = $to_deleted
		ON MATCH SET to.is_deleted = coalesce(to.is_deleted, false) OR $to_deleted
		MERGE (from)-[r:%s {model_id: $model_id}]->(to)
		ON CREATE SET r.model_kind = $model_kind, r.relationship_type = $relationship_type
	`, edge.From.Label, edge.To.Label, edge.Label)

	params := map[string]any{
		"from_kind":         edge.From.ModelKind,
		"from_id":           edge.From.ModelID,
		"from_deleted":      edge.From.IsDeleted,
		"to_kind":           edge.To.ModelKind,
		"to_id":             edge.To.ModelID,
		"to_deleted":        edge.To.IsDeleted,
		"model_id":          edge.ModelID,
		"model_kind":        edge.ModelKind,
		"relationship_type": edge.RelationshipType,
	}

	if err := r.write(ctx, query, params); err != nil {
		return fmt.Errorf("GraphMirrorRepository.MergeEdge - %s: %w", edge.Ref(), err)
	}
	return nil
}

func (r *GraphMirrorRepository) DeleteEdge(ctx context.Context, edge entities.GraphEdge) error {
	if err := checkIdentifier(edge.Label); err != nil {
		return fmt.Errorf("GraphMirrorRepository.DeleteEdge - %w", err)
	}

	query := fmt.Sprintf(`MATCH ()-[r:%s {model_id: $model_id}]->() DELETE r`, edge.Label)

	if err := r.write(ctx, query, map[string]any{"model_id": edge.ModelID}); err != nil {
		return fmt.Errorf("GraphMirrorRepository.DeleteEdge - %s: %w", edge.Ref(), err)
	}
	return nil
}

func (r *GraphMirrorRepository) DeleteNode(ctx context.Context, node entities.GraphNode) error {
	if err := checkIdentifier(node.Label); err != nil {
		return fmt.Errorf("GraphMirrorRepository.DeleteNode - %w", err)
	}

	query := fmt.Sprintf(`MATCH (n:%s {model_kind: $model_kind, model_id: $model_id}) DETACH DELETE n`, node.Label)

	params := map[string]any{"model_kind": node.ModelKind, "model_id": node.ModelID}
	if err := r.write(ctx, query, params); err != nil {
		return fmt.Errorf("GraphMirrorRepository.DeleteNode - %s: %w", node.Ref(), err)
	}
	return nil
}

// MarkNodeDeleted flags the node without touching its edges; absent nodes are ignored.
func (r *GraphMirrorRepository) MarkNodeDeleted(ctx context.Context, node entities.GraphNode) error {
	if err := checkIdentifier(node.Label); err != nil {
		return fmt.Errorf("GraphMirrorRepository.MarkNodeDeleted - %w", err)
	}

	query := fmt.Sprintf(`MATCH (n:%s {model_kind: $model_kind, model_id: $model_id}) SET n.is_deleted = true`, node.Label)

	params := map[string]any{"model_kind": node.ModelKind, "model_id": node.ModelID}
	if err := r.write(ctx, query, params); err != nil {
		return fmt.Errorf("GraphMirrorRepository.MarkNodeDeleted - %s: %w", node.Ref(), err)
	}
	return nil
}

func (r *GraphMirrorRepository) write(ctx context.Context, query string, params map[string]any) error {
	session := r.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}
