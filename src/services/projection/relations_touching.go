package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

// RelationsTouching returns the nodes and edges one hop away from ref, in
// either direction. Soft-deleted relations are left out. Logically deleted
// nodes stay in, flagged IsDeleted.
func (p *Projector) RelationsTouching(ctx context.Context, ref entities.Reference, visibility domain.Visibility) (domain.ProvenanceGraph, error) {
	// Só kinds de nó: uma kind de relação também não é um nó consultável.
	if !kinds.IsEntityKind(ref.Kind) {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %q: %w", ref.Kind, domain.ErrUnknownKind)
	}

	label, err := kinds.Label(ref.Kind)
	if err != nil {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %w", err)
	}

	origin, err := p.graphReader.FindNode(ctx, label, ref)
	if err != nil {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %w", err)
	}

	edges, err := p.graphReader.IncidentEdges(ctx, *origin)
	if err != nil {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %w", err)
	}

	edges = uniqueEdges(edges)

	ids := make([]string, len(edges))
	for i, edge := range edges {
		ids[i] = edge.ModelID
	}

	active, err := p.relations.FindActive(ctx, ids)
	if err != nil {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %w", err)
	}

	// Passo 1: só arestas cujo registro relacional está ativo.
	liveEdges := make([]entities.GraphEdge, 0, len(edges))
	nodes := map[entities.Reference]entities.GraphNode{origin.Ref(): *origin}
	for _, edge := range edges {
		if _, ok := active[edge.ModelID]; !ok {
			continue
		}
		liveEdges = append(liveEdges, edge)
		mergeNode(nodes, edge.From)
		mergeNode(nodes, edge.To)
	}

	// Passo 2: visibilidade por nó, calculada uma única vez.
	visible := make(map[entities.Reference]bool, len(nodes))
	refs := make([]entities.Reference, 0, len(nodes))
	for nodeRef := range nodes {
		visible[nodeRef] = visibility.CanView(ctx, nodeRef)
		if visible[nodeRef] {
			refs = append(refs, nodeRef)
		}
	}

	// Passo 3: detalhes só para quem pode ver.
	details, err := p.entityFinder.FindByReferences(ctx, refs)
	if err != nil {
		return domain.ProvenanceGraph{}, fmt.Errorf("Projector.RelationsTouching - %w", err)
	}

	graph := domain.ProvenanceGraph{
		Origin:        ref,
		Nodes:         projectNodes(nodes, visible, details),
		Relationships: make([]domain.EdgeProjection, 0, len(liveEdges)),
	}

	for _, edge := range liveEdges {
		relation := active[edge.ModelID]
		restricted := !visible[edge.From.Ref()] || !visible[edge.To.Ref()] || !visibility.CanView(ctx, relation.Ref())
		graph.Relationships = append(graph.Relationships, projectEdge(relation, restricted))
	}

	sort.SliceStable(graph.Relationships, func(i, j int) bool {
		a, b := graph.Relationships[i], graph.Relationships[j]
		if a.RelationshipType != b.RelationshipType {
			return a.RelationshipType < b.RelationshipType
		}
		return a.ID < b.ID
	})

	p.logger.Debug("Provenance projected",
		"origin", ref.String(),
		"nodes", len(graph.Nodes),
		"relationships", len(graph.Relationships),
		"dropped_edges", len(edges)-len(liveEdges))

	return graph, nil
}

func uniqueEdges(edges []entities.GraphEdge) []entities.GraphEdge {
	seen := make(map[string]bool, len(edges))
	result := make([]entities.GraphEdge, 0, len(edges))
	for _, edge := range edges {
		if seen[edge.ModelID] {
			continue
		}
		seen[edge.ModelID] = true
		result = append(result, edge)
	}
	return result
}

func mergeNode(nodes map[entities.Reference]entities.GraphNode, node entities.GraphNode) {
	existing, ok := nodes[node.Ref()]
	if ok {
		existing.IsDeleted = existing.IsDeleted || node.IsDeleted
		nodes[node.Ref()] = existing
		return
	}
	nodes[node.Ref()] = node
}

func projectNodes(
	nodes map[entities.Reference]entities.GraphNode,
	visible map[entities.Reference]bool,
	details map[entities.Reference]entities.Entity,
) []domain.NodeProjection {
	seen := make(map[domain.ProjectionKey]bool, len(nodes))
	result := make([]domain.NodeProjection, 0, len(nodes))

	for ref, node := range nodes {
		projection := domain.NodeProjection{
			Kind:       ref.Kind,
			ID:         ref.ID,
			IsDeleted:  node.IsDeleted,
			Restricted: !visible[ref],
		}

		// O registro relacional é a fonte da verdade para o estado de remoção.
		if entity, ok := details[ref]; ok {
			projection.IsDeleted = projection.IsDeleted || entity.IsDeleted
			if !projection.Restricted {
				projection.Properties = entity.Properties
			}
		}

		if seen[projection.Key()] {
			continue
		}
		seen[projection.Key()] = true
		result = append(result, projection)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].ID < result[j].ID
	})

	return result
}

type edgeDetails struct {
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func projectEdge(relation entities.Relation, restricted bool) domain.EdgeProjection {
	projection := domain.EdgeProjection{
		Kind:             relation.Kind,
		ID:               relation.ID.String(),
		RelationshipType: relation.RelationshipType,
		From:             relation.From,
		To:               relation.To,
		Restricted:       restricted,
	}

	if !restricted {
		// Marshal de struct simples não falha.
		projection.Properties, _ = json.Marshal(edgeDetails{
			CreatorID: relation.CreatorID,
			CreatedAt: relation.CreatedAt,
			UpdatedAt: relation.UpdatedAt,
		})
	}

	return projection
}
