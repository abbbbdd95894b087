package fakes

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

// Graph is an in-memory graph substrate keyed the same way as the real
// constraints: nodes by (kind, id), edges by relation id.
type Graph struct {
	mu    sync.Mutex
	nodes map[entities.Reference]entities.GraphNode
	edges map[string]entities.GraphEdge

	// WriteErr falha as escritas; ReadErr falha as leituras.
	WriteErr error
	ReadErr  error
	Writes   int
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[entities.Reference]entities.GraphNode),
		edges: make(map[string]entities.GraphEdge),
	}
}

func (g *Graph) Nodes() []entities.GraphNode {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]entities.GraphNode, 0, len(g.nodes))
	for _, node := range g.nodes {
		result = append(result, node)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ref().String() < result[j].Ref().String() })
	return result
}

func (g *Graph) Edges() []entities.GraphEdge {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]entities.GraphEdge, 0, len(g.edges))
	for _, edge := range g.edges {
		result = append(result, g.refresh(edge))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModelID < result[j].ModelID })
	return result
}

func (g *Graph) Node(ref entities.Reference) (entities.GraphNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[ref]
	return node, ok
}

func (g *Graph) mergeNode(node entities.GraphNode) {
	if existing, ok := g.nodes[node.Ref()]; ok {
		existing.IsDeleted = existing.IsDeleted || node.IsDeleted
		g.nodes[node.Ref()] = existing
		return
	}
	g.nodes[node.Ref()] = node
}

func (g *Graph) write() error {
	g.Writes++
	return g.WriteErr
}

func (g *Graph) MergeNode(ctx context.Context, node entities.GraphNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(); err != nil {
		return err
	}
	g.mergeNode(node)
	return nil
}

func (g *Graph) MergeEdge(ctx context.Context, edge entities.GraphEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(); err != nil {
		return err
	}
	g.mergeNode(edge.From)
	g.mergeNode(edge.To)
	if _, ok := g.edges[edge.ModelID]; !ok {
		g.edges[edge.ModelID] = edge
	}
	return nil
}

func (g *Graph) DeleteEdge(ctx context.Context, edge entities.GraphEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(); err != nil {
		return err
	}
	delete(g.edges, edge.ModelID)
	return nil
}

func (g *Graph) DeleteNode(ctx context.Context, node entities.GraphNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(); err != nil {
		return err
	}
	delete(g.nodes, node.Ref())
	for id, edge := range g.edges {
		if edge.From.Ref() == node.Ref() || edge.To.Ref() == node.Ref() {
			delete(g.edges, id)
		}
	}
	return nil
}

func (g *Graph) MarkNodeDeleted(ctx context.Context, node entities.GraphNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.write(); err != nil {
		return err
	}
	if existing, ok := g.nodes[node.Ref()]; ok {
		existing.IsDeleted = true
		g.nodes[node.Ref()] = existing
	}
	return nil
}

func (g *Graph) FindNode(ctx context.Context, label string, ref entities.Reference) (*entities.GraphNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ReadErr != nil {
		return nil, g.ReadErr
	}

	node, ok := g.nodes[ref]
	if !ok || node.Label != label {
		return nil, fmt.Errorf("fakes.Graph - %s: %w", ref, domain.ErrNotFound)
	}
	return &node, nil
}

func (g *Graph) IncidentEdges(ctx context.Context, node entities.GraphNode) ([]entities.GraphEdge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ReadErr != nil {
		return nil, g.ReadErr
	}

	var result []entities.GraphEdge
	for _, edge := range g.edges {
		if edge.From.Ref() == node.Ref() || edge.To.Ref() == node.Ref() {
			result = append(result, g.refresh(edge))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModelID < result[j].ModelID })
	return result, nil
}

// refresh copies the current node state onto the edge endpoints.
func (g *Graph) refresh(edge entities.GraphEdge) entities.GraphEdge {
	if node, ok := g.nodes[edge.From.Ref()]; ok {
		edge.From = node
	}
	if node, ok := g.nodes[edge.To.Ref()]; ok {
		edge.To = node
	}
	return edge
}
