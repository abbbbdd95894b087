package graphsync

import (
	"context"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

func (s *Synchronizer) DeleteEdge(ctx context.Context, edge entities.GraphEdge) error {
	if err := s.graphWriter.DeleteEdge(ctx, edge); err != nil {
		return syncError(domain.MirrorDeleteEdge, edge.Ref(), err)
	}

	s.invalidate(ctx, edge.From.Ref(), edge.To.Ref())
	return nil
}

// DeleteNode removes the node and every edge attached to it.
func (s *Synchronizer) DeleteNode(ctx context.Context, node entities.GraphNode) error {
	if err := s.graphWriter.DeleteNode(ctx, node); err != nil {
		return syncError(domain.MirrorDeleteNode, node.Ref(), err)
	}

	s.invalidate(ctx, node.Ref())
	return nil
}

// LogicallyDeleteNode only flags the node; its edges stay in place.
func (s *Synchronizer) LogicallyDeleteNode(ctx context.Context, node entities.GraphNode) error {
	if err := s.graphWriter.MarkNodeDeleted(ctx, node); err != nil {
		return syncError(domain.MirrorLogicallyDeleteNode, node.Ref(), err)
	}

	s.invalidate(ctx, node.Ref())
	return nil
}
