package graphsync

import (
	"context"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

// EnsureNode upserts the mirror node; the per-label uniqueness constraint
// keeps repeated calls from creating duplicates.
func (s *Synchronizer) EnsureNode(ctx context.Context, node entities.GraphNode) error {
	if err := s.graphWriter.MergeNode(ctx, node); err != nil {
		return syncError(domain.MirrorEnsureNode, node.Ref(), err)
	}

	s.invalidate(ctx, node.Ref())
	return nil
}
