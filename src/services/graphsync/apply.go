package graphsync

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
)

// Apply executa um comando de espelhamento, vindo inline ou do Kafka.
func (s *Synchronizer) Apply(ctx context.Context, command domain.MirrorCommand) error {
	switch command.Operation {
	case domain.MirrorCreateEdge, domain.MirrorDeleteEdge:
		if command.Edge == nil {
			return fmt.Errorf("Synchronizer.Apply - %s without edge", command.Operation)
		}
	case domain.MirrorEnsureNode, domain.MirrorDeleteNode, domain.MirrorLogicallyDeleteNode:
		if command.Node == nil {
			return fmt.Errorf("Synchronizer.Apply - %s without node", command.Operation)
		}
	default:
		return fmt.Errorf("Synchronizer.Apply - unknown operation %q", command.Operation)
	}

	switch command.Operation {
	case domain.MirrorCreateEdge:
		return s.CreateEdge(ctx, *command.Edge)
	case domain.MirrorDeleteEdge:
		return s.DeleteEdge(ctx, *command.Edge)
	case domain.MirrorEnsureNode:
		return s.EnsureNode(ctx, *command.Node)
	case domain.MirrorDeleteNode:
		return s.DeleteNode(ctx, *command.Node)
	default:
		return s.LogicallyDeleteNode(ctx, *command.Node)
	}
}
