package domain

import (
	"context"

	"provenancegraph/src/domain/entities"
)

// Actions checked with the Authorizer.
const (
	ActionCreate  = "create"
	ActionShow    = "show"
	ActionDestroy = "destroy"
)

// RelationTx is the view of the relational store available while a relation
// is being validated and inserted. Every call runs in the same transaction.
type RelationTx interface {
	FindEntity(ctx context.Context, ref entities.Reference) (*entities.Entity, error)
	ActiveRelationExists(ctx context.Context, relationshipType string, from entities.Reference, to entities.Reference) (bool, error)
	InsertRelation(ctx context.Context, relation *entities.Relation) error
}

// Authorizer is the external policy decision point.
type Authorizer interface {
	Can(ctx context.Context, actorID string, action string, subject entities.Reference) bool
}

// AuditRecorder receives an append-only record of every mutation.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
}

// Visibility decides whether the caller may see the details of a node or edge.
type Visibility interface {
	CanView(ctx context.Context, ref entities.Reference) bool
}

type VisibilityFunc func(ctx context.Context, ref entities.Reference) bool

func (f VisibilityFunc) CanView(ctx context.Context, ref entities.Reference) bool {
	return f(ctx, ref)
}

// FullVisibility sees everything; used by internal callers.
var FullVisibility Visibility = VisibilityFunc(func(context.Context, entities.Reference) bool { return true })
