package authz

import (
	"context"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

// AllowAll is the default policy: policy decisions live outside this service.
type AllowAll struct{}

func (AllowAll) Can(context.Context, string, string, entities.Reference) bool {
	return true
}

// VisibilityFor adapts an Authorizer to the projector's per-object check.
func VisibilityFor(authorizer domain.Authorizer, actorID string) domain.Visibility {
	return domain.VisibilityFunc(func(ctx context.Context, ref entities.Reference) bool {
		return authorizer.Can(ctx, actorID, domain.ActionShow, ref)
	})
}
