package stubs

import (
	"time"

	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

type RelationStub struct {
	relation entities.Relation
}

// NewRelationStub starts from a Used relation between fresh references.
func NewRelationStub() RelationStub {
	now := time.Now().UTC()
	def := catalog.ForVariant(catalog.Used)

	relation := entities.Relation{
		ID:               uuid.New(),
		Kind:             def.Kind,
		RelationshipType: def.RelationshipType,
		CreatorID:        "user-" + faker.UUIDHyphenated(),
		From:             entities.Reference{Kind: def.From[0], ID: "act-" + faker.UUIDHyphenated()},
		To:               entities.Reference{Kind: def.To[0], ID: "fv-" + faker.UUIDHyphenated()},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return RelationStub{relation: relation}
}

// WithVariant troca kind e relationship_type pelos valores do catálogo.
func (rs RelationStub) WithVariant(variant catalog.Variant) RelationStub {
	def := catalog.ForVariant(variant)
	rs.relation.Kind = def.Kind
	rs.relation.RelationshipType = def.RelationshipType
	return rs
}

func (rs RelationStub) WithFrom(ref entities.Reference) RelationStub {
	rs.relation.From = ref
	return rs
}

func (rs RelationStub) WithTo(ref entities.Reference) RelationStub {
	rs.relation.To = ref
	return rs
}

func (rs RelationStub) WithCreator(creatorID string) RelationStub {
	rs.relation.CreatorID = creatorID
	return rs
}

func (rs RelationStub) Deleted() RelationStub {
	rs.relation.IsDeleted = true
	return rs
}

func (rs RelationStub) Get() entities.Relation {
	return rs.relation
}
