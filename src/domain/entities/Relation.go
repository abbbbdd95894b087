package entities

import (
	"time"

	"github.com/google/uuid"
)

// É a "aresta" de proveniência entre dois objetos, do lado relacional.
// O registro relacional é a fonte da verdade; o grafo é apenas um espelho.
type Relation struct {
	ID               uuid.UUID `json:"id"`
	Kind             string    `json:"kind"`
	RelationshipType string    `json:"relationship_type"`
	CreatorID        string    `json:"creator_id"`
	From             Reference `json:"relatable_from"`
	To               Reference `json:"relatable_to"`
	IsDeleted        bool      `json:"is_deleted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// KindTag reports the variant kind, which differs per relation record.
func (r Relation) KindTag() string {
	return r.Kind
}

func (r Relation) Ref() Reference {
	return Reference{Kind: r.Kind, ID: r.ID.String()}
}
