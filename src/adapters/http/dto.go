package http

import (
	"encoding/json"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

type ReferenceDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// CreateRelationRequestDTO aceita from/to explícitos ou os nomes de campo
// de cada variante (activity, entity, agent, ...).
type CreateRelationRequestDTO struct {
	From             *ReferenceDTO `json:"from,omitempty"`
	To               *ReferenceDTO `json:"to,omitempty"`
	Activity         *ReferenceDTO `json:"activity,omitempty"`
	Entity           *ReferenceDTO `json:"entity,omitempty"`
	Agent            *ReferenceDTO `json:"agent,omitempty"`
	UsedEntity       *ReferenceDTO `json:"used_entity,omitempty"`
	GeneratedEntity  *ReferenceDTO `json:"generated_entity,omitempty"`
	RelationshipType string        `json:"relationship_type,omitempty"`
}

// endpoints resolve os aliases da variante; from/to explícitos têm prioridade.
func (dto CreateRelationRequestDTO) endpoints(variant catalog.Variant) (entities.Reference, entities.Reference) {
	activity := dto.Activity.withDefaultKind(kinds.Activity)
	entity := dto.Entity.withDefaultKind(kinds.FileVersion)
	agent := dto.Agent.withDefaultKind("")

	var from, to entities.Reference
	switch variant {
	case catalog.Used:
		from, to = activity, entity
	case catalog.WasGeneratedBy, catalog.WasInvalidatedBy:
		from, to = entity, activity
	case catalog.WasAssociatedWith:
		from, to = agent, activity
	case catalog.WasAttributedTo:
		from, to = entity, agent
	case catalog.WasDerivedFrom:
		from = dto.GeneratedEntity.withDefaultKind(kinds.FileVersion)
		to = dto.UsedEntity.withDefaultKind(kinds.FileVersion)
	}

	if dto.From != nil {
		from = dto.From.withDefaultKind("")
	}
	if dto.To != nil {
		to = dto.To.withDefaultKind("")
	}

	return from, to
}

func (r *ReferenceDTO) withDefaultKind(kind string) entities.Reference {
	if r == nil {
		return entities.Reference{}
	}
	if r.Kind == "" {
		return entities.Reference{Kind: kind, ID: r.ID}
	}
	return entities.Reference{Kind: r.Kind, ID: r.ID}
}

type RelationDTO struct {
	ID               string       `json:"id"`
	Kind             string       `json:"kind"`
	RelationshipType string       `json:"relationship_type"`
	CreatorID        string       `json:"creator_id"`
	From             ReferenceDTO `json:"from"`
	To               ReferenceDTO `json:"to"`
	IsDeleted        bool         `json:"is_deleted"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func MapRelationToResponse(relation *entities.Relation) RelationDTO {
	return RelationDTO{
		ID:               relation.ID.String(),
		Kind:             relation.Kind,
		RelationshipType: relation.RelationshipType,
		CreatorID:        relation.CreatorID,
		From:             ReferenceDTO{Kind: relation.From.Kind, ID: relation.From.ID},
		To:               ReferenceDTO{Kind: relation.To.Kind, ID: relation.To.ID},
		IsDeleted:        relation.IsDeleted,
		CreatedAt:        relation.CreatedAt,
		UpdatedAt:        relation.UpdatedAt,
	}
}

type UpsertEntityRequestDTO struct {
	Properties json.RawMessage `json:"properties"`
}

type EntityDTO struct {
	Kind       string          `json:"kind"`
	ID         string          `json:"id"`
	Properties json.RawMessage `json:"properties"`
	IsDeleted  bool            `json:"is_deleted"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func MapEntityToResponse(entity *entities.Entity) EntityDTO {
	return EntityDTO{
		Kind:       entity.Type,
		ID:         entity.Reference,
		Properties: entity.Properties,
		IsDeleted:  entity.IsDeleted,
		CreatedAt:  entity.CreatedAt,
		UpdatedAt:  entity.UpdatedAt,
	}
}

type ProvenancePairDTO struct {
	Node domain.NodeProjection `json:"node"`
	Edge domain.EdgeProjection `json:"edge"`
}

type ProvenanceDTO struct {
	Origin        ReferenceDTO            `json:"origin"`
	Nodes         []domain.NodeProjection `json:"nodes"`
	Relationships []domain.EdgeProjection `json:"relationships"`
	Pairs         []ProvenancePairDTO     `json:"pairs"`
}

func MapProvenanceToResponse(graph domain.ProvenanceGraph) ProvenanceDTO {
	pairs := graph.Pairs()

	dto := ProvenanceDTO{
		Origin:        ReferenceDTO{Kind: graph.Origin.Kind, ID: graph.Origin.ID},
		Nodes:         graph.Nodes,
		Relationships: graph.Relationships,
		Pairs:         make([]ProvenancePairDTO, len(pairs)),
	}

	for i, pair := range pairs {
		dto.Pairs[i] = ProvenancePairDTO{Node: pair.Node, Edge: pair.Edge}
	}

	return dto
}

type ErrorDTO struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}
