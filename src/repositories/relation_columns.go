package repositories

import (
	"provenancegraph/src/domain/entities"

	"github.com/jackc/pgx/v5"
)

const relationColumns = `
	id,
	kind,
	relationship_type,
	creator_id,
	relatable_from_type,
	relatable_from_id,
	relatable_to_type,
	relatable_to_id,
	is_deleted,
	created_at,
	updated_at`

const entityColumns = `id, type, reference, properties, is_deleted, created_at, updated_at`

func scanRelation(row pgx.Row) (*entities.Relation, error) {
	var relation entities.Relation
	err := row.Scan(
		&relation.ID,
		&relation.Kind,
		&relation.RelationshipType,
		&relation.CreatorID,
		&relation.From.Kind,
		&relation.From.ID,
		&relation.To.Kind,
		&relation.To.ID,
		&relation.IsDeleted,
		&relation.CreatedAt,
		&relation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &relation, nil
}

func scanEntity(row pgx.Row) (*entities.Entity, error) {
	var entity entities.Entity
	err := row.Scan(
		&entity.ID,
		&entity.Type,
		&entity.Reference,
		&entity.Properties,
		&entity.IsDeleted,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// splitReferences turns refs into parallel arrays for unnest($1::text[], $2::text[]).
func splitReferences(refs []entities.Reference) ([]string, []string) {
	types := make([]string, len(refs))
	ids := make([]string, len(refs))
	for i, ref := range refs {
		types[i] = ref.Kind
		ids[i] = ref.ID
	}
	return types, ids
}
