package test_seeder

import (
	"context"

	"provenancegraph/src/domain/entities"
)

func (ts TestSeeder) SelectEntitiesByReferences(ctx context.Context, references []string) ([]entities.Entity, error) {
	query := `SELECT id, type, reference, properties, is_deleted, created_at, updated_at
			  FROM entities WHERE reference = ANY($1) ORDER BY id`

	rows, err := ts.pool.Query(ctx, query, references)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entitiesList []entities.Entity
	for rows.Next() {
		var entity entities.Entity
		err := rows.Scan(
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
		entitiesList = append(entitiesList, entity)
	}

	return entitiesList, rows.Err()
}

// SelectRelationsTouching retrieves every relation, active or not, where the reference is an endpoint
func (ts TestSeeder) SelectRelationsTouching(ctx context.Context, ref entities.Reference) ([]entities.Relation, error) {
	query := `SELECT id, kind, relationship_type, creator_id,
			  relatable_from_type, relatable_from_id, relatable_to_type, relatable_to_id,
			  is_deleted, created_at, updated_at
			  FROM prov_relations
			  WHERE (relatable_from_type = $1 AND relatable_from_id = $2)
			     OR (relatable_to_type = $1 AND relatable_to_id = $2)
			  ORDER BY created_at, id`

	rows, err := ts.pool.Query(ctx, query, ref.Kind, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []entities.Relation
	for rows.Next() {
		var relation entities.Relation
		err := rows.Scan(
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
		relations = append(relations, relation)
	}

	return relations, rows.Err()
}
