package test_seeder

import (
	"context"
	"fmt"

	"provenancegraph/src/domain/entities"
)

// InsertEntity inserts an entity into the database for testing
func (ts TestSeeder) InsertEntity(ctx context.Context, entity *entities.Entity) {
	query := `
		INSERT INTO entities (type, reference, properties, is_deleted, created_at, updated_at)
		VALUES ($1, $2, COALESCE($3::jsonb, '{}'::jsonb), $4, $5, $6) RETURNING id`

	err := ts.pool.QueryRow(ctx, query,
		entity.Type,
		entity.Reference,
		entity.Properties,
		entity.IsDeleted,
		entity.CreatedAt,
		entity.UpdatedAt,
	).Scan(&entity.ID)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertEntity failed: %v", err))
	}
}

// InsertRelation inserts a provenance relation into the database for testing
func (ts TestSeeder) InsertRelation(ctx context.Context, relation entities.Relation) {
	query := `
		INSERT INTO prov_relations (
			id, kind, relationship_type, creator_id,
			relatable_from_type, relatable_from_id, relatable_to_type, relatable_to_id,
			is_deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := ts.pool.Exec(ctx, query,
		relation.ID,
		relation.Kind,
		relation.RelationshipType,
		relation.CreatorID,
		relation.From.Kind,
		relation.From.ID,
		relation.To.Kind,
		relation.To.ID,
		relation.IsDeleted,
		relation.CreatedAt,
		relation.UpdatedAt,
	)
	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertRelation failed: %v", err))
	}
}
