package repositories

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/infra/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EntityRepository struct {
	writePool *pgxpool.Pool
	readPool  *pgxpool.Pool
}

func NewEntityRepository(writePool *pgxpool.Pool, readPool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{writePool: writePool, readPool: readPool}
}

// Upsert grava o objeto com o tipo resolvido pelo registry a partir do
// tipo Go (Activity, FileVersion, ...).
func (r *EntityRepository) Upsert(ctx context.Context, model entities.Model) (*entities.Entity, error) {
	kind, err := kinds.KindOf(model)
	if err != nil {
		return nil, fmt.Errorf("EntityRepository.Upsert - %w", err)
	}

	base := model.Base()
	if base.Reference == "" {
		return nil, fmt.Errorf("EntityRepository.Upsert - reference: %w", domain.ErrValidationFailed)
	}

	query := `
		INSERT INTO entities (type, reference, properties)
		VALUES ($1, $2, COALESCE($3::jsonb, '{}'::jsonb))
		ON CONFLICT (type, reference) DO UPDATE SET
			properties = EXCLUDED.properties,
			updated_at = NOW()
		RETURNING ` + entityColumns

	var properties any
	if len(base.Properties) > 0 {
		properties = string(base.Properties)
	}

	entity, err := scanEntity(r.writePool.QueryRow(ctx, query, kind, base.Reference, properties))
	if err != nil {
		return nil, fmt.Errorf("EntityRepository.Upsert - upsert failed: %w", err)
	}

	*base = *entity
	return entity, nil
}

func (r *EntityRepository) FindByReference(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE type = $1 AND reference = $2`

	entity, err := scanEntity(r.readPool.QueryRow(ctx, query, ref.Kind, ref.ID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("EntityRepository.FindByReference - %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("EntityRepository.FindByReference - query failed: %w", err)
	}

	return entity, nil
}

// FindByReferences loads several objects in one round trip; missing ones
// are simply absent from the map.
func (r *EntityRepository) FindByReferences(ctx context.Context, refs []entities.Reference) (map[entities.Reference]entities.Entity, error) {
	result := make(map[entities.Reference]entities.Entity, len(refs))
	if len(refs) == 0 {
		return result, nil
	}

	types, references := splitReferences(refs)

	query := `
		SELECT ` + entityColumns + `
		FROM 
			entities
		WHERE 
			(type, reference) IN (SELECT * FROM unnest($1::text[], $2::text[]))`

	rows, err := r.readPool.Query(ctx, query, types, references)
	if err != nil {
		return nil, fmt.Errorf("EntityRepository.FindByReferences - query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("EntityRepository.FindByReferences - scan failed: %w", err)
		}
		result[entity.Ref()] = *entity
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("EntityRepository.FindByReferences - rows error: %w", err)
	}

	return result, nil
}

// SoftDelete marks the object deleted. The bool is false when it already was.
func (r *EntityRepository) SoftDelete(ctx context.Context, ref entities.Reference) (*entities.Entity, bool, error) {
	query := `
		UPDATE 
			entities
		SET 
			is_deleted = TRUE,
			updated_at = NOW()
		WHERE 
			type = $1 AND reference = $2 AND is_deleted = FALSE
		RETURNING ` + entityColumns

	entity, err := scanEntity(r.writePool.QueryRow(ctx, query, ref.Kind, ref.ID))
	if err == nil {
		return entity, true, nil
	}
	if !postgres.IsNoRows(err) {
		return nil, false, fmt.Errorf("EntityRepository.SoftDelete - update failed: %w", err)
	}

	existing, err := scanEntity(r.writePool.QueryRow(ctx, `SELECT `+entityColumns+` FROM entities WHERE type = $1 AND reference = $2`, ref.Kind, ref.ID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, false, fmt.Errorf("EntityRepository.SoftDelete - %s: %w", ref, domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("EntityRepository.SoftDelete - lookup failed: %w", err)
	}

	return existing, false, nil
}

// Destroy removes the row for good. Relations pointing at it are left alone:
// they are polymorphic and carry no foreign key.
func (r *EntityRepository) Destroy(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	query := `DELETE FROM entities WHERE type = $1 AND reference = $2 RETURNING ` + entityColumns

	entity, err := scanEntity(r.writePool.QueryRow(ctx, query, ref.Kind, ref.ID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("EntityRepository.Destroy - %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("EntityRepository.Destroy - delete failed: %w", err)
	}

	return entity, nil
}
