package repositories

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/infra/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationQueryRepository struct {
	pool *pgxpool.Pool
}

func NewRelationQueryRepository(pool *pgxpool.Pool) *RelationQueryRepository {
	return &RelationQueryRepository{pool: pool}
}

// FindByID returns the relation even when it is soft-deleted.
func (r *RelationQueryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM prov_relations WHERE id = $1`

	relation, err := scanRelation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("RelationQueryRepository.FindByID - relation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("RelationQueryRepository.FindByID - query failed: %w", err)
	}

	return relation, nil
}

// FindActive keeps only the ids whose record exists and is not soft-deleted.
// The graph may still hold edges for those; this is the authoritative filter.
func (r *RelationQueryRepository) FindActive(ctx context.Context, ids []string) (map[string]entities.Relation, error) {
	result := make(map[string]entities.Relation, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		// Um model_id inválido no grafo simplesmente não casa com nada.
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + relationColumns + `
		FROM 
			prov_relations
		WHERE 
			id = ANY($1::uuid[]) AND is_deleted = FALSE`

	rows, err := r.pool.Query(ctx, query, valid)
	if err != nil {
		return nil, fmt.Errorf("RelationQueryRepository.FindActive - query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		relation, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("RelationQueryRepository.FindActive - scan failed: %w", err)
		}
		result[relation.ID.String()] = *relation
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RelationQueryRepository.FindActive - rows error: %w", err)
	}

	return result, nil
}
