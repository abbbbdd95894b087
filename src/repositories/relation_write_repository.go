package repositories

import (
	"context"
	"fmt"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/infra/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RelationWriteRepository struct {
	writePool *pgxpool.Pool
}

func NewRelationWriteRepository(writePool *pgxpool.Pool) *RelationWriteRepository {
	return &RelationWriteRepository{writePool: writePool}
}

// WithinTransaction runs fn with a RelationTx bound to one transaction and
// commits only if fn succeeds.
func (r *RelationWriteRepository) WithinTransaction(ctx context.Context, fn func(tx domain.RelationTx) error) error {
	tx, err := r.writePool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("RelationWriteRepository.WithinTransaction - failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&relationTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("RelationWriteRepository.WithinTransaction - commit rejected: %w", domain.ErrDuplicateRelation)
		}
		return fmt.Errorf("RelationWriteRepository.WithinTransaction - failed to commit: %w", err)
	}

	return nil
}

// SoftDelete flips is_deleted once. It reports false when the relation was
// already deleted and ErrNotFound when it does not exist.
func (r *RelationWriteRepository) SoftDelete(ctx context.Context, id uuid.UUID) (*entities.Relation, bool, error) {
	query := `
		UPDATE 
			prov_relations
		SET 
			is_deleted = TRUE,
			updated_at = NOW()
		WHERE 
			id = $1 AND is_deleted = FALSE
		RETURNING ` + relationColumns

	relation, err := scanRelation(r.writePool.QueryRow(ctx, query, id))
	if err == nil {
		return relation, true, nil
	}

	if !postgres.IsNoRows(err) {
		return nil, false, fmt.Errorf("RelationWriteRepository.SoftDelete - update failed: %w", err)
	}

	existing, err := scanRelation(r.writePool.QueryRow(ctx, `SELECT `+relationColumns+` FROM prov_relations WHERE id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, false, fmt.Errorf("RelationWriteRepository.SoftDelete - relation %s: %w", id, domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("RelationWriteRepository.SoftDelete - lookup failed: %w", err)
	}

	return existing, false, nil
}

// Destroy removes the record for good. Reserved for administrative teardown.
func (r *RelationWriteRepository) Destroy(ctx context.Context, id uuid.UUID) (*entities.Relation, error) {
	query := `DELETE FROM prov_relations WHERE id = $1 RETURNING ` + relationColumns

	relation, err := scanRelation(r.writePool.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("RelationWriteRepository.Destroy - relation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("RelationWriteRepository.Destroy - delete failed: %w", err)
	}

	return relation, nil
}

type relationTx struct {
	tx pgx.Tx
}

func (t *relationTx) FindEntity(ctx context.Context, ref entities.Reference) (*entities.Entity, error) {
	// FOR SHARE impede que a entidade mude de estado enquanto validamos.
	query := `SELECT ` + entityColumns + ` FROM entities WHERE type = $1 AND reference = $2 FOR SHARE`

	entity, err := scanEntity(t.tx.QueryRow(ctx, query, ref.Kind, ref.ID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("RelationWriteRepository.FindEntity - %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("RelationWriteRepository.FindEntity - query failed: %w", err)
	}

	return entity, nil
}

func (t *relationTx) ActiveRelationExists(ctx context.Context, relationshipType string, from entities.Reference, to entities.Reference) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 
				1 
			FROM 
				prov_relations
			WHERE 
				relationship_type = $1
				AND relatable_from_type = $2 AND relatable_from_id = $3
				AND relatable_to_type = $4 AND relatable_to_id = $5
				AND is_deleted = FALSE
		)`

	var exists bool
	if err := t.tx.QueryRow(ctx, query, relationshipType, from.Kind, from.ID, to.Kind, to.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("RelationWriteRepository.ActiveRelationExists - query failed: %w", err)
	}

	return exists, nil
}

func (t *relationTx) InsertRelation(ctx context.Context, relation *entities.Relation) error {
	query := `
		INSERT INTO prov_relations (
			id, kind, relationship_type, creator_id,
			relatable_from_type, relatable_from_id,
			relatable_to_type, relatable_to_id,
			is_deleted
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		RETURNING created_at, updated_at`

	err := t.tx.QueryRow(ctx, query,
		relation.ID,
		relation.Kind,
		relation.RelationshipType,
		relation.CreatorID,
		relation.From.Kind,
		relation.From.ID,
		relation.To.Kind,
		relation.To.ID,
	).Scan(&relation.CreatedAt, &relation.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("RelationWriteRepository.InsertRelation - %s: %w", relation.RelationshipType, domain.ErrDuplicateRelation)
		}
		return fmt.Errorf("RelationWriteRepository.InsertRelation - insert failed: %w", err)
	}

	relation.IsDeleted = false
	return nil
}
