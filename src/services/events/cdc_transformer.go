package events

import (
	"fmt"
	"log/slog"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/infra/debezium"
	"provenancegraph/src/services/graphsync"

	"github.com/google/uuid"
)

// CDCTransformer turns Debezium change events on the relational tables into
// mirror commands. Replaying the change stream rebuilds the graph mirror,
// which repairs drift left by mirror writes that failed after commit.
type CDCTransformer struct {
	logger *slog.Logger
}

func NewCDCTransformer(logger *slog.Logger) *CDCTransformer {
	return &CDCTransformer{
		logger: logger,
	}
}

// TransformCDCEvent converts a CDC event to zero or more mirror commands
func (t *CDCTransformer) TransformCDCEvent(cdcEvent *debezium.CDCEvent) ([]domain.MirrorCommand, error) {
	issuedAt := time.UnixMilli(cdcEvent.TsMs).UTC()

	t.logger.Debug("Processing CDC event",
		"table", cdcEvent.Source.Table,
		"operation", cdcEvent.Operation,
		"ts_ms", cdcEvent.TsMs)

	switch cdcEvent.Source.Table {
	case domain.TableEntities:
		return t.transformEntityEvent(cdcEvent, issuedAt)
	case domain.TableRelations:
		return t.transformRelationEvent(cdcEvent, issuedAt)
	default:
		t.logger.Debug("Ignoring CDC event from unknown table", "table", cdcEvent.Source.Table)
		return nil, nil
	}
}

// transformEntityEvent: qualquer insert/update garante o nó com o flag de
// remoção atual; delete físico remove o nó e suas arestas.
func (t *CDCTransformer) transformEntityEvent(cdcEvent *debezium.CDCEvent, issuedAt time.Time) ([]domain.MirrorCommand, error) {
	if cdcEvent.Operation == debezium.OperationDelete {
		node, err := graphsync.NodeFor(entityRef(cdcEvent.Before), true)
		if err != nil {
			return nil, fmt.Errorf("CDCTransformer - entity delete: %w", err)
		}
		return []domain.MirrorCommand{{Operation: domain.MirrorDeleteNode, Node: &node, IssuedAt: issuedAt}}, nil
	}

	node, err := graphsync.NodeFor(entityRef(cdcEvent.After), cdcEvent.After.Bool("is_deleted"))
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer - entity %s: %w", cdcEvent.Operation, err)
	}

	return []domain.MirrorCommand{{Operation: domain.MirrorEnsureNode, Node: &node, IssuedAt: issuedAt}}, nil
}

// transformRelationEvent: a aresta existe enquanto a linha existir, mesmo
// com is_deleted; só o delete físico a remove.
func (t *CDCTransformer) transformRelationEvent(cdcEvent *debezium.CDCEvent, issuedAt time.Time) ([]domain.MirrorCommand, error) {
	row := cdcEvent.After
	operation := domain.MirrorCreateEdge
	if cdcEvent.Operation == debezium.OperationDelete {
		row = cdcEvent.Before
		operation = domain.MirrorDeleteEdge
	}

	relation, err := relationFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer - relation %s: %w", cdcEvent.Operation, err)
	}

	edge, err := graphsync.EdgeFor(relation, false, false)
	if err != nil {
		return nil, fmt.Errorf("CDCTransformer - relation %s: %w", cdcEvent.Operation, err)
	}

	return []domain.MirrorCommand{{Operation: operation, Edge: &edge, IssuedAt: issuedAt}}, nil
}

func entityRef(row debezium.Row) entities.Reference {
	return entities.Reference{Kind: row.String("type"), ID: row.String("reference")}
}

func relationFromRow(row debezium.Row) (entities.Relation, error) {
	id, err := uuid.Parse(row.String("id"))
	if err != nil {
		return entities.Relation{}, fmt.Errorf("invalid relation id: %w", err)
	}

	relation := entities.Relation{
		ID:               id,
		Kind:             row.String("kind"),
		RelationshipType: row.String("relationship_type"),
		CreatorID:        row.String("creator_id"),
		From:             entities.Reference{Kind: row.String("relatable_from_type"), ID: row.String("relatable_from_id")},
		To:               entities.Reference{Kind: row.String("relatable_to_type"), ID: row.String("relatable_to_id")},
		IsDeleted:        row.Bool("is_deleted"),
	}

	if relation.From.IsZero() || relation.To.IsZero() {
		return entities.Relation{}, fmt.Errorf("row %s has no endpoints, is REPLICA IDENTITY FULL set?", id)
	}

	return relation, nil
}
