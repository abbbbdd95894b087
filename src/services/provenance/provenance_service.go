package provenance

import (
	"context"
	"log/slog"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"

	"github.com/google/uuid"
)

// RelationWriter is the transactional side of the relational store.
type RelationWriter interface {
	WithinTransaction(ctx context.Context, fn func(tx domain.RelationTx) error) error
	SoftDelete(ctx context.Context, id uuid.UUID) (*entities.Relation, bool, error)
	Destroy(ctx context.Context, id uuid.UUID) (*entities.Relation, error)
}

type RelationReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Relation, error)
}

type EntityRepository interface {
	FindByReference(ctx context.Context, ref entities.Reference) (*entities.Entity, error)
	SoftDelete(ctx context.Context, ref entities.Reference) (*entities.Entity, bool, error)
	Destroy(ctx context.Context, ref entities.Reference) (*entities.Entity, error)
	// Upsert grava um objeto concreto (Activity, FileVersion, ...).
	Upsert(ctx context.Context, model entities.Model) (*entities.Entity, error)
}

// MirrorDispatcher hands a command to the graph synchronizer, inline or
// through Kafka.
type MirrorDispatcher interface {
	Dispatch(ctx context.Context, command domain.MirrorCommand) error
}

type ProvenanceService struct {
	logger           *slog.Logger
	relationWriter   RelationWriter
	relationReader   RelationReader
	entityRepository EntityRepository
	dispatcher       MirrorDispatcher
	auditor          domain.AuditRecorder
	now              func() time.Time
}

func NewProvenanceService(
	logger *slog.Logger,
	relationWriter RelationWriter,
	relationReader RelationReader,
	entityRepository EntityRepository,
	dispatcher MirrorDispatcher,
	auditor domain.AuditRecorder,
) *ProvenanceService {
	return &ProvenanceService{
		logger:           logger,
		relationWriter:   relationWriter,
		relationReader:   relationReader,
		entityRepository: entityRepository,
		dispatcher:       dispatcher,
		auditor:          auditor,
		now:              time.Now,
	}
}

// mirror never fails the caller: the relational write is already committed.
func (s *ProvenanceService) mirror(ctx context.Context, command domain.MirrorCommand) {
	command.IssuedAt = s.now().UTC()

	if err := s.dispatcher.Dispatch(ctx, command); err != nil {
		s.logger.Error("Graph mirror out of sync",
			"error", err,
			"operation", command.Operation,
			"sync_failed", true)
	}
}

// audit é efeito colateral: falha é registrada e nunca desfaz a escrita.
func (s *ProvenanceService) audit(ctx context.Context, action string, actorID string, auditable entities.Reference, changes map[string]any) {
	event := domain.AuditEvent{
		ID:         uuid.New(),
		Action:     action,
		ActorID:    actorID,
		Auditable:  auditable,
		Changes:    changes,
		OccurredAt: s.now().UTC(),
	}

	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event",
			"error", err,
			"action", action,
			"auditable", auditable.String())
	}
}
