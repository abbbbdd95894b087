package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"provenancegraph/src/domain/entities"

	"github.com/google/uuid"
)

var (
	ErrUnknownKind          = errors.New("unknown kind")
	ErrUnknownVariant       = errors.New("unknown relation variant")
	ErrEndpointKindMismatch = errors.New("endpoint kind not allowed for relation variant")
	ErrValidationFailed     = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrSyncFailed           = errors.New("graph sync failed")
	ErrConflictingRelation  = errors.New("activity already used the entity it would generate")
	ErrEntityNotYetDeleted  = errors.New("entity must be deleted before it is invalidated")
	ErrDuplicateRelation    = errors.New("relation already exists")
	ErrForbidden            = errors.New("forbidden")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// ValidationError é o resultado tipado de uma validação que falhou.
// errors.Is casa tanto com ErrValidationFailed quanto com a causa específica.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

func NewValidationError(field string, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Cause: cause}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// SyncError reports a mirror write that failed after the relational commit.
type SyncError struct {
	Operation string
	Target    entities.Reference
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("graph sync %s for %s failed: %v", e.Operation, e.Target, e.Err)
}

func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ############################################################
// ############ PROCESSO DE ESCRITA DAS RELAÇÕES ##############
// ############################################################

// CreateRelationRequest é o DTO que o serviço usa para criar uma relação.
// RelationshipType é ignorado: o valor é sempre derivado da variante.
type CreateRelationRequest struct {
	Variant          string
	CreatorID        string
	From             entities.Reference
	To               entities.Reference
	RelationshipType string
}

// Tabelas cujas mudanças (CDC) alimentam o espelho.
const (
	TableEntities  = "entities"
	TableRelations = "prov_relations"
)

// MirrorOperation names what the graph synchronizer has to do.
type MirrorOperation string

const (
	MirrorEnsureNode          MirrorOperation = "ensure_node"
	MirrorCreateEdge          MirrorOperation = "create_edge"
	MirrorDeleteEdge          MirrorOperation = "delete_edge"
	MirrorDeleteNode          MirrorOperation = "delete_node"
	MirrorLogicallyDeleteNode MirrorOperation = "logically_delete_node"
)

// MirrorCommand is a self-contained instruction for the graph synchronizer.
// It travels through Kafka when the mirror runs asynchronously.
type MirrorCommand struct {
	Operation MirrorOperation     `json:"operation"`
	Edge      *entities.GraphEdge `json:"edge,omitempty"`
	Node      *entities.GraphNode `json:"node,omitempty"`
	IssuedAt  time.Time           `json:"issued_at"`
}

// AuditEvent is handed to the audit collaborator after each mutation.
type AuditEvent struct {
	ID         uuid.UUID          `json:"id"`
	Action     string             `json:"action"`
	ActorID    string             `json:"actor_id"`
	Auditable  entities.Reference `json:"auditable"`
	Changes    map[string]any     `json:"changes,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// ############################################################
// ############# PROCESSO DE LEITURA DO GRAFO #################
// ############################################################

// ProjectionKey é a identidade de uma projeção: o mesmo objeto
// com restrição diferente é outra projeção.
type ProjectionKey struct {
	Kind       string
	ID         string
	Restricted bool
}

type NodeProjection struct {
	Kind       string          `json:"kind"`
	ID         string          `json:"id"`
	IsDeleted  bool            `json:"is_deleted"`
	Restricted bool            `json:"restricted"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

func (n NodeProjection) Key() ProjectionKey {
	return ProjectionKey{Kind: n.Kind, ID: n.ID, Restricted: n.Restricted}
}

func (n NodeProjection) Ref() entities.Reference {
	return entities.Reference{Kind: n.Kind, ID: n.ID}
}

type EdgeProjection struct {
	Kind             string             `json:"kind"`
	ID               string             `json:"id"`
	RelationshipType string             `json:"relationship_type"`
	From             entities.Reference `json:"from"`
	To               entities.Reference `json:"to"`
	Restricted       bool               `json:"restricted"`
	Properties       json.RawMessage    `json:"properties,omitempty"`
}

func (e EdgeProjection) Key() ProjectionKey {
	return ProjectionKey{Kind: e.Kind, ID: e.ID, Restricted: e.Restricted}
}

// ProvenancePair couples an edge with the node on its far side.
type ProvenancePair struct {
	Node NodeProjection
	Edge EdgeProjection
}

// ProvenanceGraph é o resultado de uma consulta "o que toca este nó".
type ProvenanceGraph struct {
	Origin        entities.Reference `json:"origin"`
	Nodes         []NodeProjection   `json:"nodes"`
	Relationships []EdgeProjection   `json:"relationships"`
}

// Pairs returns one (node, edge) pair per relationship, where node is the
// endpoint opposite to the origin. Self loops pair with the origin itself.
func (g ProvenanceGraph) Pairs() []ProvenancePair {
	nodes := make(map[entities.Reference]NodeProjection, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.Ref()] = n
	}

	pairs := make([]ProvenancePair, 0, len(g.Relationships))
	for _, edge := range g.Relationships {
		far := edge.To
		if edge.To == g.Origin {
			far = edge.From
		}
		pairs = append(pairs, ProvenancePair{Node: nodes[far], Edge: edge})
	}
	return pairs
}
