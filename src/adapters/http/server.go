package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"

	"github.com/google/uuid"
)

// ProvenanceService is the write and lookup surface used by the handlers.
type ProvenanceService interface {
	CreateRelation(ctx context.Context, request domain.CreateRelationRequest) (*entities.Relation, error)
	GetRelation(ctx context.Context, id uuid.UUID) (*entities.Relation, error)
	SoftDeleteRelation(ctx context.Context, id uuid.UUID, actorID string) error
	UpsertEntity(ctx context.Context, ref entities.Reference, properties json.RawMessage, actorID string) (*entities.Entity, error)
	GetEntity(ctx context.Context, ref entities.Reference) (*entities.Entity, error)
	SoftDeleteEntity(ctx context.Context, ref entities.Reference, actorID string) error
}

type Projector interface {
	RelationsTouching(ctx context.Context, ref entities.Reference, visibility domain.Visibility) (domain.ProvenanceGraph, error)
}

// Server representa o servidor HTTP da API
type Server struct {
	logger            *slog.Logger
	server            *http.Server
	mux               *http.ServeMux
	port              int
	provenanceService ProvenanceService
	projector         Projector
	authorizer        domain.Authorizer
}

// NewServer cria uma nova instância do servidor
func NewServer(
	logger *slog.Logger,
	port int,
	provenanceService ProvenanceService,
	projector Projector,
	authorizer domain.Authorizer,
) *Server {
	server := &Server{
		mux:               http.NewServeMux(),
		port:              port,
		logger:            logger,
		provenanceService: provenanceService,
		projector:         projector,
		authorizer:        authorizer,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rotas de Leitura
	server.mux.HandleFunc("GET /v1/relations/{id}", server.GetRelation)
	server.mux.HandleFunc("GET /v1/relations/{kind}/{id}", server.ListRelationsTouching)
	server.mux.HandleFunc("GET /v1/entities/{kind}/{id}", server.GetEntity)

	// Rotas de Escritas
	server.mux.HandleFunc("POST /v1/relations/{variant}", server.CreateRelation)
	server.mux.HandleFunc("DELETE /v1/relations/{id}", server.DeleteRelation)
	server.mux.HandleFunc("PUT /v1/entities/{kind}/{id}", server.UpsertEntity)
	server.mux.HandleFunc("DELETE /v1/entities/{kind}/{id}", server.DeleteEntity)

	return server
}

// Handler exposes the routes without a listener, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
