package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/services/authz"

	"github.com/google/uuid"
)

const actorHeader = "X-Actor-ID"

func (s *Server) CreateRelation(w http.ResponseWriter, r *http.Request) {
	def, err := catalog.Lookup(r.PathValue("variant"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var request CreateRelationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	actorID := r.Header.Get(actorHeader)
	if !s.authorizer.Can(r.Context(), actorID, domain.ActionCreate, entities.Reference{Kind: def.Kind}) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	from, to := request.endpoints(def.Variant)

	relation, err := s.provenanceService.CreateRelation(r.Context(), domain.CreateRelationRequest{
		Variant:          def.Name,
		CreatorID:        actorID,
		From:             from,
		To:               to,
		RelationshipType: request.RelationshipType,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MapRelationToResponse(relation))
}

func (s *Server) GetRelation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid relation ID format", http.StatusBadRequest)
		return
	}

	relation, err := s.provenanceService.GetRelation(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !s.authorizer.Can(r.Context(), r.Header.Get(actorHeader), domain.ActionShow, relation.Ref()) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, MapRelationToResponse(relation))
}

func (s *Server) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid relation ID format", http.StatusBadRequest)
		return
	}

	relation, err := s.provenanceService.GetRelation(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	actorID := r.Header.Get(actorHeader)
	if !s.authorizer.Can(r.Context(), actorID, domain.ActionDestroy, relation.Ref()) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	if err := s.provenanceService.SoftDeleteRelation(r.Context(), id, actorID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListRelationsTouching(w http.ResponseWriter, r *http.Request) {
	ref := entities.Reference{Kind: r.PathValue("kind"), ID: r.PathValue("id")}

	visibility := authz.VisibilityFor(s.authorizer, r.Header.Get(actorHeader))

	graph, err := s.projector.RelationsTouching(r.Context(), ref, visibility)
	if err != nil {
		s.writeError(w, fmt.Errorf("listing %s: %w", ref, err))
		return
	}

	writeJSON(w, http.StatusOK, MapProvenanceToResponse(graph))
}
