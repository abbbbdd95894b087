package http

import (
	"encoding/json"
	"net/http"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

func (s *Server) UpsertEntity(w http.ResponseWriter, r *http.Request) {
	ref := entities.Reference{Kind: r.PathValue("kind"), ID: r.PathValue("id")}

	var request UpsertEntityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	actorID := r.Header.Get(actorHeader)
	if !s.authorizer.Can(r.Context(), actorID, domain.ActionCreate, ref) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	entity, err := s.provenanceService.UpsertEntity(r.Context(), ref, request.Properties, actorID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MapEntityToResponse(entity))
}

func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	ref := entities.Reference{Kind: r.PathValue("kind"), ID: r.PathValue("id")}

	if !s.authorizer.Can(r.Context(), r.Header.Get(actorHeader), domain.ActionShow, ref) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	entity, err := s.provenanceService.GetEntity(r.Context(), ref)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MapEntityToResponse(entity))
}

func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	ref := entities.Reference{Kind: r.PathValue("kind"), ID: r.PathValue("id")}

	actorID := r.Header.Get(actorHeader)
	if !s.authorizer.Can(r.Context(), actorID, domain.ActionDestroy, ref) {
		s.writeError(w, domain.ErrForbidden)
		return
	}

	if err := s.provenanceService.SoftDeleteEntity(r.Context(), ref, actorID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
