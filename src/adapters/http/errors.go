package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"provenancegraph/src/domain"
)

// writeError traduz os erros do domínio para status HTTP.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorDTO{
			Error:  domain.ErrValidationFailed.Error(),
			Field:  validationErr.Field,
			Reason: validationErr.Reason,
		})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorDTO{Error: domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrUnknownVariant):
		writeJSON(w, http.StatusNotFound, ErrorDTO{Error: err.Error()})
	default:
		s.logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: domain.ErrUnavailableServer.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
