package api

import (
	"net/http"

	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/helpers"
)

func (s *APIServer) handleSecretsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secretsList, err := s.store.GetSecretsList()
		if err != nil {
			s.logger.Error("Failed to fetch secrets", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		apiSecrets := make([]db.SecretAPIResponse, len(secretsList))
		for i, secret := range secretsList {
			apiSecrets[i] = secret.ToAPIResponse()
		}

		if err := writeJSON(w, http.StatusOK, apitypes.SecretsListResponse{Secrets: apiSecrets}); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

func (s *APIServer) handleSetSecret() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.SetSecretRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := helpers.IsValidSecretName(req.Name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Value == "" {
			http.Error(w, "Secret value is required", http.StatusBadRequest)
			return
		}

		if err := s.store.SetSecret(req.Name, req.Value); err != nil {
			s.logger.Error("Failed to store secret", "name", req.Name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *APIServer) handleDeleteSecret() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" {
			http.Error(w, "Secret name is required", http.StatusBadRequest)
			return
		}

		if err := s.store.DeleteSecret(name); err != nil {
			s.logger.Error("Failed to delete secret", "name", name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
