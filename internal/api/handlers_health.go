package api

import (
	"net/http"

	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/constants"
)

func (s *APIServer) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := apitypes.HealthResponse{
			Status:  "ok",
			Version: constants.Version,
			Service: "berthd",
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *APIServer) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := apitypes.VersionResponse{
			Version: constants.Version,
		}
		writeJSON(w, http.StatusOK, response)
	}
}
