package api

import (
	"context"
	"net/http"

	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/orchestrator"
	"github.com/larsvik/berth/internal/release"
)

func (s *APIServer) handleRollback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.RollbackRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		appConfig := req.AppConfig
		appConfig.Normalize()
		if err := appConfig.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.TargetName == "" {
			http.Error(w, "Target name is required", http.StatusBadRequest)
			return
		}

		// Surface "nothing to roll back to" before accepting the request.
		if req.ToReleaseID == "" {
			targets, err := s.orchestrator.RollbackTargets(appConfig.Name, req.TargetName, 1)
			if err != nil {
				s.logger.Error("Failed to list rollback targets", "app", appConfig.Name, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if len(targets) == 0 {
				http.Error(w, "No earlier release to roll back to", http.StatusConflict)
				return
			}
		}

		releaseID := release.NewID()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultReleaseTimeout)
			defer cancel()

			_, err := s.orchestrator.Rollback(ctx, orchestrator.RollbackRequest{
				Config:      &appConfig,
				TargetName:  req.TargetName,
				ToReleaseID: req.ToReleaseID,
				ReleaseID:   releaseID,
			})
			if err != nil {
				s.logger.Error("Rollback failed", "releaseID", releaseID, "app", appConfig.Name, "error", err)
			}
		}()

		response := apitypes.RollbackResponse{ReleaseID: releaseID}
		if err := writeJSON(w, http.StatusAccepted, response); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

func (s *APIServer) handleRollbackTargets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appName := r.PathValue("appName")
		targetName := r.PathValue("targetName")
		if appName == "" || targetName == "" {
			http.Error(w, "App name and target name are required", http.StatusBadRequest)
			return
		}

		targets, err := s.orchestrator.RollbackTargets(appName, targetName, defaultHistoryLimit)
		if err != nil {
			s.logger.Error("Failed to list rollback targets", "app", appName, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := writeJSON(w, http.StatusOK, apitypes.RollbackTargetsResponse{Targets: targets}); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}
