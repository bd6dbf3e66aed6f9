package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/logging"
	"github.com/larsvik/berth/internal/orchestrator"
	"github.com/larsvik/berth/internal/release"
)

const defaultHistoryLimit = 20

// handleDeploy accepts a release request and starts it in the background.
// The client polls the release status endpoint with the returned ID.
func (s *APIServer) handleDeploy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req apitypes.DeployRequest
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

		releaseID := release.NewID()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultReleaseTimeout)
			defer cancel()

			_, err := s.orchestrator.Deploy(ctx, orchestrator.Request{
				Config:     &appConfig,
				TargetName: req.TargetName,
				SourceRef:  req.SourceRef,
				ReleaseID:  releaseID,
			})
			if err != nil {
				s.logger.Error("Release failed", "releaseID", releaseID, "app", appConfig.Name, "error", err)
			}
		}()

		response := apitypes.DeployResponse{ReleaseID: releaseID}
		if err := writeJSON(w, http.StatusAccepted, response); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

func (s *APIServer) handleReleaseStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		releaseID := r.PathValue("releaseID")
		if releaseID == "" {
			http.Error(w, "Release ID is required", http.StatusBadRequest)
			return
		}

		rel, err := s.store.GetRelease(releaseID)
		if err != nil {
			if errors.Is(err, db.ErrReleaseNotFound) {
				http.Error(w, "Release not found", http.StatusNotFound)
				return
			}
			s.logger.Error("Failed to fetch release", "releaseID", releaseID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := writeJSON(w, http.StatusOK, apitypes.ReleaseStatusResponse{Release: rel}); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

func (s *APIServer) handleReleaseHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appName := r.PathValue("appName")
		if appName == "" {
			http.Error(w, "App name is required", http.StatusBadRequest)
			return
		}

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		releases, err := s.store.GetReleaseHistory(appName, limit)
		if err != nil {
			s.logger.Error("Failed to fetch release history", "app", appName, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := writeJSON(w, http.StatusOK, apitypes.ReleaseHistoryResponse{Releases: releases}); err != nil {
			s.logger.Error("Failed to write JSON response", "error", err)
		}
	}
}

// handleReleaseLogs serves the per-release log file as plain text.
func (s *APIServer) handleReleaseLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		releaseID := r.PathValue("releaseID")
		if releaseID == "" {
			http.Error(w, "Release ID is required", http.StatusBadRequest)
			return
		}

		logPath := logging.ReleaseLogPath(s.logsDir, releaseID)
		file, err := os.Open(logPath)
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "No logs for this release", http.StatusNotFound)
				return
			}
			s.logger.Error("Failed to open release log", "releaseID", releaseID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			s.logger.Error("Failed to stat release log", "releaseID", releaseID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		http.ServeContent(w, r, releaseID+".log", info.ModTime(), file)
	}
}
