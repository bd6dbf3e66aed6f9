package apitypes

import (
	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/release"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Service string `json:"service"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// DeployRequest carries a fully resolved app config for one target. The
// client merges target overrides before sending; the daemon only validates.
type DeployRequest struct {
	AppConfig  config.AppConfig `json:"app"`
	TargetName string           `json:"targetName"`
	SourceRef  string           `json:"sourceRef,omitempty"`
}

type DeployResponse struct {
	ReleaseID string `json:"releaseId"`
}

type ReleaseStatusResponse struct {
	Release release.Release `json:"release"`
}

type ReleaseHistoryResponse struct {
	Releases []release.Release `json:"releases"`
}

type RollbackRequest struct {
	AppConfig   config.AppConfig `json:"app"`
	TargetName  string           `json:"targetName"`
	ToReleaseID string           `json:"toReleaseId,omitempty"`
}

type RollbackResponse struct {
	ReleaseID string `json:"releaseId"`
}

type RollbackTargetsResponse struct {
	Targets []release.Release `json:"targets"`
}

type SecretsListResponse struct {
	Secrets []db.SecretAPIResponse `json:"secrets"`
}

type SetSecretRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
