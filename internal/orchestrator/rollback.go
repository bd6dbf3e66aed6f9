package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/logging"
	"github.com/larsvik/berth/internal/release"
)

// RollbackRequest asks for a target to be put back on an earlier release.
// ToReleaseID may be empty, in which case the most recent succeeded release
// before the current one is used.
type RollbackRequest struct {
	Config      *config.AppConfig
	TargetName  string
	ToReleaseID string
	ReleaseID   string
}

// Rollback redeploys an earlier release's artifact as a brand new release.
// It goes through the same shipping and health-check path as a deploy, so a
// rollback that leaves the app unhealthy is reported just like a failed
// deploy.
func (c *Coordinator) Rollback(ctx context.Context, req RollbackRequest) (release.Release, error) {
	target, err := c.rollbackTarget(req)
	if err != nil {
		return release.Release{}, err
	}

	if _, err := os.Stat(target.ArtifactPath); err != nil {
		return release.Release{}, fmt.Errorf("artifact for release %s is no longer available: %w", target.ID, err)
	}

	releaseID := req.ReleaseID
	if releaseID == "" {
		releaseID = release.NewID()
	}
	rel := release.Release{
		ID:           releaseID,
		AppName:      req.Config.Name,
		SourceRef:    target.SourceRef,
		TargetName:   req.TargetName,
		ArtifactHash: target.ArtifactHash,
		ArtifactPath: target.ArtifactPath,
		Status:       release.StatusPending,
		Reason:       fmt.Sprintf("rollback_to: %s", target.ID),
		RolledBackTo: target.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.SaveRelease(rel); err != nil {
		return rel, fmt.Errorf("failed to record release: %w", err)
	}

	logger, closeLogger, err := logging.NewReleaseLogger(c.logsDir, rel.ID, c.logLevel)
	if err != nil {
		return c.finish(rel, release.StatusFailed, "log_setup_failed", nil), err
	}
	defer closeLogger()

	logger.Info("Rollback started", "app", rel.AppName, "target", rel.TargetName, "toRelease", target.ID)
	return c.ship(ctx, rel, req.Config, logger)
}

// RollbackTargets lists the succeeded releases that a target can be rolled
// back to, newest first. The current release is excluded.
func (c *Coordinator) RollbackTargets(appName, targetName string, limit int) ([]release.Release, error) {
	candidates, err := c.store.SucceededReleases(appName, targetName, limit+1)
	if err != nil {
		return nil, err
	}
	if len(candidates) <= 1 {
		return nil, nil
	}
	return candidates[1:], nil
}

func (c *Coordinator) rollbackTarget(req RollbackRequest) (release.Release, error) {
	if req.ToReleaseID != "" {
		target, err := c.store.GetRelease(req.ToReleaseID)
		if err != nil {
			return release.Release{}, fmt.Errorf("release %s not found: %w", req.ToReleaseID, err)
		}
		if target.AppName != req.Config.Name || target.TargetName != req.TargetName {
			return release.Release{}, fmt.Errorf("release %s does not belong to %s/%s", req.ToReleaseID, req.Config.Name, req.TargetName)
		}
		if target.Status != release.StatusSucceeded {
			return release.Release{}, fmt.Errorf("release %s ended in %s and cannot be rolled back to", req.ToReleaseID, target.Status)
		}
		return target, nil
	}

	candidates, err := c.RollbackTargets(req.Config.Name, req.TargetName, 1)
	if err != nil {
		return release.Release{}, err
	}
	if len(candidates) == 0 {
		return release.Release{}, fmt.Errorf("there are no older releases to roll back to for %s", req.Config.Name)
	}
	return candidates[0], nil
}
