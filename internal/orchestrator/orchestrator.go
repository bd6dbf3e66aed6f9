package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/larsvik/berth/internal/build"
	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/healthcheck"
	"github.com/larsvik/berth/internal/logging"
	"github.com/larsvik/berth/internal/release"
	"github.com/larsvik/berth/internal/secrets"
	"github.com/larsvik/berth/internal/supervisor"
	"github.com/larsvik/berth/internal/transport"
)

// Builder produces a deployable artifact for a release.
type Builder interface {
	Run(ctx context.Context, buildConfig config.BuildConfig, releaseID string, logger *slog.Logger) (build.Artifact, error)
}

// Transport is one authenticated connection to a target host.
type Transport interface {
	Run(ctx context.Context, command string) (transport.RunResult, error)
	Copy(ctx context.Context, localPath, remotePath string) error
	Close() error
}

// Dialer opens a Transport. The default dialer is transport.Connect.
type Dialer func(cfg transport.Config) (Transport, error)

// Verifier polls a target URL until it reports healthy or the timeout
// expires.
type Verifier interface {
	Wait(ctx context.Context, url string, interval, timeout time.Duration) (healthcheck.Result, error)
}

// Config wires a Coordinator. Store, ArtifactsDir, LogsDir and
// KnownHostsPath are required. Builder, Dial and Verifier default to the
// real implementations when nil.
type Config struct {
	Store          *db.DB
	ArtifactsDir   string
	LogsDir        string
	KnownHostsPath string
	LogLevel       slog.Level

	Builder  Builder
	Dial     Dialer
	Verifier Verifier
}

// Coordinator drives a release through its lifecycle: build locally, ship
// over SSH, reload the remote process and verify health. Every state change
// is persisted before the next step runs, so an interrupted release is never
// left looking healthier than it was.
type Coordinator struct {
	store          *db.DB
	builder        Builder
	dial           Dialer
	verifier       Verifier
	artifactsDir   string
	logsDir        string
	knownHostsPath string
	logLevel       slog.Level

	// one mutex per host address; deploys to the same host serialize
	hostLocks sync.Map
}

func New(cfg Config) *Coordinator {
	c := &Coordinator{
		store:          cfg.Store,
		builder:        cfg.Builder,
		dial:           cfg.Dial,
		verifier:       cfg.Verifier,
		artifactsDir:   cfg.ArtifactsDir,
		logsDir:        cfg.LogsDir,
		knownHostsPath: cfg.KnownHostsPath,
		logLevel:       cfg.LogLevel,
	}
	if c.builder == nil {
		c.builder = build.New(cfg.ArtifactsDir)
	}
	if c.dial == nil {
		c.dial = func(tc transport.Config) (Transport, error) {
			return transport.Connect(tc)
		}
	}
	if c.verifier == nil {
		c.verifier = healthcheck.New()
	}
	return c
}

// Request describes one deploy. Config must already be merged for the named
// target (see AppConfig.MergeWithTarget). ReleaseID is optional; callers
// that respond before the deploy finishes generate it up front so they can
// hand it back for polling.
type Request struct {
	Config     *config.AppConfig
	TargetName string
	SourceRef  string
	ReleaseID  string
}

// Deploy runs a full release and returns its final record. The returned
// error is the underlying cause whenever the release did not end in
// Succeeded; callers that only care about the outcome can inspect the
// release status and reason instead.
func (c *Coordinator) Deploy(ctx context.Context, req Request) (release.Release, error) {
	releaseID := req.ReleaseID
	if releaseID == "" {
		releaseID = release.NewID()
	}
	rel := release.Release{
		ID:         releaseID,
		AppName:    req.Config.Name,
		SourceRef:  req.SourceRef,
		TargetName: req.TargetName,
		Status:     release.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.SaveRelease(rel); err != nil {
		return rel, fmt.Errorf("failed to record release: %w", err)
	}

	logger, closeLogger, err := logging.NewReleaseLogger(c.logsDir, rel.ID, c.logLevel)
	if err != nil {
		return c.finish(rel, release.StatusFailed, "log_setup_failed", nil), err
	}
	defer closeLogger()

	logger.Info("Release started", "app", rel.AppName, "target", rel.TargetName, "sourceRef", rel.SourceRef)

	rel = c.setStatus(logger, rel, release.StatusBuilding, "")
	artifact, err := c.builder.Run(ctx, req.Config.Build, rel.ID, logger)
	if err != nil {
		reason := "build_failed"
		var failure *build.Failure
		if errors.As(err, &failure) {
			reason = fmt.Sprintf("build_failed: %s", failure.Stage)
		}
		return c.finish(rel, release.StatusFailed, reason, logger), err
	}
	rel.ArtifactHash = artifact.Hash
	rel.ArtifactPath = artifact.Path
	if err := c.store.UpdateRelease(rel); err != nil {
		return c.finish(rel, release.StatusFailed, "internal_error", logger), err
	}

	return c.ship(ctx, rel, req.Config, logger)
}

// ship takes a release that already has an artifact and runs the remote half
// of the lifecycle. Both fresh deploys and manual rollbacks end up here.
func (c *Coordinator) ship(ctx context.Context, rel release.Release, cfg *config.AppConfig, logger *slog.Logger) (release.Release, error) {
	lock := c.hostLock(cfg.Host)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.UpsertHost(rel.AppName, rel.TargetName, cfg.Host); err != nil {
		return c.finish(rel, release.StatusFailed, "internal_error", logger), err
	}

	credential, err := c.loadCredential(cfg)
	if err != nil {
		return c.finish(rel, release.StatusFailed, "credential_error", logger), err
	}
	defer credential.Destroy()

	rel = c.setStatus(logger, rel, release.StatusDeploying, "")

	client, err := c.dial(transport.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Credential:     credential,
		KnownHostsPath: c.knownHostsPath,
	})
	if err != nil {
		// Nothing ran on the host, so there is nothing to roll back.
		return c.finish(rel, release.StatusFailed, dialFailureReason(err), logger), err
	}
	defer client.Close()

	if err := c.installRelease(ctx, client, rel, cfg, logger); err != nil {
		return c.rollback(ctx, client, rel, cfg, installFailureReason(err), err, logger)
	}

	rel = c.setStatus(logger, rel, release.StatusHealthChecking, "")
	hc := cfg.HealthCheck
	url := fmt.Sprintf("http://%s:%d%s", cfg.Host, hc.Port, hc.Path)
	if _, err := c.verifier.Wait(ctx, url, hc.Interval, hc.Timeout); err != nil {
		return c.rollback(ctx, client, rel, cfg, "health_check_timeout", err, logger)
	}

	rel = c.finish(rel, release.StatusSucceeded, "", logger)
	if err := c.store.SetLastKnownGood(rel.AppName, rel.TargetName, rel.ID); err != nil {
		logger.Warn("Failed to record last known good release", "error", err)
	}
	c.prune(ctx, client, rel, cfg, logger)
	logger.Info("Release succeeded", "releaseID", rel.ID)
	return rel, nil
}

// installRelease copies the artifact to the host, unpacks it next to earlier
// releases and points the current symlink at it before asking the supervisor
// to pick it up.
func (c *Coordinator) installRelease(ctx context.Context, client Transport, rel release.Release, cfg *config.AppConfig, logger *slog.Logger) error {
	releaseDir := remoteReleaseDir(cfg.DeployPath, rel.ID)
	tarball := releaseDir + ".tar.gz"

	logger.Info("Uploading artifact", "remotePath", tarball)
	if err := client.Copy(ctx, rel.ArtifactPath, tarball); err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	extract := fmt.Sprintf("mkdir -p %s && tar -xzf %s -C %s && rm -f %s",
		shellQuote(releaseDir), shellQuote(tarball), shellQuote(releaseDir), shellQuote(tarball))
	if result, err := client.Run(ctx, extract); err != nil {
		return fmt.Errorf("failed to unpack artifact: %w", err)
	} else if result.ExitCode != 0 {
		return fmt.Errorf("failed to unpack artifact: %s", result.Stderr)
	}

	if err := c.activate(ctx, client, rel.ID, cfg, logger); err != nil {
		return err
	}
	return nil
}

// activate re-points the current symlink at a release directory and reloads
// the process. It is the shared final step of deploys and rollbacks.
func (c *Coordinator) activate(ctx context.Context, client Transport, releaseID string, cfg *config.AppConfig, logger *slog.Logger) error {
	releaseDir := remoteReleaseDir(cfg.DeployPath, releaseID)
	currentPath := path.Join(cfg.DeployPath, "current")

	link := fmt.Sprintf("ln -sfn %s %s", shellQuote(releaseDir), shellQuote(currentPath))
	if result, err := client.Run(ctx, link); err != nil {
		return fmt.Errorf("failed to update current symlink: %w", err)
	} else if result.ExitCode != 0 {
		return fmt.Errorf("failed to update current symlink: %s", result.Stderr)
	}

	sup := supervisor.New(client)
	status, err := sup.ReloadOrStart(ctx, cfg.ProcessName, currentPath, cfg.StartScript)
	if err != nil {
		return err
	}
	logger.Info("Process reloaded", "process", cfg.ProcessName, "status", status)
	return nil
}

// rollback makes exactly one attempt to restore the last known good release
// before recording the terminal state. A release that arrives here has
// already changed the host, so leaving it alone is not an option.
func (c *Coordinator) rollback(ctx context.Context, client Transport, rel release.Release, cfg *config.AppConfig, reason string, cause error, logger *slog.Logger) (release.Release, error) {
	logger.Error("Release failed, attempting rollback", "reason", reason, "error", cause)

	host, err := c.store.GetHost(rel.AppName, rel.TargetName)
	if err != nil || host.LastKnownGood == "" {
		logger.Warn("No last known good release to roll back to")
		return c.finish(rel, release.StatusFailed, reason, logger), cause
	}

	// The inbound context may already be canceled or past its deadline;
	// the rollback still has to run.
	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultRollbackTimeout)
	defer cancel()

	if err := c.activate(rollbackCtx, client, host.LastKnownGood, cfg, logger); err != nil {
		logger.Error("Rollback failed", "targetRelease", host.LastKnownGood, "error", err)
		return c.finish(rel, release.StatusFailed, reason+"; rollback_failed", logger), cause
	}

	rel.RolledBackTo = host.LastKnownGood
	logger.Info("Rolled back", "targetRelease", host.LastKnownGood)
	return c.finish(rel, release.StatusRolledBack, reason, logger), cause
}

const defaultRollbackTimeout = 2 * time.Minute

// prune removes release rows and remote release directories beyond the
// configured retention. Failures are logged and ignored; the deploy already
// succeeded.
func (c *Coordinator) prune(ctx context.Context, client Transport, rel release.Release, cfg *config.AppConfig, logger *slog.Logger) {
	keep := *cfg.ReleasesToKeep
	if removed, err := c.store.PruneOldReleases(rel.AppName, keep); err != nil {
		logger.Warn("Failed to prune release history", "error", err)
	} else if removed > 0 {
		logger.Debug("Pruned release history", "removed", removed)
	}

	// Release IDs sort lexicographically by creation time, so a reverse
	// sort puts the newest directories first and tail skips the kept ones.
	// The last-known-good directory is never removed; the automatic
	// rollback re-points the symlink at it.
	releasesDir := path.Join(cfg.DeployPath, "releases")
	cleanup := fmt.Sprintf("cd %s && ls -1 | sort -r | tail -n +%d | grep -vx %s | xargs -r rm -rf",
		shellQuote(releasesDir), keep+1, shellQuote(rel.ID))
	if result, err := client.Run(ctx, cleanup); err != nil {
		logger.Warn("Failed to prune remote releases", "error", err)
	} else if result.ExitCode != 0 {
		logger.Warn("Failed to prune remote releases", "stderr", result.Stderr)
	}
}

// loadCredential returns nil when no key is configured; the transport then
// falls back to the SSH agent.
func (c *Coordinator) loadCredential(cfg *config.AppConfig) (*secrets.Credential, error) {
	if cfg.KeyFile != "" {
		return secrets.CredentialFromFile(cfg.KeyFile)
	}
	if cfg.KeySecret == "" {
		return nil, nil
	}
	value, err := c.store.GetSecretDecryptedValue(cfg.KeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to load key secret %q: %w", cfg.KeySecret, err)
	}
	return secrets.NewCredential([]byte(value))
}

func (c *Coordinator) hostLock(host string) *sync.Mutex {
	lock, _ := c.hostLocks.LoadOrStore(host, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// setStatus persists an in-flight state change.
func (c *Coordinator) setStatus(logger *slog.Logger, rel release.Release, status release.Status, reason string) release.Release {
	rel.Status = status
	rel.Reason = reason
	if err := c.store.UpdateRelease(rel); err != nil {
		logger.Warn("Failed to persist release status", "status", status, "error", err)
	}
	logger.Info("Release status changed", "status", status)
	return rel
}

// finish persists a terminal state. logger may be nil when logging setup
// itself failed.
func (c *Coordinator) finish(rel release.Release, status release.Status, reason string, logger *slog.Logger) release.Release {
	rel.Status = status
	rel.Reason = reason
	rel.FinishedAt = time.Now().UTC()
	if err := c.store.UpdateRelease(rel); err != nil && logger != nil {
		logger.Warn("Failed to persist release status", "status", status, "error", err)
	}
	return rel
}

func installFailureReason(err error) string {
	var supErr *supervisor.Error
	if errors.As(err, &supErr) {
		return "supervisor_error"
	}
	var connErr *transport.ConnectionError
	if errors.As(err, &connErr) {
		return "connection_failed"
	}
	return "deploy_failed"
}

func dialFailureReason(err error) string {
	var hostKeyErr *transport.HostKeyMismatchError
	var authErr *transport.AuthError
	switch {
	case errors.As(err, &hostKeyErr):
		return "host_key_mismatch"
	case errors.As(err, &authErr):
		return "auth_failed"
	default:
		return "connection_failed"
	}
}

func remoteReleaseDir(deployPath, releaseID string) string {
	return path.Join(deployPath, "releases", releaseID)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
