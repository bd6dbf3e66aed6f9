package berthd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/larsvik/berth/internal/api"
	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/constants"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/logging"
	"github.com/larsvik/berth/internal/orchestrator"
	"github.com/larsvik/berth/internal/secrets"
)

// Run starts the berth daemon: it opens the release database, wires the
// release coordinator and serves the HTTP API until SIGINT or SIGTERM.
func Run(debug bool) error {
	// Wipe locked buffers on interrupt as well as on normal return.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	config.LoadEnvFiles()

	if _, err := secrets.GetAgeIdentity(); err != nil {
		return fmt.Errorf("encryption key not available: %w", err)
	}
	apiToken, err := config.LoadAPIToken()
	if err != nil || apiToken == "" {
		return fmt.Errorf("API token not set; export %s", constants.EnvVarAPIToken)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	serverConfigPath := filepath.Join(configDir, constants.ServerConfigFileName)
	serverConfig, err := config.LoadServerConfig(serverConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}
	// Write the effective defaults on first start so operators have a file
	// to edit.
	if _, err := os.Stat(serverConfigPath); os.IsNotExist(err) {
		if err := config.SaveServerConfig(serverConfig, serverConfigPath); err != nil {
			logger.Warn("Failed to write default server config", "path", serverConfigPath, "error", err)
		}
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	store, err := db.New(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open release database: %w", err)
	}
	defer store.Close()

	// A previous daemon may have died mid-release. Settle those rows before
	// accepting new work so no release is left without a terminal state.
	if interrupted, err := store.FailInterruptedReleases(); err != nil {
		return fmt.Errorf("failed to settle interrupted releases: %w", err)
	} else if interrupted > 0 {
		logger.Warn("Marked interrupted releases as failed", "count", interrupted)
	}

	artifactsDir, err := config.ArtifactsDir()
	if err != nil {
		return err
	}
	logsDir, err := config.ReleaseLogsDir()
	if err != nil {
		return err
	}
	knownHostsPath := serverConfig.KnownHostsFile
	if knownHostsPath == "" {
		knownHostsPath, err = config.KnownHostsPath()
		if err != nil {
			return err
		}
	}

	coordinator := orchestrator.New(orchestrator.Config{
		Store:          store,
		ArtifactsDir:   artifactsDir,
		LogsDir:        logsDir,
		KnownHostsPath: knownHostsPath,
		LogLevel:       level,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanLogsLoop(ctx, logsDir, logger)

	server := api.NewServer(coordinator, store, logsDir, apiToken, logger)
	logger.Info("berthd starting", "version", constants.Version, "dataDir", dataDir)
	return server.Start(ctx, serverConfig.API.ListenAddr)
}

const (
	logRetentionDays = 30
	logCleanInterval = 24 * time.Hour
)

// cleanLogsLoop removes release log files past the retention window, once at
// startup and then daily.
func cleanLogsLoop(ctx context.Context, logsDir string, logger *slog.Logger) {
	ticker := time.NewTicker(logCleanInterval)
	defer ticker.Stop()
	for {
		if err := logging.CleanOldLogs(logsDir, logRetentionDays); err != nil {
			logger.Warn("Failed to clean old release logs", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
