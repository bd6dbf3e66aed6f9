package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReleaseLoggerWritesFile(t *testing.T) {
	logsDir := t.TempDir()

	logger, closeLog, err := NewReleaseLogger(logsDir, "01TESTRELEASE", slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("Deploying")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(ReleaseLogPath(logsDir, "01TESTRELEASE"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Deploying")
	assert.Contains(t, string(data), "releaseID=01TESTRELEASE")
}

func TestCleanOldLogs(t *testing.T) {
	logsDir := t.TempDir()

	old := filepath.Join(logsDir, "01OLD.log")
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))
	stale := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(old, stale, stale))

	recent := filepath.Join(logsDir, "01RECENT.log")
	require.NoError(t, os.WriteFile(recent, []byte("fresh"), 0o644))

	require.NoError(t, CleanOldLogs(logsDir, 30))

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}
