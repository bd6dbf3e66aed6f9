// Package logging sets up slog loggers for the daemon and per-release log
// files that back the release log API.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/larsvik/berth/internal/constants"
)

// New returns the daemon-wide logger.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// NewReleaseLogger returns a logger that writes to both the daemon's stdout
// and a per-release log file, plus a close function for the file. Every
// record carries the release ID.
func NewReleaseLogger(logsDir, releaseID string, level slog.Level) (*slog.Logger, func() error, error) {
	if releaseID == "" {
		return nil, nil, fmt.Errorf("release ID cannot be empty")
	}
	if err := os.MkdirAll(logsDir, constants.ModeDirPrivate); err != nil {
		return nil, nil, fmt.Errorf("failed to create release logs directory: %w", err)
	}

	logFilePath := ReleaseLogPath(logsDir, releaseID)
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.ModeFileDefault)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open release log file: %w", err)
	}

	w := io.MultiWriter(os.Stdout, file)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("releaseID", releaseID)

	return logger, file.Close, nil
}

// ReleaseLogPath returns the log file path for a release.
func ReleaseLogPath(logsDir, releaseID string) string {
	return filepath.Join(logsDir, releaseID+".log")
}

// CleanOldLogs removes release log files older than maxAgeDays.
func CleanOldLogs(logsDir string, maxAgeDays int) error {
	files, err := os.ReadDir(logsDir)
	if err != nil {
		return err
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(logsDir, file.Name()))
		}
	}
	return nil
}
