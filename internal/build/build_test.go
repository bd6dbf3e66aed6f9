package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsvik/berth/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunProducesArtifact(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "index.js"), []byte("console.log('hi')\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(srcDir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "lib", "util.js"), []byte("module.exports = {}\n"), 0o644))

	builder := New(t.TempDir())
	buildConfig := config.BuildConfig{
		Dir:     srcDir,
		Install: "true",
		Test:    "true",
	}

	artifact, err := builder.Run(context.Background(), buildConfig, "01TESTRELEASE", discardLogger())
	require.NoError(t, err)

	assert.FileExists(t, artifact.Path)
	assert.Len(t, artifact.Hash, 64, "hash should be hex-encoded sha256")
	assert.Equal(t, "01TESTRELEASE.tar.gz", filepath.Base(artifact.Path))
}

func TestRunAbortsOnFirstFailedStage(t *testing.T) {
	srcDir := t.TempDir()
	builder := New(t.TempDir())
	buildConfig := config.BuildConfig{
		Dir:     srcDir,
		Install: "true",
		Test:    "echo 'tests failed' && false",
		Build:   "touch should-not-exist",
	}

	_, err := builder.Run(context.Background(), buildConfig, "01TESTRELEASE", discardLogger())
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageTest, failure.Stage)
	assert.Contains(t, failure.Output, "tests failed")

	assert.NoFileExists(t, filepath.Join(srcDir, "should-not-exist"), "later stages should not run")
}

func TestRunSkipsEmptyStages(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "app.js"), []byte("x"), 0o644))

	builder := New(t.TempDir())
	artifact, err := builder.Run(context.Background(), config.BuildConfig{Dir: srcDir}, "01TESTRELEASE", discardLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.Hash)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := New(t.TempDir())
	buildConfig := config.BuildConfig{Dir: t.TempDir(), Install: "sleep 10"}

	_, err := builder.Run(ctx, buildConfig, "01TESTRELEASE", discardLogger())
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageInstall, failure.Stage)
}
