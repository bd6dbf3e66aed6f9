// Package build runs the local build stages and bundles the result into a
// content-addressed artifact.
package build

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/constants"
)

// Stage names the build step that produced a result or failure.
type Stage string

const (
	StageInstall Stage = "install"
	StageTest    Stage = "test"
	StageBuild   Stage = "build"
	StageBundle  Stage = "bundle"
)

// Failure reports which stage aborted the build. The whole release stops on
// the first failed stage.
type Failure struct {
	Stage  Stage
	Output string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("build stage %s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Artifact is the immutable output of a build: a tar.gz bundle and the
// sha256 of its bytes.
type Artifact struct {
	Path string
	Hash string
}

// Builder runs configured install/test/build commands in order and bundles
// the working directory. Side effects are limited to the local filesystem.
type Builder struct {
	// OutDir is where artifact bundles are written.
	OutDir string
}

func New(outDir string) *Builder {
	return &Builder{OutDir: outDir}
}

// Run executes the build stages and produces the artifact for a release.
func (b *Builder) Run(ctx context.Context, buildConfig config.BuildConfig, releaseID string, logger *slog.Logger) (Artifact, error) {
	stages := []struct {
		stage   Stage
		command string
	}{
		{StageInstall, buildConfig.Install},
		{StageTest, buildConfig.Test},
		{StageBuild, buildConfig.Build},
	}

	for _, s := range stages {
		if s.command == "" {
			continue
		}
		logger.Info("Running build stage", "stage", string(s.stage), "command", s.command)
		if output, err := runCommand(ctx, buildConfig.Dir, s.command); err != nil {
			return Artifact{}, &Failure{Stage: s.stage, Output: output, Err: err}
		}
	}

	artifact, err := b.bundle(buildConfig.Dir, releaseID)
	if err != nil {
		return Artifact{}, &Failure{Stage: StageBundle, Err: err}
	}

	logger.Info("Artifact built", "path", artifact.Path, "hash", artifact.Hash)
	return artifact, nil
}

func runCommand(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
	}
	return string(output), nil
}

// bundle writes a tar.gz of the build directory and hashes the bundle bytes
// as it writes. The .git directory and previous artifacts are skipped.
func (b *Builder) bundle(dir, releaseID string) (Artifact, error) {
	if err := os.MkdirAll(b.OutDir, constants.ModeDirPrivate); err != nil {
		return Artifact{}, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	bundlePath := filepath.Join(b.OutDir, releaseID+".tar.gz")
	file, err := os.Create(bundlePath)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	gzWriter := gzip.NewWriter(io.MultiWriter(file, hasher))
	tarWriter := tar.NewWriter(gzWriter)

	root, err := filepath.Abs(dir)
	if err != nil {
		return Artifact{}, err
	}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		// Only regular files and directories go into the bundle.
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tarWriter, f)
		return err
	})
	if walkErr != nil {
		return Artifact{}, fmt.Errorf("failed to bundle %s: %w", dir, walkErr)
	}

	if err := tarWriter.Close(); err != nil {
		return Artifact{}, err
	}
	if err := gzWriter.Close(); err != nil {
		return Artifact{}, err
	}
	if err := file.Close(); err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Path: bundlePath,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}
