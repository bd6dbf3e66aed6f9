package appconfigloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiTargetYAML = `
name: web
build:
  build: "npm run build"
user: deploy
key_file: /home/deploy/.ssh/id_ed25519
deploy_path: /srv/web
health_check:
  port: 3000
  interval: 1s
  timeout: 10s
targets:
  staging:
    host: staging.example.com
  production:
    host: prod.example.com
    health_check:
      port: 3000
      path: /healthz
      interval: 2s
      timeout: 30s
`

const singleTargetYAML = `
name: web
host: prod.example.com
user: deploy
key_file: /home/deploy/.ssh/id_ed25519
deploy_path: /srv/web
health_check:
  port: 3000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "berth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSingleTarget(t *testing.T) {
	path := writeConfig(t, singleTargetYAML)

	resolved, baseConfig, err := Load(path, nil, false)
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	assert.Equal(t, "", resolved[0].TargetName)
	assert.Equal(t, "prod.example.com", resolved[0].ResolvedAppConfig.Host)
	assert.Equal(t, "web", baseConfig.Name)
}

func TestLoadSingleTargetRejectsTargetFlags(t *testing.T) {
	path := writeConfig(t, singleTargetYAML)

	_, _, err := Load(path, []string{"production"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not applicable")
}

func TestLoadMultiTargetRequiresSelection(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	_, _, err := Load(path, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production, staging")
}

func TestLoadAllTargets(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	resolved, _, err := Load(path, nil, true)
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	// Sorted by target name.
	assert.Equal(t, "production", resolved[0].TargetName)
	assert.Equal(t, "staging", resolved[1].TargetName)

	production := resolved[0].ResolvedAppConfig
	staging := resolved[1].ResolvedAppConfig
	assert.Equal(t, "prod.example.com", production.Host)
	assert.Equal(t, "staging.example.com", staging.Host)

	// Production overrides its health check without leaking into staging.
	assert.Equal(t, "/healthz", production.HealthCheck.Path)
	assert.Equal(t, 30*time.Second, production.HealthCheck.Timeout)
	assert.Equal(t, "/health", staging.HealthCheck.Path)
	assert.Equal(t, 10*time.Second, staging.HealthCheck.Timeout)
}

func TestLoadSelectedTarget(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	resolved, _, err := Load(path, []string{"staging"}, false)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "staging", resolved[0].TargetName)
}

func TestLoadUnknownTarget(t *testing.T) {
	path := writeConfig(t, multiTargetYAML)

	_, _, err := Load(path, []string{"qa"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'qa' not found")
}
