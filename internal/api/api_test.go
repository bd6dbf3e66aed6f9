package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/constants"
	"github.com/larsvik/berth/internal/db"
	"github.com/larsvik/berth/internal/logging"
	"github.com/larsvik/berth/internal/orchestrator"
	"github.com/larsvik/berth/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

type fakeOrchestrator struct {
	deployed   chan orchestrator.Request
	rolledBack chan orchestrator.RollbackRequest
	targets    []release.Release
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		deployed:   make(chan orchestrator.Request, 1),
		rolledBack: make(chan orchestrator.RollbackRequest, 1),
	}
}

func (f *fakeOrchestrator) Deploy(ctx context.Context, req orchestrator.Request) (release.Release, error) {
	f.deployed <- req
	return release.Release{ID: req.ReleaseID, Status: release.StatusSucceeded}, nil
}

func (f *fakeOrchestrator) Rollback(ctx context.Context, req orchestrator.RollbackRequest) (release.Release, error) {
	f.rolledBack <- req
	return release.Release{ID: req.ReleaseID, Status: release.StatusSucceeded}, nil
}

func (f *fakeOrchestrator) RollbackTargets(appName, targetName string, limit int) ([]release.Release, error) {
	return f.targets, nil
}

type serverFixture struct {
	server       *APIServer
	store        *db.DB
	orchestrator *fakeOrchestrator
	logsDir      string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	t.Setenv(constants.EnvVarAgeIdentity, identity.String())

	store, err := db.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	orch := newFakeOrchestrator()
	logsDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &serverFixture{
		server:       NewServer(orch, store, logsDir, testToken, logger),
		store:        store,
		orchestrator: orch,
		logsDir:      logsDir,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)
	return recorder
}

func testDeployRequest() apitypes.DeployRequest {
	keep := 3
	return apitypes.DeployRequest{
		AppConfig: config.AppConfig{
			Name: "web",
			TargetConfig: config.TargetConfig{
				Host:       "203.0.113.10",
				User:       "deploy",
				KeyFile:    "/home/deploy/.ssh/id_ed25519",
				DeployPath: "/srv/web",
				HealthCheck: &config.HealthCheckConfig{
					Port: 3000,
				},
				ReleasesToKeep: &keep,
			},
		},
		TargetName: "production",
		SourceRef:  "deadbeef",
	}
}

func TestHealthEndpointNeedsNoAuth(t *testing.T) {
	fixture := newServerFixture(t)

	recorder := fixture.do(t, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response apitypes.HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "berthd", response.Service)
}

func TestAuthIsRequired(t *testing.T) {
	fixture := newServerFixture(t)

	recorder := fixture.do(t, http.MethodGet, "/v1/secrets", nil, false)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/secrets", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	recorder = httptest.NewRecorder()
	fixture.server.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestDeployAcceptedAndStarted(t *testing.T) {
	fixture := newServerFixture(t)

	recorder := fixture.do(t, http.MethodPost, "/v1/releases", testDeployRequest(), true)
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var response apitypes.DeployResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.NotEmpty(t, response.ReleaseID)

	select {
	case req := <-fixture.orchestrator.deployed:
		assert.Equal(t, response.ReleaseID, req.ReleaseID)
		assert.Equal(t, "web", req.Config.Name)
		assert.Equal(t, "production", req.TargetName)
		assert.Equal(t, "deadbeef", req.SourceRef)
	case <-time.After(time.Second):
		t.Fatal("deploy was never started")
	}
}

func TestDeployRejectsInvalidConfig(t *testing.T) {
	fixture := newServerFixture(t)

	req := testDeployRequest()
	req.AppConfig.Host = ""
	recorder := fixture.do(t, http.MethodPost, "/v1/releases", req, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestDeployRejectsUnknownFields(t *testing.T) {
	fixture := newServerFixture(t)

	body := bytes.NewReader([]byte(`{"app": {"name": "web"}, "bogus": true}`))
	req := httptest.NewRequest(http.MethodPost, "/v1/releases", body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	recorder := httptest.NewRecorder()
	fixture.server.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReleaseStatus(t *testing.T) {
	fixture := newServerFixture(t)

	rel := release.Release{
		ID:         release.NewID(),
		AppName:    "web",
		TargetName: "production",
		Status:     release.StatusSucceeded,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, fixture.store.SaveRelease(rel))

	recorder := fixture.do(t, http.MethodGet, "/v1/releases/"+rel.ID, nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response apitypes.ReleaseStatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, rel.ID, response.Release.ID)
	assert.Equal(t, release.StatusSucceeded, response.Release.Status)

	recorder = fixture.do(t, http.MethodGet, "/v1/releases/"+release.NewID(), nil, true)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestReleaseHistory(t *testing.T) {
	fixture := newServerFixture(t)

	for range 3 {
		rel := release.Release{
			ID:         release.NewID(),
			AppName:    "web",
			TargetName: "production",
			Status:     release.StatusSucceeded,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, fixture.store.SaveRelease(rel))
	}

	recorder := fixture.do(t, http.MethodGet, "/v1/apps/web/releases?limit=2", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response apitypes.ReleaseHistoryResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Len(t, response.Releases, 2)

	recorder = fixture.do(t, http.MethodGet, "/v1/apps/web/releases?limit=zero", nil, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReleaseLogs(t *testing.T) {
	fixture := newServerFixture(t)

	releaseID := release.NewID()
	logger, closeLogger, err := logging.NewReleaseLogger(fixture.logsDir, releaseID, slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("Release started")
	require.NoError(t, closeLogger())

	recorder := fixture.do(t, http.MethodGet, "/v1/releases/"+releaseID+"/logs", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Release started")

	recorder = fixture.do(t, http.MethodGet, "/v1/releases/"+release.NewID()+"/logs", nil, true)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRollbackWithNoHistoryConflicts(t *testing.T) {
	fixture := newServerFixture(t)

	req := apitypes.RollbackRequest{
		AppConfig:  testDeployRequest().AppConfig,
		TargetName: "production",
	}
	recorder := fixture.do(t, http.MethodPost, "/v1/rollback", req, true)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestRollbackAccepted(t *testing.T) {
	fixture := newServerFixture(t)
	fixture.orchestrator.targets = []release.Release{{ID: release.NewID()}}

	req := apitypes.RollbackRequest{
		AppConfig:  testDeployRequest().AppConfig,
		TargetName: "production",
	}
	recorder := fixture.do(t, http.MethodPost, "/v1/rollback", req, true)
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var response apitypes.RollbackResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	select {
	case rollbackReq := <-fixture.orchestrator.rolledBack:
		assert.Equal(t, response.ReleaseID, rollbackReq.ReleaseID)
	case <-time.After(time.Second):
		t.Fatal("rollback was never started")
	}
}

func TestSecretsLifecycle(t *testing.T) {
	fixture := newServerFixture(t)

	setReq := apitypes.SetSecretRequest{Name: "deploy-key", Value: "super-secret"}
	recorder := fixture.do(t, http.MethodPost, "/v1/secrets", setReq, true)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = fixture.do(t, http.MethodGet, "/v1/secrets", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listResponse apitypes.SecretsListResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listResponse))
	require.Len(t, listResponse.Secrets, 1)
	assert.Equal(t, "deploy-key", listResponse.Secrets[0].Name)

	recorder = fixture.do(t, http.MethodDelete, "/v1/secrets/deploy-key", nil, true)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = fixture.do(t, http.MethodGet, "/v1/secrets", nil, true)
	require.Equal(t, http.StatusOK, recorder.Code)
	listResponse = apitypes.SecretsListResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listResponse))
	assert.Empty(t, listResponse.Secrets)
}

func TestSetSecretRejectsBadName(t *testing.T) {
	fixture := newServerFixture(t)

	setReq := apitypes.SetSecretRequest{Name: "bad name!", Value: "v"}
	recorder := fixture.do(t, http.MethodPost, "/v1/secrets", setReq, true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
