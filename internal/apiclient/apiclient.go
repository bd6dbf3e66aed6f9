package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/larsvik/berth/internal/apitypes"
	"github.com/larsvik/berth/internal/config"
	"github.com/larsvik/berth/internal/constants"
	"github.com/larsvik/berth/internal/release"
	"github.com/larsvik/berth/internal/ui"
)

// APIClient talks to a berthd daemon.
type APIClient struct {
	client   *http.Client
	baseURL  string
	apiToken string
}

func New(serverURL string) *APIClient {
	token, err := config.LoadAPIToken()
	if err != nil {
		ui.Error("Failed to load API token: %v", err)
		ui.Info("Set %s environment variable or create a %s file", constants.EnvVarAPIToken, constants.ConfigEnvFileName)
		// Continue without token and let API calls fail with auth errors.
	}
	return &APIClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  serverURL,
		apiToken: token,
	}
}

func (c *APIClient) setAuthHeader(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	// Health endpoint doesn't require auth
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/%s", c.baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create GET request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) post(ctx context.Context, path string, request, response any) error {
	var jsonData []byte
	var err error
	if request != nil {
		jsonData, err = json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/%s", c.baseURL, path), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *APIClient) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", fmt.Sprintf("%s/v1/%s", c.baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create DELETE request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("authentication failed - check your %s", constants.EnvVarAPIToken)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(body) > 0 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

func (c *APIClient) Deploy(ctx context.Context, appConfig config.AppConfig, targetName, sourceRef string) (*apitypes.DeployResponse, error) {
	request := apitypes.DeployRequest{AppConfig: appConfig, TargetName: targetName, SourceRef: sourceRef}
	var response apitypes.DeployResponse
	err := c.post(ctx, "releases", request, &response)
	return &response, err
}

func (c *APIClient) ReleaseStatus(ctx context.Context, releaseID string) (*apitypes.ReleaseStatusResponse, error) {
	var response apitypes.ReleaseStatusResponse
	err := c.get(ctx, fmt.Sprintf("releases/%s", releaseID), &response)
	return &response, err
}

func (c *APIClient) ReleaseHistory(ctx context.Context, appName string, limit int) (*apitypes.ReleaseHistoryResponse, error) {
	var response apitypes.ReleaseHistoryResponse
	path := fmt.Sprintf("apps/%s/releases", url.PathEscape(appName))
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	err := c.get(ctx, path, &response)
	return &response, err
}

func (c *APIClient) RollbackTargets(ctx context.Context, appName, targetName string) (*apitypes.RollbackTargetsResponse, error) {
	var response apitypes.RollbackTargetsResponse
	path := fmt.Sprintf("apps/%s/targets/%s/rollback-targets", url.PathEscape(appName), url.PathEscape(targetName))
	err := c.get(ctx, path, &response)
	return &response, err
}

func (c *APIClient) Rollback(ctx context.Context, appConfig config.AppConfig, targetName, toReleaseID string) (*apitypes.RollbackResponse, error) {
	request := apitypes.RollbackRequest{AppConfig: appConfig, TargetName: targetName, ToReleaseID: toReleaseID}
	var response apitypes.RollbackResponse
	err := c.post(ctx, "rollback", request, &response)
	return &response, err
}

func (c *APIClient) SecretsList(ctx context.Context) (*apitypes.SecretsListResponse, error) {
	var response apitypes.SecretsListResponse
	err := c.get(ctx, "secrets", &response)
	return &response, err
}

func (c *APIClient) SetSecret(ctx context.Context, name, value string) error {
	return c.post(ctx, "secrets", apitypes.SetSecretRequest{Name: name, Value: value}, nil)
}

func (c *APIClient) DeleteSecret(ctx context.Context, name string) error {
	return c.delete(ctx, fmt.Sprintf("secrets/%s", url.PathEscape(name)))
}

func (c *APIClient) Version(ctx context.Context) (*apitypes.VersionResponse, error) {
	var response apitypes.VersionResponse
	err := c.get(ctx, "version", &response)
	return &response, err
}

func (c *APIClient) ReleaseLogs(ctx context.Context, releaseID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/releases/%s/logs", c.baseURL, releaseID), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return string(body), nil
}

// WaitForRelease polls the status endpoint until the release reaches a
// terminal state or ctx expires.
func (c *APIClient) WaitForRelease(ctx context.Context, releaseID string, pollInterval time.Duration) (release.Release, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		response, err := c.ReleaseStatus(ctx, releaseID)
		if err == nil && response.Release.Status.IsTerminal() {
			return response.Release, nil
		}

		select {
		case <-ctx.Done():
			return release.Release{}, fmt.Errorf("timed out waiting for release %s: %w", releaseID, ctx.Err())
		case <-ticker.C:
		}
	}
}
