package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsvik/berth/internal/transport"
)

// fakeRunner maps command prefixes to canned results.
type fakeRunner struct {
	results  map[string]transport.RunResult
	err      error
	commands []string
}

func (f *fakeRunner) Run(_ context.Context, command string) (transport.RunResult, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return transport.RunResult{}, f.err
	}
	for prefix, result := range f.results {
		if strings.HasPrefix(command, prefix) {
			return result, nil
		}
	}
	return transport.RunResult{}, nil
}

func TestReloadOrStart_GracefulReload(t *testing.T) {
	runner := &fakeRunner{results: map[string]transport.RunResult{
		"pm2 reload": {ExitCode: 0},
		"pm2 pid":    {ExitCode: 0, Stdout: "12345\n"},
	}}

	status, err := New(runner).ReloadOrStart(context.Background(), "myapp", "/var/www/myapp/current", "ecosystem.config.js")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, status)

	require.Len(t, runner.commands, 2)
	assert.Contains(t, runner.commands[0], "pm2 reload 'myapp'")
}

func TestReloadOrStart_ColdStartFallback(t *testing.T) {
	runner := &fakeRunner{results: map[string]transport.RunResult{
		"pm2 reload": {ExitCode: 1, Stderr: "[PM2][ERROR] Process or Namespace myapp not found"},
		"cd":         {ExitCode: 0},
		"pm2 pid":    {ExitCode: 0, Stdout: "999\n"},
	}}

	status, err := New(runner).ReloadOrStart(context.Background(), "myapp", "/var/www/myapp/current", "ecosystem.config.js")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, status)

	require.Len(t, runner.commands, 3)
	assert.Contains(t, runner.commands[1], "cd '/var/www/myapp/current'")
	assert.Contains(t, runner.commands[1], "pm2 start 'ecosystem.config.js' --name 'myapp'")
}

func TestReloadOrStart_ReloadFailureIsNotRetried(t *testing.T) {
	runner := &fakeRunner{results: map[string]transport.RunResult{
		"pm2 reload": {ExitCode: 1, Stderr: "some other failure"},
	}}

	_, err := New(runner).ReloadOrStart(context.Background(), "myapp", "/var/www/myapp/current", "ecosystem.config.js")
	require.Error(t, err)

	var supErr *Error
	require.True(t, errors.As(err, &supErr))
	assert.Equal(t, 1, supErr.ExitCode)
	assert.Contains(t, supErr.Stderr, "some other failure")
	assert.Len(t, runner.commands, 1, "a real reload failure must not trigger a cold start")
}

func TestReloadOrStart_TransportErrorPropagates(t *testing.T) {
	transportErr := &transport.ConnectionError{Host: "example.com", Err: errors.New("broken pipe")}
	runner := &fakeRunner{err: transportErr}

	_, err := New(runner).ReloadOrStart(context.Background(), "myapp", "/d", "s.js")
	require.Error(t, err)

	var connErr *transport.ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestStop(t *testing.T) {
	runner := &fakeRunner{results: map[string]transport.RunResult{
		"pm2 stop": {ExitCode: 1, Stderr: "[PM2][ERROR] Process myapp not found"},
	}}
	assert.NoError(t, New(runner).Stop(context.Background(), "myapp"), "stopping an unknown process is not an error")

	runner = &fakeRunner{results: map[string]transport.RunResult{
		"pm2 stop": {ExitCode: 2, Stderr: "daemon unreachable"},
	}}
	assert.Error(t, New(runner).Stop(context.Background(), "myapp"))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		result transport.RunResult
		want   ProcessStatus
	}{
		{"online", transport.RunResult{ExitCode: 0, Stdout: "4711\n"}, StatusOnline},
		{"stopped empty pid", transport.RunResult{ExitCode: 0, Stdout: "\n"}, StatusStopped},
		{"stopped zero pid", transport.RunResult{ExitCode: 0, Stdout: "0\n"}, StatusStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: map[string]transport.RunResult{"pm2 pid": tt.result}}
			status, err := New(runner).Status(context.Background(), "myapp")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}
