// Package supervisor drives the process manager on a target host over the
// transport. The remote tool (pm2 or compatible) is an opaque external
// capability; this package only issues its lifecycle commands.
package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/larsvik/berth/internal/transport"
)

// CommandRunner is the slice of the transport the supervisor needs.
type CommandRunner interface {
	Run(ctx context.Context, command string) (transport.RunResult, error)
}

// Error reports a failed remote supervisor command with everything needed to
// debug it from the release log.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supervisor command %q failed with exit code %d: %s",
		e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ProcessStatus is the state the supervisor reported after an operation.
type ProcessStatus string

const (
	StatusOnline  ProcessStatus = "online"
	StatusStopped ProcessStatus = "stopped"
	StatusUnknown ProcessStatus = "unknown"
)

type Client struct {
	runner CommandRunner
	bin    string
}

func New(runner CommandRunner) *Client {
	return &Client{runner: runner, bin: "pm2"}
}

// ReloadOrStart brings the named process up on the new release directory.
// A graceful reload is tried first so in-flight connections are not dropped;
// if the supervisor does not know the process yet, it falls back to a cold
// start of the start script in dir.
func (c *Client) ReloadOrStart(ctx context.Context, processName, dir, startScript string) (ProcessStatus, error) {
	reloadCmd := fmt.Sprintf("%s reload %s --update-env", c.bin, shellQuote(processName))
	result, err := c.runner.Run(ctx, reloadCmd)
	if err != nil {
		return StatusUnknown, err
	}
	if result.ExitCode == 0 {
		return c.Status(ctx, processName)
	}

	if !processNotFound(result) {
		return StatusUnknown, &Error{Command: reloadCmd, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	startCmd := fmt.Sprintf("cd %s && %s start %s --name %s",
		shellQuote(dir), c.bin, shellQuote(startScript), shellQuote(processName))
	result, err = c.runner.Run(ctx, startCmd)
	if err != nil {
		return StatusUnknown, err
	}
	if result.ExitCode != 0 {
		return StatusUnknown, &Error{Command: startCmd, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	return c.Status(ctx, processName)
}

// Stop stops the named process. Stopping a process the supervisor does not
// know is not an error; the desired state is already true.
func (c *Client) Stop(ctx context.Context, processName string) error {
	stopCmd := fmt.Sprintf("%s stop %s", c.bin, shellQuote(processName))
	result, err := c.runner.Run(ctx, stopCmd)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 && !processNotFound(result) {
		return &Error{Command: stopCmd, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

// Status asks the supervisor for the process PID. A positive PID means the
// process is online.
func (c *Client) Status(ctx context.Context, processName string) (ProcessStatus, error) {
	pidCmd := fmt.Sprintf("%s pid %s", c.bin, shellQuote(processName))
	result, err := c.runner.Run(ctx, pidCmd)
	if err != nil {
		return StatusUnknown, err
	}
	if result.ExitCode != 0 {
		return StatusUnknown, &Error{Command: pidCmd, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	pid := strings.TrimSpace(result.Stdout)
	if pid == "" || pid == "0" {
		return StatusStopped, nil
	}
	return StatusOnline, nil
}

func processNotFound(result transport.RunResult) bool {
	combined := result.Stdout + result.Stderr
	return strings.Contains(combined, "not found")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
