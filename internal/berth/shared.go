package berth

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/larsvik/berth/internal/apiclient"
	"github.com/larsvik/berth/internal/constants"
	"github.com/larsvik/berth/internal/release"
	"github.com/larsvik/berth/internal/ui"
)

const defaultServerURL = constants.DefaultAPIServerURL

func newClient(flags *appCmdFlags) *apiclient.APIClient {
	return apiclient.New(serverURL(flags))
}

func serverURL(flags *appCmdFlags) string {
	if flags.serverURL != "" {
		return strings.TrimSuffix(flags.serverURL, "/")
	}
	if url := os.Getenv(constants.EnvVarServerURL); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	return defaultServerURL
}

// detectSourceRef records the current git commit with the release when the
// config directory is a git checkout. Best effort; an empty ref is fine.
func detectSourceRef(dir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

var statusStyles = map[release.Status]lipgloss.Style{
	release.StatusSucceeded:  lipgloss.NewStyle().Foreground(ui.Green),
	release.StatusRolledBack: lipgloss.NewStyle().Foreground(ui.Yellow),
	release.StatusFailed:     lipgloss.NewStyle().Foreground(ui.Red),
}

func renderStatus(status release.Status) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(string(status))
	}
	return string(status)
}

func describeRelease(rel release.Release) string {
	description := fmt.Sprintf("%s  %s", rel.ID, renderStatus(rel.Status))
	if rel.Reason != "" {
		description += fmt.Sprintf("  (%s)", rel.Reason)
	}
	if rel.RolledBackTo != "" {
		description += fmt.Sprintf("  restored %s", rel.RolledBackTo)
	}
	return description
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}
