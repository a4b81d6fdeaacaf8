package testing

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	colorError   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
)

// reportStyles are bound to the renderer of the reporter's writer, so color is only
// emitted when that writer is a terminal.
type reportStyles struct {
	title   lipgloss.Style
	passed  lipgloss.Style
	failed  lipgloss.Style
	errored lipgloss.Style
	skipped lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		passed:  r.NewStyle().Foreground(colorSuccess),
		failed:  r.NewStyle().Foreground(colorError),
		errored: r.NewStyle().Foreground(colorError).Bold(true),
		skipped: r.NewStyle().Foreground(colorWarning),
		muted:   r.NewStyle().Foreground(colorMuted),
		header:  r.NewStyle().Bold(true).Underline(true),
	}
}

func (s reportStyles) forResult(result TestResult) lipgloss.Style {
	switch result {
	case ResultPassed:
		return s.passed
	case ResultFailed:
		return s.failed
	case ResultError:
		return s.errored
	case ResultSkipped:
		return s.skipped
	default:
		return s.muted
	}
}
