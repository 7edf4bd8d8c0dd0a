// Package report renders run summaries and per-patch diff previews for the
// console and the TUI.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kingrea/hulapatch/internal/patch"
	"github.com/kingrea/hulapatch/internal/run"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Renderer formats summaries, optionally without styling for plain
// terminals and log capture.
type Renderer struct {
	plain bool
}

// NewRenderer builds a Renderer. plain disables all styling.
func NewRenderer(plain bool) *Renderer {
	return &Renderer{plain: plain}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// Summary renders the final report block for a finished run.
func (r *Renderer) Summary(s run.Summary) string {
	var b strings.Builder

	switch s.Mode {
	case run.ModeApply:
		b.WriteString(r.style(titleStyle, "Patch Summary"))
		b.WriteString("\n")
		for _, result := range s.Results {
			b.WriteString(r.resultLine(result))
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%d/%d patches in effect\n", s.Applied(), s.Attempted()))
		if s.Verified != nil {
			if s.Verified.OK {
				b.WriteString(r.style(okStyle, "Verification passed"))
			} else {
				b.WriteString(r.style(failStyle, fmt.Sprintf("Verification failed: %v", s.Verified.Err)))
			}
			b.WriteString("\n")
		}
	case run.ModeRestore:
		b.WriteString(r.style(titleStyle, "Restore Summary"))
		b.WriteString("\n")
		for _, rel := range s.Restored {
			b.WriteString(fmt.Sprintf("restored %s\n", rel))
		}
		if s.Err != nil {
			b.WriteString(r.style(failStyle, fmt.Sprintf("restore finished with errors: %v", s.Err)))
			b.WriteString("\n")
		} else {
			b.WriteString(fmt.Sprintf("%d original files restored\n", len(s.Restored)))
		}
	case run.ModeVerify:
		b.WriteString(r.style(titleStyle, "Verification"))
		b.WriteString("\n")
		if s.Verified != nil && s.Verified.OK {
			b.WriteString(r.style(okStyle, "pyhula imported and UserApi instantiated"))
		} else if s.Verified != nil {
			b.WriteString(r.style(failStyle, fmt.Sprintf("verification failed: %v", s.Verified.Err)))
			if s.Verified.Output != "" {
				b.WriteString("\n")
				b.WriteString(r.style(detailStyle, s.Verified.Output))
			}
		}
		b.WriteString("\n")
	}

	if s.Phase == run.PhaseAborted && s.Err != nil {
		b.WriteString(r.style(failStyle, fmt.Sprintf("aborted: %v", s.Err)))
		b.WriteString("\n")
	}
	if hint := s.Guidance(); hint != "" {
		b.WriteString(r.style(detailStyle, hint))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) resultLine(result patch.Result) string {
	switch result.Outcome {
	case patch.OutcomeApplied:
		return r.style(okStyle, "+ ") + result.Describe()
	case patch.OutcomeAlreadyApplied:
		return r.style(okStyle, "= ") + result.Describe()
	case patch.OutcomeFileMissing, patch.OutcomePatternNotFound:
		return r.style(skipStyle, "- "+result.Describe())
	default:
		return r.style(failStyle, "! "+result.Describe())
	}
}

// Diff renders a line-level preview of an applied change. Unchanged runs
// longer than a few lines are elided.
func (r *Renderer) Diff(result patch.Result) string {
	if result.Outcome != patch.OutcomeApplied {
		return ""
	}
	diffCfg := diffpatch.New()
	fromChars, toChars, lineIndex := diffCfg.DiffLinesToChars(result.Before, result.After)
	diffs := diffCfg.DiffCharsToLines(diffCfg.DiffMain(fromChars, toChars, false), lineIndex)

	var b strings.Builder
	b.WriteString(r.style(titleStyle, result.Path))
	b.WriteString("\n")
	for _, diff := range diffs {
		lines := strings.Split(strings.TrimSuffix(diff.Text, "\n"), "\n")
		switch diff.Type {
		case diffpatch.DiffInsert:
			for _, line := range lines {
				b.WriteString(r.style(addedStyle, "+ "+line))
				b.WriteString("\n")
			}
		case diffpatch.DiffDelete:
			for _, line := range lines {
				b.WriteString(r.style(removedStyle, "- "+line))
				b.WriteString("\n")
			}
		case diffpatch.DiffEqual:
			b.WriteString(elideEqual(lines))
		}
	}
	return b.String()
}

// elideEqual keeps one context line on each side of a change.
func elideEqual(lines []string) string {
	const context = 1
	var b strings.Builder
	if len(lines) <= 2*context+1 {
		for _, line := range lines {
			b.WriteString("  " + line + "\n")
		}
		return b.String()
	}
	for _, line := range lines[:context] {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString(fmt.Sprintf("  ... %d unchanged lines ...\n", len(lines)-2*context))
	for _, line := range lines[len(lines)-context:] {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}
