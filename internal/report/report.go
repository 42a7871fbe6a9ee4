// Package report renders progress snapshots for the terminal.
package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

// DefaultWidth is the render width used when none is given.
const DefaultWidth = 72

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label      string
	Percent    int // 0..100
	LabelWidth int // pads the label so bars line up; 0 = no padding
	Width      int
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		label := p.Label
		if pad := p.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		result += bodyStyle.Render(label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 6 // "  100%"

	barWidth := p.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := barWidth * p.Percent / 100
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	result += filledStyle.Render(strings.Repeat(" ", filled)) +
		emptyStyle.Render(strings.Repeat(" ", empty))

	pct := dimStyle
	if p.Percent >= 100 {
		pct = doneStyle
	}
	result += pct.Render(fmt.Sprintf("  %3d%%", p.Percent))

	return result
}

// Module renders a module snapshot: an overall bar, then one bar per topic
// followed by the topic's lessons.
func Module(snap progress.ModuleSnapshot, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	labelWidth := 0
	for _, ts := range snap.Topics {
		labelWidth = max(labelWidth, lipgloss.Width(ts.Topic.Title))
	}

	mp := snap.Enrollment.Progress
	lines := []string{
		titleStyle.Render(snap.Module.Title),
		dimStyle.Render(fmt.Sprintf("%d of %d lessons complete", mp.CompletedLessons, mp.TotalLessons)),
		ProgressBar{Label: "Overall", Percent: mp.Percentage, LabelWidth: labelWidth, Width: width}.View(),
		"",
	}

	for _, ts := range snap.Topics {
		pct := 0
		if ts.Progress != nil {
			pct = ts.Progress.Percentage
		}
		lines = append(lines, ProgressBar{Label: ts.Topic.Title, Percent: pct, LabelWidth: labelWidth, Width: width}.View())
		if len(ts.Lessons) == 0 {
			lines = append(lines, dimStyle.Render("    no published lessons"))
			continue
		}
		for _, ls := range ts.Lessons {
			lines = append(lines, lessonLine(ls))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func lessonLine(ls progress.LessonSnapshot) string {
	mark, status := "○", store.StatusNotStarted
	var extra string
	if lp := ls.Progress; lp != nil {
		status = lp.Status
		if lp.Completed {
			mark = "✓"
		} else if lp.Status == store.StatusInProgress {
			mark = "◐"
		}
		if lp.Score != nil {
			extra = fmt.Sprintf("  score %d", *lp.Score)
		}
		if lp.Attempts > 1 {
			extra += fmt.Sprintf(" (%d attempts)", lp.Attempts)
		}
	}

	line := fmt.Sprintf("    %s %s", mark, ls.Lesson.Title)
	meta := fmt.Sprintf("  [%s, %s]%s", ls.Lesson.Type, status, extra)
	if mark == "✓" {
		return doneStyle.Render(line) + dimStyle.Render(meta)
	}
	return bodyStyle.Render(line) + dimStyle.Render(meta)
}
