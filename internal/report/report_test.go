package report

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

func TestProgressBarWidth(t *testing.T) {
	for _, pct := range []int{0, 33, 100, 140} {
		bar := ProgressBar{Label: "basics", Percent: pct, LabelWidth: 8, Width: 40}
		assert.Equal(t, 40, lipgloss.Width(bar.View()), "percent %d", pct)
	}

	narrow := ProgressBar{Label: "a very long topic title", Percent: 50, Width: 10}
	assert.Greater(t, lipgloss.Width(narrow.View()), 10, "bar keeps a minimum width")
}

func TestModule(t *testing.T) {
	score := 85
	text := catalog.Lesson{ID: uuid.New(), Title: "Reading", Type: catalog.LessonText, Published: true}
	quiz := catalog.Lesson{ID: uuid.New(), Title: "Checkpoint", Type: catalog.LessonQuiz, Published: true}

	snap := progress.ModuleSnapshot{
		Module: catalog.Module{Title: "Algebra I"},
		Enrollment: store.Enrollment{Progress: store.ModuleProgress{
			CompletedLessons: 1, TotalLessons: 2, Percentage: 50,
		}},
		Topics: []progress.TopicSnapshot{
			{
				Topic:    catalog.Topic{Title: "Foundations"},
				Progress: &store.TopicProgress{CompletedLessons: 1, TotalLessons: 2, Percentage: 50},
				Lessons: []progress.LessonSnapshot{
					{Lesson: text},
					{Lesson: quiz, Progress: &store.LessonProgress{
						Status: store.StatusCompleted, Completed: true, Score: &score, Attempts: 2,
					}},
				},
			},
			{Topic: catalog.Topic{Title: "Extras"}},
		},
	}

	out := Module(snap, 60)
	for _, want := range []string{
		"Algebra I",
		"1 of 2 lessons complete",
		"Overall",
		"Foundations",
		"Reading",
		"[text, not_started]",
		"Checkpoint",
		"score 85 (2 attempts)",
		"no published lessons",
		"50%",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 9, strings.Count(out, "\n")+1, "one line per row")
}
