// Package audit defines the progress audit events and the sinks that record them.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an audit event variant.
type Kind string

const (
	KindLessonStarted   Kind = "lesson_started"
	KindLessonCompleted Kind = "lesson_completed"
	KindQuizSubmitted   Kind = "quiz_submitted"
	KindLessonReset     Kind = "lesson_reset"
	KindTopicCompleted  Kind = "topic_completed"
	KindTopicReopened   Kind = "topic_reopened"
	KindModuleCompleted Kind = "module_completed"
	KindModuleReopened  Kind = "module_reopened"
)

// Event is implemented by every audit event variant.
type Event interface {
	Kind() Kind
	EnrollmentID() uuid.UUID
	// UnitID is the lesson, topic or module the event is about.
	UnitID() uuid.UUID
	OccurredAt() time.Time
}

// Header carries the fields shared by all events.
type Header struct {
	Enrollment uuid.UUID `json:"enrollment_id"`
	At         time.Time `json:"occurred_at"`
}

func (h Header) EnrollmentID() uuid.UUID { return h.Enrollment }
func (h Header) OccurredAt() time.Time { return h.At }

// LessonStarted is recorded when a student opens a lesson for the first time.
type LessonStarted struct {
	Header
	LessonID  uuid.UUID `json:"lesson_id"`
	StudentID uuid.UUID `json:"student_id"`
}

func (LessonStarted) Kind() Kind { return KindLessonStarted }
func (e LessonStarted) UnitID() uuid.UUID { return e.LessonID }

// LessonCompleted is recorded when a lesson becomes complete.
type LessonCompleted struct {
	Header
	LessonID  uuid.UUID `json:"lesson_id"`
	StudentID uuid.UUID `json:"student_id"`
	Score     *int      `json:"score,omitempty"`
}

func (LessonCompleted) Kind() Kind { return KindLessonCompleted }
func (e LessonCompleted) UnitID() uuid.UUID { return e.LessonID }

// QuizSubmitted is recorded for every quiz or assignment submission.
type QuizSubmitted struct {
	Header
	LessonID  uuid.UUID `json:"lesson_id"`
	StudentID uuid.UUID `json:"student_id"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	Attempt   int       `json:"attempt"`
}

func (QuizSubmitted) Kind() Kind { return KindQuizSubmitted }
func (e QuizSubmitted) UnitID() uuid.UUID { return e.LessonID }

// LessonReset is recorded when an instructor resets a lesson's progress.
type LessonReset struct {
	Header
	LessonID     uuid.UUID `json:"lesson_id"`
	WasCompleted bool      `json:"was_completed"`
}

func (LessonReset) Kind() Kind { return KindLessonReset }
func (e LessonReset) UnitID() uuid.UUID { return e.LessonID }

// Counts is the lesson tally of a rollup at transition time.
type Counts struct {
	CompletedLessons int `json:"completed_lessons"`
	TotalLessons     int `json:"total_lessons"`
}

// TopicCompleted fires once when a topic rollup turns complete.
type TopicCompleted struct {
	Header
	TopicID uuid.UUID `json:"topic_id"`
	Counts
}

func (TopicCompleted) Kind() Kind { return KindTopicCompleted }
func (e TopicCompleted) UnitID() uuid.UUID { return e.TopicID }

// TopicReopened fires when a complete topic rollup turns incomplete.
type TopicReopened struct {
	Header
	TopicID uuid.UUID `json:"topic_id"`
	Counts
}

func (TopicReopened) Kind() Kind { return KindTopicReopened }
func (e TopicReopened) UnitID() uuid.UUID { return e.TopicID }

// ModuleCompleted fires once when an enrollment's module rollup turns complete.
type ModuleCompleted struct {
	Header
	ModuleID uuid.UUID `json:"module_id"`
	Counts
}

func (ModuleCompleted) Kind() Kind { return KindModuleCompleted }
func (e ModuleCompleted) UnitID() uuid.UUID { return e.ModuleID }

// ModuleReopened fires when a complete module rollup turns incomplete.
type ModuleReopened struct {
	Header
	ModuleID uuid.UUID `json:"module_id"`
	Counts
}

func (ModuleReopened) Kind() Kind { return KindModuleReopened }
func (e ModuleReopened) UnitID() uuid.UUID { return e.ModuleID }
