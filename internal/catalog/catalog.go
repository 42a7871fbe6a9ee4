// Package catalog resolves the module → topic → lesson containment graph
// that progress rollups are computed against.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lesson, topic or module is not in the catalog.
var ErrNotFound = errors.New("not found in catalog")

// LessonType determines how a lesson is completed.
type LessonType string

const (
	LessonText         LessonType = "text"
	LessonVideo        LessonType = "video"
	LessonPDF          LessonType = "pdf"
	LessonExternalLink LessonType = "external_link"
	LessonLiveSession  LessonType = "live_session"
	LessonQuiz         LessonType = "quiz"
	LessonAssignment   LessonType = "assignment"
)

// AllLessonTypes returns every lesson type in display order.
func AllLessonTypes() []LessonType {
	return []LessonType{
		LessonText,
		LessonVideo,
		LessonPDF,
		LessonExternalLink,
		LessonLiveSession,
		LessonQuiz,
		LessonAssignment,
	}
}

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	for _, known := range AllLessonTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Scored reports whether lessons of this type are completed by a submission score.
func (t LessonType) Scored() bool {
	return t == LessonQuiz || t == LessonAssignment
}

// Lesson is a single unit of content.
type Lesson struct {
	ID        uuid.UUID
	TopicID   uuid.UUID
	ModuleID  uuid.UUID
	Title     string
	Type      LessonType
	Published bool
}

// Topic groups ordered lessons within a module.
type Topic struct {
	ID       uuid.UUID
	ModuleID uuid.UUID
	Title    string
	Lessons  []Lesson
}

// Module is the unit students enroll in.
type Module struct {
	ID     uuid.UUID
	Title  string
	Topics []Topic
}

// Resolver answers containment and count questions about the catalog.
// Counts and id lists include published lessons only; Lesson and Module
// return unpublished content too so callers can reject it explicitly.
type Resolver interface {
	// Lesson returns the lesson with id. Returns ErrNotFound if absent.
	Lesson(ctx context.Context, id uuid.UUID) (Lesson, error)

	// Module returns the module with id. Returns ErrNotFound if absent.
	Module(ctx context.Context, id uuid.UUID) (Module, error)

	// LessonCountForTopic returns the number of published lessons in a topic.
	LessonCountForTopic(ctx context.Context, topicID uuid.UUID) (int, error)

	// LessonIDsForTopic returns the published lesson ids of a topic.
	LessonIDsForTopic(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error)

	// LessonIDsForModule returns the published lesson ids of every topic in a module.
	LessonIDsForModule(ctx context.Context, moduleID uuid.UUID) ([]uuid.UUID, error)

	// TopicIDsForModule returns the topic ids of a module in order.
	TopicIDsForModule(ctx context.Context, moduleID uuid.UUID) ([]uuid.UUID, error)
}
