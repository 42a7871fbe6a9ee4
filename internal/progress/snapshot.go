package progress

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/store"
)

// ModuleSnapshot is a read-only view of one student's progress in a module.
type ModuleSnapshot struct {
	Enrollment store.Enrollment
	Module     catalog.Module
	Topics     []TopicSnapshot
}

// TopicSnapshot is a topic with its rollup and lesson records.
type TopicSnapshot struct {
	Topic catalog.Topic
	// Progress is nil when no rollup has been written, e.g. for topics
	// without published lessons.
	Progress *store.TopicProgress
	Lessons  []LessonSnapshot
}

// LessonSnapshot pairs a published lesson with its progress record.
type LessonSnapshot struct {
	Lesson   catalog.Lesson
	Progress *store.LessonProgress // nil when the student never interacted
}

// Percentage returns the module completion percentage.
func (m ModuleSnapshot) Percentage() int {
	return m.Enrollment.Progress.Percentage
}

// GetModuleProgress returns the student's module rollup with per-topic and
// per-lesson detail. It writes nothing.
func (s *Service) GetModuleProgress(ctx context.Context, moduleID, studentID uuid.UUID) (ModuleSnapshot, error) {
	enr, err := s.repo.EnrollmentFor(ctx, studentID, moduleID)
	if err != nil {
		return ModuleSnapshot{}, classify(fmt.Errorf("resolve enrollment: %w", err))
	}
	mod, err := s.resolver.Module(ctx, moduleID)
	if err != nil {
		return ModuleSnapshot{}, classify(fmt.Errorf("resolve module: %w", err))
	}

	rollups, err := s.repo.TopicProgressForEnrollment(ctx, enr.ID)
	if err != nil {
		return ModuleSnapshot{}, err
	}
	byTopic := make(map[uuid.UUID]store.TopicProgress, len(rollups))
	for _, tp := range rollups {
		byTopic[tp.TopicID] = tp
	}

	lessonIDs, err := s.resolver.LessonIDsForModule(ctx, moduleID)
	if err != nil {
		return ModuleSnapshot{}, classify(fmt.Errorf("resolve module lessons: %w", err))
	}
	records, err := s.repo.LessonProgressFor(ctx, enr.ID, lessonIDs)
	if err != nil {
		return ModuleSnapshot{}, err
	}
	byLesson := make(map[uuid.UUID]store.LessonProgress, len(records))
	for _, lp := range records {
		byLesson[lp.LessonID] = lp
	}

	snap := ModuleSnapshot{Enrollment: *enr, Module: mod}
	for _, topic := range mod.Topics {
		ts := TopicSnapshot{Topic: topic}
		if tp, ok := byTopic[topic.ID]; ok {
			ts.Progress = &tp
		}
		for _, lesson := range topic.Lessons {
			if !lesson.Published {
				continue
			}
			ls := LessonSnapshot{Lesson: lesson}
			if lp, ok := byLesson[lesson.ID]; ok {
				ls.Progress = &lp
			}
			ts.Lessons = append(ts.Lessons, ls)
		}
		snap.Topics = append(snap.Topics, ts)
	}
	return snap, nil
}
