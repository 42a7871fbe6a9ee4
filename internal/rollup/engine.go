// Package rollup derives topic and module completion from lesson progress.
package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/store"
)

// Percentage returns 100*completed/total rounded half up. A unit that is not
// fully complete never reports 100, so the completion flag and a percentage
// of 100 always agree. Returns 0 when total is 0.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	p := (200*completed + total) / (2 * total)
	if p > 99 {
		p = 99
	}
	return p
}

// TopicResult is the outcome of a topic recompute.
type TopicResult struct {
	Previous *store.TopicProgress // nil when no rollup existed
	Current  store.TopicProgress
	Skipped  bool // topic has no published lessons; nothing was written
}

// Transition reports how the completion flag moved.
func (r TopicResult) Transition() Transition {
	return transitionOf(r.Previous != nil && r.Previous.Completed, r.Current.Completed, r.Skipped)
}

// ModuleResult is the outcome of a module recompute.
type ModuleResult struct {
	Previous store.ModuleProgress
	Current  store.ModuleProgress
	ModuleID uuid.UUID
}

// Transition reports how the completion flag moved.
func (r ModuleResult) Transition() Transition {
	return transitionOf(r.Previous.Completed(), r.Current.Completed(), false)
}

// Transition describes a change of a unit's completion flag.
type Transition int

const (
	Unchanged Transition = iota
	BecameComplete
	BecameIncomplete
)

func transitionOf(was, is, skipped bool) Transition {
	switch {
	case skipped || was == is:
		return Unchanged
	case is:
		return BecameComplete
	default:
		return BecameIncomplete
	}
}

// Engine recomputes materialized rollups from lesson progress. Recomputes
// are idempotent: with no intervening lesson change they rewrite identical
// rows.
type Engine struct {
	repo     store.ProgressRepo
	resolver catalog.Resolver
	now      func() time.Time
}

// NewEngine creates an Engine. now supplies completion timestamps.
func NewEngine(repo store.ProgressRepo, resolver catalog.Resolver, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{repo: repo, resolver: resolver, now: now}
}

// RecomputeTopic rebuilds the rollup of topicID for enrollmentID. Topics
// without published lessons are skipped.
func (e *Engine) RecomputeTopic(ctx context.Context, topicID, enrollmentID uuid.UUID) (TopicResult, error) {
	total, err := e.resolver.LessonCountForTopic(ctx, topicID)
	if err != nil {
		return TopicResult{}, fmt.Errorf("count topic lessons: %w", err)
	}
	if total == 0 {
		return TopicResult{Skipped: true}, nil
	}

	lessonIDs, err := e.resolver.LessonIDsForTopic(ctx, topicID)
	if err != nil {
		return TopicResult{}, fmt.Errorf("list topic lessons: %w", err)
	}
	completed, err := e.repo.CountCompleted(ctx, enrollmentID, lessonIDs)
	if err != nil {
		return TopicResult{}, err
	}
	completed = min(completed, total)

	prev, err := e.repo.TopicProgress(ctx, topicID, enrollmentID)
	if err != nil {
		return TopicResult{}, err
	}

	cur := store.TopicProgress{
		TopicID:          topicID,
		EnrollmentID:     enrollmentID,
		CompletedLessons: completed,
		TotalLessons:     total,
		Percentage:       Percentage(completed, total),
		Completed:        completed == total,
	}
	if cur.Completed {
		cur.CompletedAt = e.carryCompletedAt(prev != nil && prev.Completed, prevCompletedAt(prev))
	}

	if err := e.repo.UpsertTopicProgress(ctx, cur); err != nil {
		return TopicResult{}, err
	}
	return TopicResult{Previous: prev, Current: cur}, nil
}

// RecomputeModule rebuilds the module rollup of enrollmentID from the
// module's full published lesson set.
func (e *Engine) RecomputeModule(ctx context.Context, moduleID, enrollmentID uuid.UUID) (ModuleResult, error) {
	enr, err := e.repo.Enrollment(ctx, enrollmentID)
	if err != nil {
		return ModuleResult{}, err
	}
	if enr.ModuleID != moduleID {
		return ModuleResult{}, fmt.Errorf("enrollment %s is not in module %s: %w", enrollmentID, moduleID, store.ErrNotFound)
	}

	lessonIDs, err := e.resolver.LessonIDsForModule(ctx, moduleID)
	if err != nil {
		return ModuleResult{}, fmt.Errorf("list module lessons: %w", err)
	}
	total := len(lessonIDs)
	completed, err := e.repo.CountCompleted(ctx, enrollmentID, lessonIDs)
	if err != nil {
		return ModuleResult{}, err
	}
	completed = min(completed, total)

	cur := store.ModuleProgress{
		CompletedLessons: completed,
		TotalLessons:     total,
		Percentage:       Percentage(completed, total),
	}
	if cur.Completed() {
		cur.CompletedAt = e.carryCompletedAt(enr.Progress.Completed(), enr.Progress.CompletedAt)
	}

	if err := e.repo.SaveModuleProgress(ctx, enrollmentID, cur); err != nil {
		return ModuleResult{}, err
	}
	return ModuleResult{Previous: enr.Progress, Current: cur, ModuleID: moduleID}, nil
}

// carryCompletedAt keeps the original completion time while a unit stays complete.
func (e *Engine) carryCompletedAt(wasComplete bool, prev *time.Time) *time.Time {
	if wasComplete && prev != nil {
		t := *prev
		return &t
	}
	t := e.now().UTC()
	return &t
}

func prevCompletedAt(tp *store.TopicProgress) *time.Time {
	if tp == nil {
		return nil
	}
	return tp.CompletedAt
}
