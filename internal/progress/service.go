// Package progress records lesson progress and keeps topic and module
// rollups current.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/audit"
	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/rollup"
	"github.com/abhisek/learntrack/internal/store"
)

// Service exposes the progress operations. Every write follows the same
// order: evaluate, persist the lesson record, recompute the topic, recompute
// the module.
type Service struct {
	repo     store.ProgressRepo
	resolver catalog.Resolver
	notifier *rollup.Notifier
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the completion rules.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger used for best-effort warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(repo store.ProgressRepo, resolver catalog.Resolver, notifier *rollup.Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
		policy:   DefaultPolicy(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.policy.Retake.Valid() {
		s.policy.Retake = RetakeKeep
	}
	return s
}

// Policy returns the completion rules in effect.
func (s *Service) Policy() Policy {
	return s.policy
}

// QuizResult is the outcome of a quiz or assignment submission.
type QuizResult struct {
	Score     int
	Passed    bool
	Attempts  int
	Completed bool
}

// Enroll enrolls a student in a module, or reactivates the existing
// enrollment.
func (s *Service) Enroll(ctx context.Context, studentID, moduleID uuid.UUID) (store.Enrollment, error) {
	if studentID == uuid.Nil || moduleID == uuid.Nil {
		return store.Enrollment{}, fmt.Errorf("enroll: student and module are required: %w", ErrInvalidInput)
	}
	lessonIDs, err := s.resolver.LessonIDsForModule(ctx, moduleID)
	if err != nil {
		return store.Enrollment{}, classify(fmt.Errorf("resolve module: %w", err))
	}

	enr, err := s.repo.CreateEnrollment(ctx, store.Enrollment{
		StudentID:  studentID,
		ModuleID:   moduleID,
		Active:     true,
		EnrolledAt: s.now().UTC(),
		Progress:   store.ModuleProgress{TotalLessons: len(lessonIDs)},
	})
	if err != nil {
		return store.Enrollment{}, fmt.Errorf("create enrollment: %w", err)
	}

	if !enr.Active {
		if err := s.repo.SetEnrollmentActive(ctx, enr.ID, true); err != nil {
			return store.Enrollment{}, fmt.Errorf("reactivate enrollment: %w", err)
		}
		enr.Active = true
	}
	return enr, nil
}

// StartLesson marks a lesson as opened. It never cascades.
func (s *Service) StartLesson(ctx context.Context, lessonID, studentID, enrollmentID uuid.UUID) (store.LessonProgress, error) {
	lesson, enr, err := s.resolve(ctx, lessonID, enrollmentID, true)
	if err != nil {
		return store.LessonProgress{}, err
	}
	if enr.StudentID != studentID {
		return store.LessonProgress{}, fmt.Errorf("student %s does not own enrollment %s: %w", studentID, enrollmentID, ErrUnauthorized)
	}

	change, _, err := s.write(ctx, lesson, enr, Input{Signal: SignalStart})
	if err != nil {
		return store.LessonProgress{}, err
	}

	if change.Before == nil || change.Before.Status == store.StatusNotStarted {
		s.notifier.Emit(ctx, audit.LessonStarted{
			Header:    s.header(enrollmentID),
			LessonID:  lessonID,
			StudentID: studentID,
		})
	}
	return change.After, nil
}

// CompleteLesson explicitly completes a lesson, recording an optional score
// and watch time, and recomputes the rollups.
func (s *Service) CompleteLesson(ctx context.Context, lessonID, enrollmentID uuid.UUID, score, watchTimeSecs *int) error {
	lesson, enr, err := s.resolve(ctx, lessonID, enrollmentID, true)
	if err != nil {
		return err
	}

	change, d, err := s.write(ctx, lesson, enr, Input{
		Signal:        SignalComplete,
		Score:         score,
		WatchTimeSecs: watchTimeSecs,
	})
	if err != nil {
		return err
	}

	if change.CompletionChanged() {
		s.notifier.Emit(ctx, audit.LessonCompleted{
			Header:    s.header(enrollmentID),
			LessonID:  lessonID,
			StudentID: enr.StudentID,
			Score:     change.After.Score,
		})
	}
	s.touch(ctx, enrollmentID)
	return s.cascadeIf(ctx, d.Cascade, lesson, enrollmentID)
}

// UpdateVideoProgress records watch time and playhead position for a video
// lesson. It never completes the lesson and never cascades.
func (s *Service) UpdateVideoProgress(ctx context.Context, lessonID, enrollmentID uuid.UUID, watchTimeSecs, lastPositionSecs int) error {
	lesson, enr, err := s.resolve(ctx, lessonID, enrollmentID, true)
	if err != nil {
		return err
	}

	_, _, err = s.write(ctx, lesson, enr, Input{
		Signal:           SignalVideoTick,
		WatchTimeSecs:    &watchTimeSecs,
		LastPositionSecs: &lastPositionSecs,
	})
	return err
}

// UpdateQuizProgress records a quiz or assignment submission. passed, when
// set, overrides the score threshold. Rollups are recomputed when the
// submission passes or flips the completion flag.
func (s *Service) UpdateQuizProgress(ctx context.Context, lessonID, studentID, enrollmentID uuid.UUID, score int, passed *bool) (QuizResult, error) {
	lesson, enr, err := s.resolve(ctx, lessonID, enrollmentID, true)
	if err != nil {
		return QuizResult{}, err
	}
	if enr.StudentID != studentID {
		return QuizResult{}, fmt.Errorf("student %s does not own enrollment %s: %w", studentID, enrollmentID, ErrUnauthorized)
	}

	change, d, err := s.write(ctx, lesson, enr, Input{
		Signal: SignalQuizSubmit,
		Score:  &score,
		Passed: passed,
	})
	if err != nil {
		return QuizResult{}, err
	}

	header := s.header(enrollmentID)
	s.notifier.Emit(ctx, audit.QuizSubmitted{
		Header:    header,
		LessonID:  lessonID,
		StudentID: studentID,
		Score:     score,
		Passed:    d.Passed,
		Attempt:   change.After.Attempts,
	})
	if change.CompletionChanged() && change.After.Completed {
		s.notifier.Emit(ctx, audit.LessonCompleted{
			Header:    header,
			LessonID:  lessonID,
			StudentID: studentID,
			Score:     change.After.Score,
		})
	}
	if d.Passed {
		s.touch(ctx, enrollmentID)
	}

	result := QuizResult{
		Score:     score,
		Passed:    d.Passed,
		Attempts:  change.After.Attempts,
		Completed: change.After.Completed,
	}
	return result, s.cascadeIf(ctx, d.Cascade, lesson, enrollmentID)
}

// ResetLessonProgress returns a lesson record to not-started and recomputes
// the rollups. Privileged; callers enforce the role. Inactive enrollments can
// be reset.
func (s *Service) ResetLessonProgress(ctx context.Context, lessonID, enrollmentID uuid.UUID) error {
	lesson, _, err := s.resolve(ctx, lessonID, enrollmentID, false)
	if err != nil {
		return err
	}

	key := store.LessonKey{LessonID: lessonID, EnrollmentID: enrollmentID}
	change, err := s.repo.ResetLessonProgress(ctx, key, s.now().UTC())
	if err != nil {
		return classify(fmt.Errorf("reset lesson progress: %w", err))
	}

	s.notifier.Emit(ctx, audit.LessonReset{
		Header:       s.header(enrollmentID),
		LessonID:     lessonID,
		WasCompleted: change.Before != nil && change.Before.Completed,
	})
	return s.cascadeIf(ctx, true, lesson, enrollmentID)
}

// resolve loads the lesson and enrollment and checks that progress may be
// recorded: the lesson is published and belongs to the enrolled module.
func (s *Service) resolve(ctx context.Context, lessonID, enrollmentID uuid.UUID, requireActive bool) (catalog.Lesson, store.Enrollment, error) {
	lesson, err := s.resolver.Lesson(ctx, lessonID)
	if err != nil {
		return catalog.Lesson{}, store.Enrollment{}, classify(fmt.Errorf("resolve lesson: %w", err))
	}
	enr, err := s.repo.Enrollment(ctx, enrollmentID)
	if err != nil {
		return catalog.Lesson{}, store.Enrollment{}, classify(fmt.Errorf("resolve enrollment: %w", err))
	}

	switch {
	case requireActive && !enr.Active:
		return catalog.Lesson{}, store.Enrollment{}, fmt.Errorf("enrollment %s is inactive: %w", enrollmentID, ErrInvalidState)
	case lesson.ModuleID != enr.ModuleID:
		return catalog.Lesson{}, store.Enrollment{}, fmt.Errorf("lesson %s is not in module %s: %w", lessonID, enr.ModuleID, ErrInvalidState)
	case !lesson.Published:
		return catalog.Lesson{}, store.Enrollment{}, fmt.Errorf("lesson %s is not published: %w", lessonID, ErrInvalidState)
	}
	return lesson, *enr, nil
}

// write evaluates in against the stored record and persists the decision in
// one atomic read-modify-write.
func (s *Service) write(ctx context.Context, lesson catalog.Lesson, enr store.Enrollment, in Input) (store.LessonChange, Decision, error) {
	var d Decision
	key := store.LessonKey{LessonID: lesson.ID, EnrollmentID: enr.ID}
	change, err := s.repo.UpdateLessonProgress(ctx, key, enr.StudentID, func(lp *store.LessonProgress) error {
		var err error
		d, err = Evaluate(lesson.Type, *lp, in, s.policy)
		if err != nil {
			return err
		}
		d.apply(lp, s.now().UTC())
		return nil
	})
	if err != nil {
		return store.LessonChange{}, Decision{}, fmt.Errorf("record %s: %w", in.Signal, err)
	}
	return change, d, nil
}

// apply copies the decision onto lp and maintains the timestamps.
func (d Decision) apply(lp *store.LessonProgress, at time.Time) {
	wasCompleted := lp.Completed

	lp.Status = d.Status
	lp.Completed = d.Completed
	lp.Score = d.Score
	lp.WatchTimeSecs = d.WatchTimeSecs
	lp.LastPositionSecs = d.LastPositionSecs
	lp.Attempts = d.Attempts
	lp.UpdatedAt = at

	if lp.StartedAt == nil && lp.Status != store.StatusNotStarted {
		lp.StartedAt = &at
	}
	switch {
	case lp.Completed && !wasCompleted:
		lp.CompletedAt = &at
	case !lp.Completed:
		lp.CompletedAt = nil
	}
}

// cascadeIf recomputes the topic and module rollups containing lesson.
func (s *Service) cascadeIf(ctx context.Context, cascade bool, lesson catalog.Lesson, enrollmentID uuid.UUID) error {
	if !cascade {
		return nil
	}
	if _, err := s.notifier.Cascade(ctx, lesson.TopicID, lesson.ModuleID, enrollmentID); err != nil {
		return fmt.Errorf("recompute rollups: %w", err)
	}
	return nil
}

func (s *Service) touch(ctx context.Context, enrollmentID uuid.UUID) {
	if err := s.repo.TouchEnrollment(ctx, enrollmentID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to update last access", "enrollment_id", enrollmentID, "err", err)
	}
}

func (s *Service) header(enrollmentID uuid.UUID) audit.Header {
	return audit.Header{Enrollment: enrollmentID, At: s.now().UTC()}
}

// isNotFound reports whether err is any layer's not-found error.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, store.ErrNotFound) || errors.Is(err, catalog.ErrNotFound)
}
