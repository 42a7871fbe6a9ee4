package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUpdateLessonProgressCreatesRecord(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	key := LessonKey{LessonID: uuid.New(), EnrollmentID: uuid.New()}
	student := uuid.New()

	lp, err := repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, lp)

	change, err := repo.UpdateLessonProgress(ctx, key, student, func(lp *LessonProgress) error {
		lp.Status = StatusInProgress
		lp.StartedAt = &testNow
		lp.UpdatedAt = testNow
		return nil
	})
	require.NoError(t, err)
	assert.True(t, change.Created())
	assert.False(t, change.CompletionChanged())

	lp, err = repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, lp)
	assert.Equal(t, student, lp.StudentID)
	assert.Equal(t, StatusInProgress, lp.Status)
	require.NotNil(t, lp.StartedAt)
	assert.True(t, lp.StartedAt.Equal(testNow))
	assert.Nil(t, lp.Score)
}

func TestUpdateLessonProgressTracksBefore(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	key := LessonKey{LessonID: uuid.New(), EnrollmentID: uuid.New()}
	student := uuid.New()

	_, err := repo.UpdateLessonProgress(ctx, key, student, func(lp *LessonProgress) error {
		lp.Status = StatusInProgress
		lp.UpdatedAt = testNow
		return nil
	})
	require.NoError(t, err)

	score := 80
	change, err := repo.UpdateLessonProgress(ctx, key, student, func(lp *LessonProgress) error {
		lp.Status = StatusCompleted
		lp.Completed = true
		lp.CompletedAt = &testNow
		lp.Score = &score
		lp.Attempts++
		lp.UpdatedAt = testNow
		return nil
	})
	require.NoError(t, err)
	assert.False(t, change.Created())
	require.NotNil(t, change.Before)
	assert.False(t, change.Before.Completed)
	assert.True(t, change.CompletionChanged())

	lp, err := repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, lp.Score)
	assert.Equal(t, 80, *lp.Score)
	assert.Equal(t, 1, lp.Attempts)
}

func TestUpdateLessonProgressAbortsOnError(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	key := LessonKey{LessonID: uuid.New(), EnrollmentID: uuid.New()}

	boom := errors.New("boom")
	_, err := repo.UpdateLessonProgress(ctx, key, uuid.New(), func(*LessonProgress) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	lp, err := repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, lp, "failed mutation must not create a record")
}

func TestResetLessonProgress(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	key := LessonKey{LessonID: uuid.New(), EnrollmentID: uuid.New()}

	_, err := repo.ResetLessonProgress(ctx, key, testNow)
	require.ErrorIs(t, err, ErrNotFound)

	score := 90
	_, err = repo.UpdateLessonProgress(ctx, key, uuid.New(), func(lp *LessonProgress) error {
		lp.Status = StatusCompleted
		lp.Completed = true
		lp.CompletedAt = &testNow
		lp.Score = &score
		lp.Attempts = 2
		lp.WatchTimeSecs = 300
		lp.UpdatedAt = testNow
		return nil
	})
	require.NoError(t, err)

	change, err := repo.ResetLessonProgress(ctx, key, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, change.CompletionChanged())

	lp, err := repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, lp.Status)
	assert.False(t, lp.Completed)
	assert.Nil(t, lp.CompletedAt)
	assert.Nil(t, lp.Score)
	assert.Zero(t, lp.Attempts)
	assert.Zero(t, lp.WatchTimeSecs)
}

func TestConcurrentUpdatesSingleRecord(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	key := LessonKey{LessonID: uuid.New(), EnrollmentID: uuid.New()}
	student := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateLessonProgress(ctx, key, student, func(lp *LessonProgress) error {
				lp.Attempts++
				lp.UpdatedAt = testNow
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lp, err := repo.LessonProgress(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, lp.Attempts)

	n, err := repo.LessonProgressFor(ctx, key.EnrollmentID, []uuid.UUID{key.LessonID})
	require.NoError(t, err)
	assert.Len(t, n, 1)
}

func TestCountCompleted(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	enrollment := uuid.New()
	student := uuid.New()

	lessons := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range lessons {
		done := i < 2
		_, err := repo.UpdateLessonProgress(ctx, LessonKey{LessonID: id, EnrollmentID: enrollment}, student, func(lp *LessonProgress) error {
			lp.Completed = done
			lp.UpdatedAt = testNow
			return nil
		})
		require.NoError(t, err)
	}

	n, err := repo.CountCompleted(ctx, enrollment, lessons)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountCompleted(ctx, enrollment, lessons[2:])
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.CountCompleted(ctx, enrollment, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.CountCompleted(ctx, uuid.New(), lessons)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertTopicProgress(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	topic := uuid.New()
	enrollment := uuid.New()

	tp, err := repo.TopicProgress(ctx, topic, enrollment)
	require.NoError(t, err)
	assert.Nil(t, tp)

	require.NoError(t, repo.UpsertTopicProgress(ctx, TopicProgress{
		TopicID: topic, EnrollmentID: enrollment,
		CompletedLessons: 1, TotalLessons: 2, Percentage: 50,
	}))
	require.NoError(t, repo.UpsertTopicProgress(ctx, TopicProgress{
		TopicID: topic, EnrollmentID: enrollment,
		CompletedLessons: 2, TotalLessons: 2, Percentage: 100,
		Completed: true, CompletedAt: &testNow,
	}))

	tp, err = repo.TopicProgress(ctx, topic, enrollment)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Equal(t, 100, tp.Percentage)
	assert.True(t, tp.Completed)
	require.NotNil(t, tp.CompletedAt)

	all, err := repo.TopicProgressForEnrollment(ctx, enrollment)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateEnrollmentIsIdempotent(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	student := uuid.New()
	module := uuid.New()

	first, err := repo.CreateEnrollment(ctx, Enrollment{
		StudentID: student, ModuleID: module, Active: true, EnrolledAt: testNow,
		Progress: ModuleProgress{TotalLessons: 4},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)

	second, err := repo.CreateEnrollment(ctx, Enrollment{
		StudentID: student, ModuleID: module, Active: true, EnrolledAt: testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 4, second.Progress.TotalLessons)

	got, err := repo.Enrollment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, module, got.ModuleID)

	_, err = repo.Enrollment(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.EnrollmentFor(ctx, student, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollmentActivity(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()
	student := uuid.New()

	e, err := repo.CreateEnrollment(ctx, Enrollment{
		StudentID: student, ModuleID: uuid.New(), Active: true, EnrolledAt: testNow,
	})
	require.NoError(t, err)

	ok, err := repo.EnrollmentExistsAndActive(ctx, e.ID, student)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.EnrollmentExistsAndActive(ctx, e.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "enrollment belongs to another student")

	require.NoError(t, repo.SetEnrollmentActive(ctx, e.ID, false))
	ok, err = repo.EnrollmentExistsAndActive(ctx, e.ID, student)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := repo.ActiveEnrollments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.ErrorIs(t, repo.SetEnrollmentActive(ctx, uuid.New(), true), ErrNotFound)
}

func TestSaveModuleProgressAndTouch(t *testing.T) {
	repo := openTestStore(t).ProgressRepo()
	ctx := context.Background()

	e, err := repo.CreateEnrollment(ctx, Enrollment{
		StudentID: uuid.New(), ModuleID: uuid.New(), Active: true, EnrolledAt: testNow,
	})
	require.NoError(t, err)

	require.NoError(t, repo.SaveModuleProgress(ctx, e.ID, ModuleProgress{
		CompletedLessons: 3, TotalLessons: 3, Percentage: 100, CompletedAt: &testNow,
	}))
	require.NoError(t, repo.TouchEnrollment(ctx, e.ID, testNow))

	got, err := repo.Enrollment(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Progress.Completed())
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, got.LastAccessedAt.Equal(testNow))
}
