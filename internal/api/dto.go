package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/store"
)

// Requests

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	ModuleID  string `json:"module_id" validate:"required,uuid"`
}

type StartLessonRequest struct {
	StudentID    string `json:"student_id" validate:"required,uuid"`
	EnrollmentID string `json:"enrollment_id" validate:"required,uuid"`
}

type CompleteLessonRequest struct {
	StudentID     string `json:"student_id" validate:"required,uuid"`
	EnrollmentID  string `json:"enrollment_id" validate:"required,uuid"`
	Score         *int   `json:"score" validate:"omitempty,min=0,max=100"`
	WatchTimeSecs *int   `json:"watch_time_secs" validate:"omitempty,min=0"`
}

type VideoProgressRequest struct {
	StudentID        string `json:"student_id" validate:"required,uuid"`
	EnrollmentID     string `json:"enrollment_id" validate:"required,uuid"`
	WatchTimeSecs    int    `json:"watch_time_secs" validate:"min=0"`
	LastPositionSecs int    `json:"last_position_secs" validate:"min=0"`
}

type QuizSubmissionRequest struct {
	StudentID    string `json:"student_id" validate:"required,uuid"`
	EnrollmentID string `json:"enrollment_id" validate:"required,uuid"`
	Score        *int   `json:"score" validate:"required,min=0,max=100"`
	Passed       *bool  `json:"passed"`
}

type ResetLessonRequest struct {
	EnrollmentID string `json:"enrollment_id" validate:"required,uuid"`
}

// Responses

type EnrollmentResponse struct {
	ID             uuid.UUID              `json:"id"`
	StudentID      uuid.UUID              `json:"student_id"`
	ModuleID       uuid.UUID              `json:"module_id"`
	Active         bool                   `json:"active"`
	EnrolledAt     time.Time              `json:"enrolled_at"`
	LastAccessedAt *time.Time             `json:"last_accessed_at,omitempty"`
	Progress       ModuleProgressResponse `json:"progress"`
}

type ModuleProgressResponse struct {
	CompletedLessons int        `json:"completed_lessons"`
	TotalLessons     int        `json:"total_lessons"`
	Percentage       int        `json:"percentage"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type LessonProgressResponse struct {
	LessonID         uuid.UUID  `json:"lesson_id"`
	EnrollmentID     uuid.UUID  `json:"enrollment_id"`
	Status           string     `json:"status"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	WatchTimeSecs    int        `json:"watch_time_secs"`
	LastPositionSecs int        `json:"last_position_secs"`
	Score            *int       `json:"score,omitempty"`
	Attempts         int        `json:"attempts"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type QuizResultResponse struct {
	Score     int  `json:"score"`
	Passed    bool `json:"passed"`
	Attempts  int  `json:"attempts"`
	Completed bool `json:"completed"`
}

type TopicProgressResponse struct {
	TopicID          uuid.UUID               `json:"topic_id"`
	Title            string                  `json:"title"`
	CompletedLessons int                     `json:"completed_lessons"`
	TotalLessons     int                     `json:"total_lessons"`
	Percentage       int                     `json:"percentage"`
	Completed        bool                    `json:"completed"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	Lessons          []LessonSummaryResponse `json:"lessons"`
}

type LessonSummaryResponse struct {
	LessonID  uuid.UUID `json:"lesson_id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Completed bool      `json:"completed"`
	Score     *int      `json:"score,omitempty"`
}

type ModuleSnapshotResponse struct {
	ModuleID   uuid.UUID               `json:"module_id"`
	Title      string                  `json:"title"`
	Enrollment EnrollmentResponse      `json:"enrollment"`
	Topics     []TopicProgressResponse `json:"topics"`
}

type ReconcileResponse struct {
	EnrollmentID  uuid.UUID `json:"enrollment_id"`
	Topics        int       `json:"topics"`
	Skipped       int       `json:"skipped"`
	Transitions   int       `json:"transitions"`
	ModulePercent int       `json:"module_percent"`
}

func toEnrollmentResponse(e store.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:             e.ID,
		StudentID:      e.StudentID,
		ModuleID:       e.ModuleID,
		Active:         e.Active,
		EnrolledAt:     e.EnrolledAt,
		LastAccessedAt: e.LastAccessedAt,
		Progress: ModuleProgressResponse{
			CompletedLessons: e.Progress.CompletedLessons,
			TotalLessons:     e.Progress.TotalLessons,
			Percentage:       e.Progress.Percentage,
			Completed:        e.Progress.Completed(),
			CompletedAt:      e.Progress.CompletedAt,
		},
	}
}

func toLessonProgressResponse(lp store.LessonProgress) LessonProgressResponse {
	return LessonProgressResponse{
		LessonID:         lp.LessonID,
		EnrollmentID:     lp.EnrollmentID,
		Status:           string(lp.Status),
		Completed:        lp.Completed,
		CompletedAt:      lp.CompletedAt,
		WatchTimeSecs:    lp.WatchTimeSecs,
		LastPositionSecs: lp.LastPositionSecs,
		Score:            lp.Score,
		Attempts:         lp.Attempts,
		StartedAt:        lp.StartedAt,
		UpdatedAt:        lp.UpdatedAt,
	}
}

func toModuleSnapshotResponse(s progress.ModuleSnapshot) ModuleSnapshotResponse {
	out := ModuleSnapshotResponse{
		ModuleID:   s.Module.ID,
		Title:      s.Module.Title,
		Enrollment: toEnrollmentResponse(s.Enrollment),
		Topics:     make([]TopicProgressResponse, 0, len(s.Topics)),
	}
	for _, ts := range s.Topics {
		tr := TopicProgressResponse{
			TopicID:      ts.Topic.ID,
			Title:        ts.Topic.Title,
			TotalLessons: len(ts.Lessons),
			Lessons:      make([]LessonSummaryResponse, 0, len(ts.Lessons)),
		}
		if tp := ts.Progress; tp != nil {
			tr.CompletedLessons = tp.CompletedLessons
			tr.TotalLessons = tp.TotalLessons
			tr.Percentage = tp.Percentage
			tr.Completed = tp.Completed
			tr.CompletedAt = tp.CompletedAt
		}
		for _, ls := range ts.Lessons {
			lr := LessonSummaryResponse{
				LessonID: ls.Lesson.ID,
				Title:    ls.Lesson.Title,
				Type:     string(ls.Lesson.Type),
				Status:   string(store.StatusNotStarted),
			}
			if lp := ls.Progress; lp != nil {
				lr.Status = string(lp.Status)
				lr.Completed = lp.Completed
				lr.Score = lp.Score
			}
			tr.Lessons = append(tr.Lessons, lr)
		}
		out.Topics = append(out.Topics, tr)
	}
	return out
}
