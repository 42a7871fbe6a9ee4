package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit        int       // max results (0 = unlimited)
	After        int64     // sequence > After
	Before       int64     // sequence < Before
	From         time.Time // occurred_at >= From
	To           time.Time // occurred_at <= To
	Kind         string    // exact event kind, empty = all
	EnrollmentID uuid.UUID // uuid.Nil = all enrollments
}

// LessonStatus is the lifecycle state of a lesson progress record.
type LessonStatus string

const (
	StatusNotStarted LessonStatus = "not_started"
	StatusInProgress LessonStatus = "in_progress"
	StatusCompleted  LessonStatus = "completed"
)

// LessonKey identifies a lesson progress record.
type LessonKey struct {
	LessonID     uuid.UUID
	EnrollmentID uuid.UUID
}

// LessonProgress is the per-(lesson, enrollment) progress record.
type LessonProgress struct {
	LessonID         uuid.UUID
	EnrollmentID     uuid.UUID
	StudentID        uuid.UUID
	Status           LessonStatus
	Completed        bool
	CompletedAt      *time.Time
	WatchTimeSecs    int
	LastPositionSecs int
	Score            *int // nil until a score is recorded
	Attempts         int
	StartedAt        *time.Time
	UpdatedAt        time.Time
}

// Key returns the record's identifying key.
func (lp *LessonProgress) Key() LessonKey {
	return LessonKey{LessonID: lp.LessonID, EnrollmentID: lp.EnrollmentID}
}

// Reset returns the record to its initial not-started state.
func (lp *LessonProgress) Reset(at time.Time) {
	lp.Status = StatusNotStarted
	lp.Completed = false
	lp.CompletedAt = nil
	lp.WatchTimeSecs = 0
	lp.LastPositionSecs = 0
	lp.Score = nil
	lp.Attempts = 0
	lp.StartedAt = nil
	lp.UpdatedAt = at
}

// LessonChange describes a single lesson progress write.
type LessonChange struct {
	Before *LessonProgress // nil when the write created the record
	After  LessonProgress
}

// Created reports whether the write created the record.
func (c LessonChange) Created() bool {
	return c.Before == nil
}

// CompletionChanged reports whether the write flipped the completion flag.
func (c LessonChange) CompletionChanged() bool {
	was := c.Before != nil && c.Before.Completed
	return was != c.After.Completed
}

// TopicProgress is the per-(topic, enrollment) rollup.
type TopicProgress struct {
	TopicID          uuid.UUID
	EnrollmentID     uuid.UUID
	CompletedLessons int
	TotalLessons     int
	Percentage       int
	Completed        bool
	CompletedAt      *time.Time
}

// ModuleProgress is the module rollup embedded in an enrollment.
type ModuleProgress struct {
	CompletedLessons int
	TotalLessons     int
	Percentage       int
	CompletedAt      *time.Time
}

// Completed reports whether every lesson of the module is complete.
func (m ModuleProgress) Completed() bool {
	return m.TotalLessons > 0 && m.Percentage == 100
}

// Enrollment binds one student to one module and carries the module rollup.
type Enrollment struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	ModuleID       uuid.UUID
	Active         bool
	EnrolledAt     time.Time
	Progress       ModuleProgress
	LastAccessedAt *time.Time
}

// AuditRecord is a persisted audit event.
type AuditRecord struct {
	ID           uuid.UUID
	Sequence     int64
	Kind         string
	EnrollmentID uuid.UUID
	UnitID       uuid.UUID
	Payload      json.RawMessage
	OccurredAt   time.Time
}

// ProgressRepo persists lesson progress, topic rollups and enrollments.
type ProgressRepo interface {
	// LessonProgress returns the record for key, or nil if none exists.
	LessonProgress(ctx context.Context, key LessonKey) (*LessonProgress, error)

	// UpdateLessonProgress fetches the record for key (creating a fresh
	// not-started record owned by studentID if absent), applies fn and
	// persists the result atomically. An error from fn aborts the write.
	UpdateLessonProgress(ctx context.Context, key LessonKey, studentID uuid.UUID, fn func(*LessonProgress) error) (LessonChange, error)

	// ResetLessonProgress returns an existing record to not-started.
	// Returns ErrNotFound if the record does not exist.
	ResetLessonProgress(ctx context.Context, key LessonKey, at time.Time) (LessonChange, error)

	// LessonProgressFor returns the records of enrollmentID for the given lessons.
	LessonProgressFor(ctx context.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) ([]LessonProgress, error)

	// CountCompleted counts completed records of enrollmentID among lessonIDs.
	CountCompleted(ctx context.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) (int, error)

	// TopicProgress returns the rollup for a topic, or nil if none exists.
	TopicProgress(ctx context.Context, topicID, enrollmentID uuid.UUID) (*TopicProgress, error)

	// UpsertTopicProgress creates or replaces a topic rollup.
	UpsertTopicProgress(ctx context.Context, tp TopicProgress) error

	// TopicProgressForEnrollment returns every topic rollup of an enrollment.
	TopicProgressForEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]TopicProgress, error)

	// CreateEnrollment inserts e unless the student is already enrolled in
	// the module, and returns the stored enrollment either way.
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)

	// Enrollment returns the enrollment with id. Returns ErrNotFound if absent.
	Enrollment(ctx context.Context, id uuid.UUID) (*Enrollment, error)

	// EnrollmentFor returns the student's enrollment in a module.
	// Returns ErrNotFound if absent.
	EnrollmentFor(ctx context.Context, studentID, moduleID uuid.UUID) (*Enrollment, error)

	// ActiveEnrollments returns every active enrollment.
	ActiveEnrollments(ctx context.Context) ([]Enrollment, error)

	// EnrollmentExistsAndActive reports whether enrollmentID exists, belongs
	// to studentID and is active.
	EnrollmentExistsAndActive(ctx context.Context, enrollmentID, studentID uuid.UUID) (bool, error)

	// SetEnrollmentActive activates or deactivates an enrollment.
	SetEnrollmentActive(ctx context.Context, id uuid.UUID, active bool) error

	// SaveModuleProgress writes the module rollup onto an enrollment.
	SaveModuleProgress(ctx context.Context, enrollmentID uuid.UUID, mp ModuleProgress) error

	// TouchEnrollment sets the enrollment's last-accessed time.
	TouchEnrollment(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuditRepo provides append and query access to the audit log.
type AuditRepo interface {
	// Append assigns the next global sequence to rec and stores it.
	Append(ctx context.Context, rec AuditRecord) (AuditRecord, error)

	// Query returns audit records newest first.
	Query(ctx context.Context, opts QueryOpts) ([]AuditRecord, error)
}
