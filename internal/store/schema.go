package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names. The tables are declared by hand instead of through
// ent code generation because the progress writes need conflict-aware upserts
// and row locks that are expressed with the ent SQL builders directly.
const (
	tableLessonProgresses = "lesson_progresses"
	tableTopicProgresses  = "topic_progresses"
	tableEnrollments      = "enrollments"
	tableAuditEvents      = "audit_events"

	colID               = "id"
	colLessonID         = "lesson_id"
	colTopicID          = "topic_id"
	colModuleID         = "module_id"
	colEnrollmentID     = "enrollment_id"
	colStudentID        = "student_id"
	colStatus           = "status"
	colCompleted        = "completed"
	colCompletedAt      = "completed_at"
	colWatchTimeSecs    = "watch_time_secs"
	colLastPositionSecs = "last_position_secs"
	colScore            = "score"
	colAttempts         = "attempts"
	colStartedAt        = "started_at"
	colUpdatedAt        = "updated_at"
	colCompletedLessons = "completed_lessons"
	colTotalLessons     = "total_lessons"
	colPercentage       = "percentage"
	colActive           = "active"
	colEnrolledAt       = "enrolled_at"
	colLastAccessedAt   = "last_accessed_at"
	colSequence         = "sequence"
	colKind             = "kind"
	colUnitID           = "unit_id"
	colPayload          = "payload"
	colOccurredAt       = "occurred_at"
)

var (
	// lessonProgressesColumns holds the columns for the "lesson_progresses" table.
	lessonProgressesColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colLessonID, Type: field.TypeUUID},
		{Name: colEnrollmentID, Type: field.TypeUUID},
		{Name: colStudentID, Type: field.TypeUUID},
		{Name: colStatus, Type: field.TypeString, Size: 16},
		{Name: colCompleted, Type: field.TypeBool},
		{Name: colCompletedAt, Type: field.TypeTime, Nullable: true},
		{Name: colWatchTimeSecs, Type: field.TypeInt},
		{Name: colLastPositionSecs, Type: field.TypeInt},
		{Name: colScore, Type: field.TypeInt, Nullable: true},
		{Name: colAttempts, Type: field.TypeInt},
		{Name: colStartedAt, Type: field.TypeTime, Nullable: true},
		{Name: colUpdatedAt, Type: field.TypeTime},
	}
	// lessonProgressesTable holds the schema information for the "lesson_progresses" table.
	lessonProgressesTable = &schema.Table{
		Name:       tableLessonProgresses,
		Columns:    lessonProgressesColumns,
		PrimaryKey: []*schema.Column{lessonProgressesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "lessonprogress_lesson_id_enrollment_id",
				Unique:  true,
				Columns: []*schema.Column{lessonProgressesColumns[1], lessonProgressesColumns[2]},
			},
			{
				Name:    "lessonprogress_enrollment_id_completed",
				Unique:  false,
				Columns: []*schema.Column{lessonProgressesColumns[2], lessonProgressesColumns[5]},
			},
		},
	}

	// topicProgressesColumns holds the columns for the "topic_progresses" table.
	topicProgressesColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colTopicID, Type: field.TypeUUID},
		{Name: colEnrollmentID, Type: field.TypeUUID},
		{Name: colCompletedLessons, Type: field.TypeInt},
		{Name: colTotalLessons, Type: field.TypeInt},
		{Name: colPercentage, Type: field.TypeInt},
		{Name: colCompleted, Type: field.TypeBool},
		{Name: colCompletedAt, Type: field.TypeTime, Nullable: true},
	}
	// topicProgressesTable holds the schema information for the "topic_progresses" table.
	topicProgressesTable = &schema.Table{
		Name:       tableTopicProgresses,
		Columns:    topicProgressesColumns,
		PrimaryKey: []*schema.Column{topicProgressesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "topicprogress_topic_id_enrollment_id",
				Unique:  true,
				Columns: []*schema.Column{topicProgressesColumns[1], topicProgressesColumns[2]},
			},
			{
				Name:    "topicprogress_enrollment_id",
				Unique:  false,
				Columns: []*schema.Column{topicProgressesColumns[2]},
			},
		},
	}

	// enrollmentsColumns holds the columns for the "enrollments" table. The
	// module rollup is embedded in the enrollment row.
	enrollmentsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeUUID},
		{Name: colStudentID, Type: field.TypeUUID},
		{Name: colModuleID, Type: field.TypeUUID},
		{Name: colActive, Type: field.TypeBool},
		{Name: colEnrolledAt, Type: field.TypeTime},
		{Name: colCompletedLessons, Type: field.TypeInt},
		{Name: colTotalLessons, Type: field.TypeInt},
		{Name: colPercentage, Type: field.TypeInt},
		{Name: colCompletedAt, Type: field.TypeTime, Nullable: true},
		{Name: colLastAccessedAt, Type: field.TypeTime, Nullable: true},
	}
	// enrollmentsTable holds the schema information for the "enrollments" table.
	enrollmentsTable = &schema.Table{
		Name:       tableEnrollments,
		Columns:    enrollmentsColumns,
		PrimaryKey: []*schema.Column{enrollmentsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "enrollment_student_id_module_id",
				Unique:  true,
				Columns: []*schema.Column{enrollmentsColumns[1], enrollmentsColumns[2]},
			},
			{
				Name:    "enrollment_active",
				Unique:  false,
				Columns: []*schema.Column{enrollmentsColumns[3]},
			},
		},
	}

	// auditEventsColumns holds the columns for the "audit_events" table.
	auditEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeUUID},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colKind, Type: field.TypeString, Size: 32},
		{Name: colEnrollmentID, Type: field.TypeUUID},
		{Name: colUnitID, Type: field.TypeUUID},
		{Name: colPayload, Type: field.TypeJSON},
		{Name: colOccurredAt, Type: field.TypeTime},
	}
	// auditEventsTable holds the schema information for the "audit_events" table.
	auditEventsTable = &schema.Table{
		Name:       tableAuditEvents,
		Columns:    auditEventsColumns,
		PrimaryKey: []*schema.Column{auditEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "auditevent_enrollment_id",
				Unique:  false,
				Columns: []*schema.Column{auditEventsColumns[3]},
			},
			{
				Name:    "auditevent_occurred_at",
				Unique:  false,
				Columns: []*schema.Column{auditEventsColumns[6]},
			},
		},
	}

	// tables holds all the tables in the schema.
	tables = []*schema.Table{
		lessonProgressesTable,
		topicProgressesTable,
		enrollmentsTable,
		auditEventsTable,
	}
)
