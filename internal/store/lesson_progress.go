package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// maxCreateRetries bounds how often a lesson write is retried after losing
// a race to create the same record.
const maxCreateRetries = 3

// errCreateRace signals that another writer created the record between our
// read and our insert.
var errCreateRace = errors.New("lesson progress created concurrently")

// progressRepo implements ProgressRepo with ent SQL builders.
type progressRepo struct {
	db      *sql.DB
	dialect string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *progressRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

var lessonProgressSelect = []string{
	colLessonID,
	colEnrollmentID,
	colStudentID,
	colStatus,
	colCompleted,
	colCompletedAt,
	colWatchTimeSecs,
	colLastPositionSecs,
	colScore,
	colAttempts,
	colStartedAt,
	colUpdatedAt,
}

func scanLessonProgress(s rowScanner) (*LessonProgress, error) {
	var (
		lp          LessonProgress
		status      string
		completedAt sql.NullTime
		startedAt   sql.NullTime
		score       sql.NullInt64
	)
	err := s.Scan(
		&lp.LessonID,
		&lp.EnrollmentID,
		&lp.StudentID,
		&status,
		&lp.Completed,
		&completedAt,
		&lp.WatchTimeSecs,
		&lp.LastPositionSecs,
		&score,
		&lp.Attempts,
		&startedAt,
		&lp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lp.Status = LessonStatus(status)
	lp.CompletedAt = timePtr(completedAt)
	lp.StartedAt = timePtr(startedAt)
	if score.Valid {
		v := int(score.Int64)
		lp.Score = &v
	}
	return &lp, nil
}

func (r *progressRepo) LessonProgress(ctx context.Context, key LessonKey) (*LessonProgress, error) {
	return r.selectLesson(ctx, r.db, key, false)
}

func (r *progressRepo) selectLesson(ctx context.Context, q querier, key LessonKey, lock bool) (*LessonProgress, error) {
	b := r.builder()
	sel := b.Select(lessonProgressSelect...).
		From(b.Table(tableLessonProgresses)).
		Where(entsql.And(
			entsql.EQ(colLessonID, key.LessonID),
			entsql.EQ(colEnrollmentID, key.EnrollmentID),
		))
	if lock && r.dialect == dialect.Postgres {
		sel.ForUpdate()
	}

	query, args := sel.Query()
	lp, err := scanLessonProgress(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query lesson progress: %w", err)
	}
	return lp, nil
}

func (r *progressRepo) UpdateLessonProgress(ctx context.Context, key LessonKey, studentID uuid.UUID, fn func(*LessonProgress) error) (LessonChange, error) {
	create := func() LessonProgress {
		return LessonProgress{
			LessonID:     key.LessonID,
			EnrollmentID: key.EnrollmentID,
			StudentID:    studentID,
			Status:       StatusNotStarted,
		}
	}
	return r.mutateLesson(ctx, key, create, fn)
}

func (r *progressRepo) ResetLessonProgress(ctx context.Context, key LessonKey, at time.Time) (LessonChange, error) {
	return r.mutateLesson(ctx, key, nil, func(lp *LessonProgress) error {
		lp.Reset(at)
		return nil
	})
}

// mutateLesson runs a read-modify-write on one record. When create is nil a
// missing record yields ErrNotFound.
func (r *progressRepo) mutateLesson(ctx context.Context, key LessonKey, create func() LessonProgress, fn func(*LessonProgress) error) (LessonChange, error) {
	for attempt := 0; ; attempt++ {
		change, err := r.mutateLessonOnce(ctx, key, create, fn)
		if errors.Is(err, errCreateRace) && attempt < maxCreateRetries {
			continue
		}
		return change, err
	}
}

func (r *progressRepo) mutateLessonOnce(ctx context.Context, key LessonKey, create func() LessonProgress, fn func(*LessonProgress) error) (LessonChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return LessonChange{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cur, err := r.selectLesson(ctx, tx, key, true)
	if err != nil {
		return LessonChange{}, err
	}

	var change LessonChange
	switch {
	case cur != nil:
		before := *cur
		change.Before = &before
		change.After = *cur
	case create != nil:
		change.After = create()
	default:
		return LessonChange{}, fmt.Errorf("lesson %s in enrollment %s: %w", key.LessonID, key.EnrollmentID, ErrNotFound)
	}

	if err := fn(&change.After); err != nil {
		return LessonChange{}, err
	}

	if change.Before == nil {
		err = r.insertLesson(ctx, tx, &change.After)
	} else {
		err = r.updateLesson(ctx, tx, &change.After)
	}
	if err != nil {
		return LessonChange{}, err
	}

	if err := tx.Commit(); err != nil {
		return LessonChange{}, fmt.Errorf("commit lesson progress: %w", err)
	}
	return change, nil
}

func (r *progressRepo) insertLesson(ctx context.Context, q querier, lp *LessonProgress) error {
	query, args := r.builder().Insert(tableLessonProgresses).
		Columns(lessonProgressSelect...).
		Values(
			lp.LessonID,
			lp.EnrollmentID,
			lp.StudentID,
			string(lp.Status),
			lp.Completed,
			nullTime(lp.CompletedAt),
			lp.WatchTimeSecs,
			lp.LastPositionSecs,
			nullInt(lp.Score),
			lp.Attempts,
			nullTime(lp.StartedAt),
			lp.UpdatedAt,
		).
		OnConflict(
			entsql.ConflictColumns(colLessonID, colEnrollmentID),
			entsql.DoNothing(),
		).
		Query()

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert lesson progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert lesson progress: %w", err)
	}
	if n == 0 {
		return errCreateRace
	}
	return nil
}

func (r *progressRepo) updateLesson(ctx context.Context, q querier, lp *LessonProgress) error {
	query, args := r.builder().Update(tableLessonProgresses).
		Set(colStudentID, lp.StudentID).
		Set(colStatus, string(lp.Status)).
		Set(colCompleted, lp.Completed).
		Set(colCompletedAt, nullTime(lp.CompletedAt)).
		Set(colWatchTimeSecs, lp.WatchTimeSecs).
		Set(colLastPositionSecs, lp.LastPositionSecs).
		Set(colScore, nullInt(lp.Score)).
		Set(colAttempts, lp.Attempts).
		Set(colStartedAt, nullTime(lp.StartedAt)).
		Set(colUpdatedAt, lp.UpdatedAt).
		Where(entsql.And(
			entsql.EQ(colLessonID, lp.LessonID),
			entsql.EQ(colEnrollmentID, lp.EnrollmentID),
		)).
		Query()

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update lesson progress: %w", err)
	}
	return nil
}

func (r *progressRepo) LessonProgressFor(ctx context.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) ([]LessonProgress, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}

	b := r.builder()
	query, args := b.Select(lessonProgressSelect...).
		From(b.Table(tableLessonProgresses)).
		Where(entsql.And(
			entsql.EQ(colEnrollmentID, enrollmentID),
			entsql.In(colLessonID, uuidArgs(lessonIDs)...),
		)).
		OrderBy(colLessonID).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson progress: %w", err)
	}
	defer rows.Close()

	var out []LessonProgress
	for rows.Next() {
		lp, err := scanLessonProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson progress: %w", err)
		}
		out = append(out, *lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson progress: %w", err)
	}
	return out, nil
}

func (r *progressRepo) CountCompleted(ctx context.Context, enrollmentID uuid.UUID, lessonIDs []uuid.UUID) (int, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}

	b := r.builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(tableLessonProgresses)).
		Where(entsql.And(
			entsql.EQ(colEnrollmentID, enrollmentID),
			entsql.EQ(colCompleted, true),
			entsql.In(colLessonID, uuidArgs(lessonIDs)...),
		)).
		Query()

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return n, nil
}

func uuidArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
