package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var enrollmentSelect = []string{
	colID,
	colStudentID,
	colModuleID,
	colActive,
	colEnrolledAt,
	colCompletedLessons,
	colTotalLessons,
	colPercentage,
	colCompletedAt,
	colLastAccessedAt,
}

func scanEnrollment(s rowScanner) (*Enrollment, error) {
	var (
		e            Enrollment
		completedAt  sql.NullTime
		lastAccessed sql.NullTime
	)
	err := s.Scan(
		&e.ID,
		&e.StudentID,
		&e.ModuleID,
		&e.Active,
		&e.EnrolledAt,
		&e.Progress.CompletedLessons,
		&e.Progress.TotalLessons,
		&e.Progress.Percentage,
		&completedAt,
		&lastAccessed,
	)
	if err != nil {
		return nil, err
	}
	e.Progress.CompletedAt = timePtr(completedAt)
	e.LastAccessedAt = timePtr(lastAccessed)
	return &e, nil
}

func (r *progressRepo) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query, args := r.builder().Insert(tableEnrollments).
		Columns(enrollmentSelect...).
		Values(
			e.ID,
			e.StudentID,
			e.ModuleID,
			e.Active,
			e.EnrolledAt,
			e.Progress.CompletedLessons,
			e.Progress.TotalLessons,
			e.Progress.Percentage,
			nullTime(e.Progress.CompletedAt),
			nullTime(e.LastAccessedAt),
		).
		OnConflict(
			entsql.ConflictColumns(colStudentID, colModuleID),
			entsql.DoNothing(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return Enrollment{}, fmt.Errorf("insert enrollment: %w", err)
	}

	stored, err := r.EnrollmentFor(ctx, e.StudentID, e.ModuleID)
	if err != nil {
		return Enrollment{}, err
	}
	return *stored, nil
}

func (r *progressRepo) Enrollment(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	e, err := r.selectEnrollment(ctx, entsql.EQ(colID, id))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("enrollment %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (r *progressRepo) EnrollmentFor(ctx context.Context, studentID, moduleID uuid.UUID) (*Enrollment, error) {
	e, err := r.selectEnrollment(ctx, entsql.And(
		entsql.EQ(colStudentID, studentID),
		entsql.EQ(colModuleID, moduleID),
	))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("enrollment of student %s in module %s: %w", studentID, moduleID, ErrNotFound)
	}
	return e, nil
}

func (r *progressRepo) selectEnrollment(ctx context.Context, where *entsql.Predicate) (*Enrollment, error) {
	b := r.builder()
	query, args := b.Select(enrollmentSelect...).
		From(b.Table(tableEnrollments)).
		Where(where).
		Query()

	e, err := scanEnrollment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query enrollment: %w", err)
	}
	return e, nil
}

func (r *progressRepo) ActiveEnrollments(ctx context.Context) ([]Enrollment, error) {
	b := r.builder()
	query, args := b.Select(enrollmentSelect...).
		From(b.Table(tableEnrollments)).
		Where(entsql.EQ(colActive, true)).
		OrderBy(colEnrolledAt).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active enrollments: %w", err)
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

func (r *progressRepo) EnrollmentExistsAndActive(ctx context.Context, enrollmentID, studentID uuid.UUID) (bool, error) {
	b := r.builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(tableEnrollments)).
		Where(entsql.And(
			entsql.EQ(colID, enrollmentID),
			entsql.EQ(colStudentID, studentID),
			entsql.EQ(colActive, true),
		)).
		Query()

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return n > 0, nil
}

func (r *progressRepo) SetEnrollmentActive(ctx context.Context, id uuid.UUID, active bool) error {
	query, args := r.builder().Update(tableEnrollments).
		Set(colActive, active).
		Where(entsql.EQ(colID, id)).
		Query()
	return r.execEnrollmentUpdate(ctx, id, query, args)
}

func (r *progressRepo) SaveModuleProgress(ctx context.Context, enrollmentID uuid.UUID, mp ModuleProgress) error {
	query, args := r.builder().Update(tableEnrollments).
		Set(colCompletedLessons, mp.CompletedLessons).
		Set(colTotalLessons, mp.TotalLessons).
		Set(colPercentage, mp.Percentage).
		Set(colCompletedAt, nullTime(mp.CompletedAt)).
		Where(entsql.EQ(colID, enrollmentID)).
		Query()
	return r.execEnrollmentUpdate(ctx, enrollmentID, query, args)
}

func (r *progressRepo) TouchEnrollment(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args := r.builder().Update(tableEnrollments).
		Set(colLastAccessedAt, at).
		Where(entsql.EQ(colID, id)).
		Query()
	return r.execEnrollmentUpdate(ctx, id, query, args)
}

func (r *progressRepo) execEnrollmentUpdate(ctx context.Context, id uuid.UUID, query string, args []any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("enrollment %s: %w", id, ErrNotFound)
	}
	return nil
}
