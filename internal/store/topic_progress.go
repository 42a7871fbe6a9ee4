package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

var topicProgressSelect = []string{
	colTopicID,
	colEnrollmentID,
	colCompletedLessons,
	colTotalLessons,
	colPercentage,
	colCompleted,
	colCompletedAt,
}

func scanTopicProgress(s rowScanner) (*TopicProgress, error) {
	var (
		tp          TopicProgress
		completedAt sql.NullTime
	)
	err := s.Scan(
		&tp.TopicID,
		&tp.EnrollmentID,
		&tp.CompletedLessons,
		&tp.TotalLessons,
		&tp.Percentage,
		&tp.Completed,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	tp.CompletedAt = timePtr(completedAt)
	return &tp, nil
}

func (r *progressRepo) TopicProgress(ctx context.Context, topicID, enrollmentID uuid.UUID) (*TopicProgress, error) {
	b := r.builder()
	query, args := b.Select(topicProgressSelect...).
		From(b.Table(tableTopicProgresses)).
		Where(entsql.And(
			entsql.EQ(colTopicID, topicID),
			entsql.EQ(colEnrollmentID, enrollmentID),
		)).
		Query()

	tp, err := scanTopicProgress(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query topic progress: %w", err)
	}
	return tp, nil
}

func (r *progressRepo) UpsertTopicProgress(ctx context.Context, tp TopicProgress) error {
	query, args := r.builder().Insert(tableTopicProgresses).
		Columns(topicProgressSelect...).
		Values(
			tp.TopicID,
			tp.EnrollmentID,
			tp.CompletedLessons,
			tp.TotalLessons,
			tp.Percentage,
			tp.Completed,
			nullTime(tp.CompletedAt),
		).
		OnConflict(
			entsql.ConflictColumns(colTopicID, colEnrollmentID),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded(colCompletedLessons)
				u.SetExcluded(colTotalLessons)
				u.SetExcluded(colPercentage)
				u.SetExcluded(colCompleted)
				u.SetExcluded(colCompletedAt)
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert topic progress: %w", err)
	}
	return nil
}

func (r *progressRepo) TopicProgressForEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]TopicProgress, error) {
	b := r.builder()
	query, args := b.Select(topicProgressSelect...).
		From(b.Table(tableTopicProgresses)).
		Where(entsql.EQ(colEnrollmentID, enrollmentID)).
		OrderBy(colTopicID).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topic progress: %w", err)
	}
	defer rows.Close()

	var out []TopicProgress
	for rows.Next() {
		tp, err := scanTopicProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic progress: %w", err)
		}
		out = append(out, *tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic progress: %w", err)
	}
	return out, nil
}
