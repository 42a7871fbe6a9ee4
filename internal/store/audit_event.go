package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// auditRepo implements AuditRepo with ent SQL builders.
type auditRepo struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

var auditEventSelect = []string{
	colID,
	colSequence,
	colKind,
	colEnrollmentID,
	colUnitID,
	colPayload,
	colOccurredAt,
}

func (r *auditRepo) Append(ctx context.Context, rec AuditRecord) (AuditRecord, error) {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return AuditRecord{}, err
	}
	rec.Sequence = seq
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	payload := string(rec.Payload)
	if payload == "" {
		payload = "{}"
	}

	query, args := entsql.Dialect(r.dialect).Insert(tableAuditEvents).
		Columns(auditEventSelect...).
		Values(
			rec.ID,
			rec.Sequence,
			rec.Kind,
			rec.EnrollmentID,
			rec.UnitID,
			payload,
			rec.OccurredAt,
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return AuditRecord{}, fmt.Errorf("insert audit event: %w", err)
	}
	return rec, nil
}

func (r *auditRepo) Query(ctx context.Context, opts QueryOpts) ([]AuditRecord, error) {
	b := entsql.Dialect(r.dialect)
	sel := b.Select(auditEventSelect...).
		From(b.Table(tableAuditEvents)).
		OrderBy(entsql.Desc(colSequence))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT(colSequence, opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT(colSequence, opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE(colOccurredAt, opts.From))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE(colOccurredAt, opts.To))
	}
	if opts.Kind != "" {
		preds = append(preds, entsql.EQ(colKind, opts.Kind))
	}
	if opts.EnrollmentID != uuid.Nil {
		preds = append(preds, entsql.EQ(colEnrollmentID, opts.EnrollmentID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec     AuditRecord
			payload []byte
		)
		err := rows.Scan(
			&rec.ID,
			&rec.Sequence,
			&rec.Kind,
			&rec.EnrollmentID,
			&rec.UnitID,
			&payload,
			&rec.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		rec.Payload = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
