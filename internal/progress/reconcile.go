package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/rollup"
)

// ReconcileResult summarizes a reconciliation of one enrollment.
type ReconcileResult struct {
	EnrollmentID  uuid.UUID
	Topics        int // topic rollups rewritten
	Skipped       int // topics without published lessons or missing from the catalog
	Transitions   int // completion flags that flipped
	ModulePercent int
}

// Reconcile recomputes every topic rollup of the enrolled module and then
// the module rollup. Stale rollups left by concurrent writers converge and
// any missed transition is emitted.
func (s *Service) Reconcile(ctx context.Context, enrollmentID uuid.UUID) (ReconcileResult, error) {
	res := ReconcileResult{EnrollmentID: enrollmentID}

	enr, err := s.repo.Enrollment(ctx, enrollmentID)
	if err != nil {
		return res, classify(fmt.Errorf("resolve enrollment: %w", err))
	}
	topicIDs, err := s.resolver.TopicIDsForModule(ctx, enr.ModuleID)
	if err != nil {
		return res, classify(fmt.Errorf("resolve module topics: %w", err))
	}

	for _, topicID := range topicIDs {
		tr, err := s.notifier.RecomputeTopic(ctx, topicID, enrollmentID)
		switch {
		case isNotFound(err):
			s.logger.Warn("skip topic rollup", "topic_id", topicID, "enrollment_id", enrollmentID, "err", err)
			res.Skipped++
			continue
		case err != nil:
			return res, fmt.Errorf("recompute topic %s: %w", topicID, err)
		case tr.Skipped:
			res.Skipped++
			continue
		}
		res.Topics++
		if tr.Transition() != rollup.Unchanged {
			res.Transitions++
		}
	}

	mr, err := s.notifier.RecomputeModule(ctx, enr.ModuleID, enrollmentID)
	if err != nil {
		return res, classify(fmt.Errorf("recompute module: %w", err))
	}
	if mr.Transition() != rollup.Unchanged {
		res.Transitions++
	}
	res.ModulePercent = mr.Current.Percentage
	return res, nil
}

// ReconcileAll reconciles every active enrollment. A failing enrollment is
// logged and does not stop the sweep; all failures are returned joined.
func (s *Service) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	enrollments, err := s.repo.ActiveEnrollments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}

	var (
		results []ReconcileResult
		errs    []error
	)
	for _, enr := range enrollments {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Reconcile(ctx, enr.ID)
		if err != nil {
			s.logger.Warn("reconcile enrollment failed", "enrollment_id", enr.ID, "err", err)
			errs = append(errs, fmt.Errorf("enrollment %s: %w", enr.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
