package rollup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learntrack/internal/audit"
	"github.com/abhisek/learntrack/internal/catalog"
)

// Notifier runs recomputes one at a time per (unit, enrollment) and records
// an audit event whenever a unit's completion flag flips. Recording is best
// effort: failures are logged and never fail the recompute.
type Notifier struct {
	engine *Engine
	sink   audit.Sink
	logger *slog.Logger
	locks  *keyLock
	now    func() time.Time
}

// NewNotifier wraps engine. A nil logger uses slog.Default.
func NewNotifier(engine *Engine, sink audit.Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		engine: engine,
		sink:   sink,
		logger: logger,
		locks:  newKeyLock(),
		now:    engine.now,
	}
}

// RecomputeTopic recomputes a topic rollup and emits TopicCompleted or
// TopicReopened on a transition.
func (n *Notifier) RecomputeTopic(ctx context.Context, topicID, enrollmentID uuid.UUID) (TopicResult, error) {
	unlock := n.locks.Lock(unitKey{unit: topicID, enrollment: enrollmentID})
	defer unlock()

	res, err := n.engine.RecomputeTopic(ctx, topicID, enrollmentID)
	if err != nil {
		return res, err
	}

	header := audit.Header{Enrollment: enrollmentID, At: n.now().UTC()}
	counts := audit.Counts{
		CompletedLessons: res.Current.CompletedLessons,
		TotalLessons:     res.Current.TotalLessons,
	}
	switch res.Transition() {
	case BecameComplete:
		n.emit(ctx, audit.TopicCompleted{Header: header, TopicID: topicID, Counts: counts})
	case BecameIncomplete:
		n.emit(ctx, audit.TopicReopened{Header: header, TopicID: topicID, Counts: counts})
	}
	return res, nil
}

// RecomputeModule recomputes a module rollup and emits ModuleCompleted or
// ModuleReopened on a transition.
func (n *Notifier) RecomputeModule(ctx context.Context, moduleID, enrollmentID uuid.UUID) (ModuleResult, error) {
	unlock := n.locks.Lock(unitKey{unit: moduleID, enrollment: enrollmentID})
	defer unlock()

	res, err := n.engine.RecomputeModule(ctx, moduleID, enrollmentID)
	if err != nil {
		return res, err
	}

	header := audit.Header{Enrollment: enrollmentID, At: n.now().UTC()}
	counts := audit.Counts{
		CompletedLessons: res.Current.CompletedLessons,
		TotalLessons:     res.Current.TotalLessons,
	}
	switch res.Transition() {
	case BecameComplete:
		n.emit(ctx, audit.ModuleCompleted{Header: header, ModuleID: moduleID, Counts: counts})
	case BecameIncomplete:
		n.emit(ctx, audit.ModuleReopened{Header: header, ModuleID: moduleID, Counts: counts})
	}
	return res, nil
}

// CascadeResult holds the outcome of a topic-then-module cascade.
type CascadeResult struct {
	Topic  TopicResult
	Module ModuleResult
}

// Cascade recomputes the topic and then the module containing a lesson.
// Missing catalog data skips the affected rollup with a warning; the
// reconciliation sweep repairs it later.
func (n *Notifier) Cascade(ctx context.Context, topicID, moduleID, enrollmentID uuid.UUID) (CascadeResult, error) {
	var out CascadeResult

	topic, err := n.RecomputeTopic(ctx, topicID, enrollmentID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		n.logger.Warn("skip topic rollup", "topic_id", topicID, "enrollment_id", enrollmentID, "err", err)
	case err != nil:
		return out, err
	default:
		out.Topic = topic
	}

	module, err := n.RecomputeModule(ctx, moduleID, enrollmentID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		n.logger.Warn("skip module rollup", "module_id", moduleID, "enrollment_id", enrollmentID, "err", err)
	case err != nil:
		return out, err
	default:
		out.Module = module
	}
	return out, nil
}

// Emit records e on the sink, logging instead of failing on error.
func (n *Notifier) Emit(ctx context.Context, e audit.Event) {
	n.emit(ctx, e)
}

func (n *Notifier) emit(ctx context.Context, e audit.Event) {
	if n.sink == nil {
		return
	}
	if err := n.sink.Record(ctx, e); err != nil {
		n.logger.Warn("failed to record audit event",
			"kind", e.Kind(), "unit_id", e.UnitID(), "enrollment_id", e.EnrollmentID(), "err", err)
	}
}
