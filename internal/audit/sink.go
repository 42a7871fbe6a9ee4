package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/abhisek/learntrack/internal/store"
)

// Sink records audit events.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Multi fans an event out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreSink appends events to the audit table.
type StoreSink struct {
	repo store.AuditRepo
}

// NewStoreSink creates a sink backed by repo.
func NewStoreSink(repo store.AuditRepo) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Record(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	_, err = s.repo.Append(ctx, store.AuditRecord{
		Kind:         string(e.Kind()),
		EnrollmentID: e.EnrollmentID(),
		UnitID:       e.UnitID(),
		Payload:      payload,
		OccurredAt:   e.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("append %s event: %w", e.Kind(), err)
	}
	return nil
}

// Memory is an in-process Sink that keeps every event. Useful for tests and
// for callers that inspect what a request emitted.
type Memory struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned from Record when set
}

func (m *Memory) Record(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfKind returns the recorded events of kind k.
func (m *Memory) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops every recorded event.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
