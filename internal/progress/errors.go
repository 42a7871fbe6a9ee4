package progress

import (
	"errors"
	"fmt"

	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/store"
)

var (
	// ErrNotFound indicates a referenced lesson, topic, module or enrollment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates the operation is not allowed in the current
	// state, e.g. progress on an unpublished lesson or an inactive enrollment.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized indicates the caller does not own the enrollment.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates a malformed argument, such as a score
	// outside 0–100.
	ErrInvalidInput = errors.New("invalid input")
)

// classify maps lower-layer not-found errors onto ErrNotFound while keeping
// the original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
