package progress

import (
	"fmt"

	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/store"
)

// DefaultPassThreshold is the minimum quiz score that completes a lesson.
const DefaultPassThreshold = 60

// Signal is a progress event submitted for a lesson.
type Signal string

const (
	SignalStart      Signal = "start"
	SignalComplete   Signal = "complete"
	SignalVideoTick  Signal = "video_tick"
	SignalQuizSubmit Signal = "quiz_submit"
)

// RetakePolicy decides whether a failing retake can revoke a completion.
type RetakePolicy string

const (
	// RetakeKeep never revokes a completion; later scores are still recorded.
	RetakeKeep RetakePolicy = "keep"
	// RetakeLatest makes the newest evaluation authoritative.
	RetakeLatest RetakePolicy = "latest"
)

// Valid reports whether p is a known policy.
func (p RetakePolicy) Valid() bool {
	return p == RetakeKeep || p == RetakeLatest
}

// Policy holds the completion rules shared by all evaluations.
type Policy struct {
	PassThreshold int
	Retake        RetakePolicy
}

// DefaultPolicy returns the default completion rules.
func DefaultPolicy() Policy {
	return Policy{PassThreshold: DefaultPassThreshold, Retake: RetakeKeep}
}

// Input is one signal with its payload. Unused fields are ignored.
type Input struct {
	Signal           Signal
	Score            *int  // complete (optional) and quiz_submit (required)
	Passed           *bool // quiz_submit: explicit pass/fail override
	WatchTimeSecs    *int  // cumulative seconds watched
	LastPositionSecs *int  // video_tick: playhead position
}

// Decision is the next lesson state produced by Evaluate.
type Decision struct {
	Status           store.LessonStatus
	Completed        bool
	Score            *int
	WatchTimeSecs    int
	LastPositionSecs int
	Attempts         int

	// Passed is the outcome of a quiz submission.
	Passed bool
	// Cascade reports whether topic and module rollups must be recomputed.
	Cascade bool
}

// Evaluate decides the next state of a lesson given its type, its current
// progress and a signal. It has no side effects.
func Evaluate(lt catalog.LessonType, cur store.LessonProgress, in Input, p Policy) (Decision, error) {
	d := Decision{
		Status:           cur.Status,
		Completed:        cur.Completed,
		Score:            cur.Score,
		WatchTimeSecs:    cur.WatchTimeSecs,
		LastPositionSecs: cur.LastPositionSecs,
		Attempts:         cur.Attempts,
	}
	if d.Status == "" {
		d.Status = store.StatusNotStarted
	}

	switch in.Signal {
	case SignalStart:
		if d.Status == store.StatusNotStarted {
			d.Status = store.StatusInProgress
		}

	case SignalVideoTick:
		if lt != catalog.LessonVideo {
			return Decision{}, fmt.Errorf("video progress on %s lesson: %w", lt, ErrInvalidState)
		}
		if in.WatchTimeSecs == nil {
			return Decision{}, fmt.Errorf("watch time is required: %w", ErrInvalidInput)
		}
		if err := applyWatch(&d, in); err != nil {
			return Decision{}, err
		}
		if !d.Completed {
			d.Status = store.StatusInProgress
		}

	case SignalComplete:
		if in.Score != nil {
			if err := checkScore(*in.Score); err != nil {
				return Decision{}, err
			}
			d.Score = copyInt(in.Score)
		}
		if err := applyWatch(&d, in); err != nil {
			return Decision{}, err
		}
		d.Completed = true
		d.Status = store.StatusCompleted
		d.Passed = true
		d.Cascade = true

	case SignalQuizSubmit:
		if !lt.Scored() {
			return Decision{}, fmt.Errorf("submission on %s lesson: %w", lt, ErrInvalidState)
		}
		if in.Score == nil {
			return Decision{}, fmt.Errorf("score is required: %w", ErrInvalidInput)
		}
		if err := checkScore(*in.Score); err != nil {
			return Decision{}, err
		}

		d.Score = copyInt(in.Score)
		d.Attempts = cur.Attempts + 1
		d.Passed = *in.Score >= p.PassThreshold
		if in.Passed != nil {
			d.Passed = *in.Passed
		}

		switch {
		case d.Passed:
			d.Completed = true
		case p.Retake == RetakeLatest:
			d.Completed = false
		}
		if d.Completed {
			d.Status = store.StatusCompleted
		} else {
			d.Status = store.StatusInProgress
		}
		d.Cascade = d.Passed || d.Completed != cur.Completed

	default:
		return Decision{}, fmt.Errorf("unknown signal %q: %w", in.Signal, ErrInvalidInput)
	}

	return d, nil
}

// applyWatch records watch time as the maximum reported cumulative value and
// the latest playhead position.
func applyWatch(d *Decision, in Input) error {
	if in.WatchTimeSecs != nil {
		if *in.WatchTimeSecs < 0 {
			return fmt.Errorf("watch time %d: %w", *in.WatchTimeSecs, ErrInvalidInput)
		}
		d.WatchTimeSecs = max(d.WatchTimeSecs, *in.WatchTimeSecs)
	}
	if in.LastPositionSecs != nil {
		if *in.LastPositionSecs < 0 {
			return fmt.Errorf("position %d: %w", *in.LastPositionSecs, ErrInvalidInput)
		}
		d.LastPositionSecs = *in.LastPositionSecs
	}
	return nil
}

func checkScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score %d outside 0-100: %w", score, ErrInvalidInput)
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
