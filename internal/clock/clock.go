// Package clock implements the countdown of an exam attempt.
//
// A clock counts whole ticks. It runs in one of two modes fixed at construction:
// exam-wide, a single counter for the whole attempt, or per-question, one counter per
// question that auto-advances to the next question when it runs out.
//
// Per-question counters are banked: leaving a question keeps whatever time it had left,
// and coming back resumes from there. Time is never granted twice.
package clock

import (
	stderrors "errors"
	"fmt"
)

type Mode int

const (
	ModeExam Mode = iota + 1
	ModePerQuestion
)

func (m Mode) String() string {
	switch m {
	case ModeExam:
		return "exam"
	case ModePerQuestion:
		return "per_question"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no more ticks will be counted.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateStopped
}

// Outcome is what a single tick did to the clock.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAdvanced
	OutcomeExpired
)

var (
	ErrNoQuestions    = stderrors.New("clock: per-question mode needs at least one question")
	ErrBadAllotment   = stderrors.New("clock: allotments must be positive")
	ErrNotIdle        = stderrors.New("clock: not idle")
	ErrNotRunning     = stderrors.New("clock: not running")
	ErrNotPerQuestion = stderrors.New("clock: not in per-question mode")
)

type Clock struct {
	mode      Mode
	state     State
	remaining int
	index     int
	// banks holds the ticks left of every question in per-question mode.
	banks []int
}

// New returns an idle clock. A positive total selects exam-wide mode and allotments are ignored,
// otherwise each question runs on its own allotment.
func New(total int, allotments []int) (*Clock, error) {
	if total > 0 {
		return &Clock{mode: ModeExam, remaining: total}, nil
	}

	if len(allotments) == 0 {
		return nil, ErrNoQuestions
	}

	banks := make([]int, len(allotments))
	for i, a := range allotments {
		if a <= 0 {
			return nil, fmt.Errorf("%w: question %d has %d", ErrBadAllotment, i, a)
		}
		banks[i] = a
	}

	return &Clock{
		mode:      ModePerQuestion,
		remaining: banks[0],
		banks:     banks,
	}, nil
}

func (c *Clock) Mode() Mode     { return c.mode }
func (c *Clock) State() State   { return c.state }
func (c *Clock) Remaining() int { return c.remaining }

// Index is the question the per-question counter belongs to. Always 0 in exam-wide mode.
func (c *Clock) Index() int { return c.index }

// Start moves an idle clock to running.
func (c *Clock) Start() error {
	if c.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrNotIdle, c.state)
	}

	c.state = StateRunning
	return nil
}

// Stop moves a running clock to stopped, used on manual submission.
func (c *Clock) Stop() error {
	if c.state != StateRunning {
		return fmt.Errorf("%w: %s", ErrNotRunning, c.state)
	}

	c.state = StateStopped
	return nil
}

// Tick counts one tick. Ticks on a clock that is not running are ignored.
func (c *Clock) Tick() Outcome {
	if c.state != StateRunning {
		return OutcomeNone
	}

	c.remaining--
	if c.mode == ModePerQuestion {
		c.banks[c.index] = max(c.remaining, 0)
	}

	if c.remaining > 0 {
		return OutcomeNone
	}
	c.remaining = 0

	if c.mode == ModePerQuestion && c.index < len(c.banks)-1 {
		c.load(c.index + 1)
		return OutcomeAdvanced
	}

	c.state = StateExpired
	return OutcomeExpired
}

// Seek switches the per-question counter to question i, banking the time left on the current one.
// It is a no-op in exam-wide mode.
func (c *Clock) Seek(i int) {
	if c.mode != ModePerQuestion {
		return
	}
	if i < 0 || i >= len(c.banks) {
		panic(fmt.Sprintf("clock: seek to %d out of [0, %d)", i, len(c.banks)))
	}
	if c.state.Terminal() {
		return
	}

	c.load(i)
}

// Bank returns the ticks left for question i in per-question mode.
func (c *Clock) Bank(i int) (int, error) {
	if c.mode != ModePerQuestion {
		return 0, ErrNotPerQuestion
	}
	if i < 0 || i >= len(c.banks) {
		return 0, fmt.Errorf("clock: question %d out of [0, %d)", i, len(c.banks))
	}

	return c.banks[i], nil
}

func (c *Clock) load(i int) {
	c.index = i
	c.remaining = c.banks[i]
}
