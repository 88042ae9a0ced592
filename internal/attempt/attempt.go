package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/victornm/examiner/internal/clock"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/telemetry"
)

// Reason an attempt stopped accepting answers.
type Reason string

const (
	ReasonSubmitted Reason = "submitted"
	ReasonExpired   Reason = "expired"
	ReasonAbandoned Reason = "abandoned"
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker returns a Ticker backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Submission is the frozen ledger of a finished attempt handed to the grader.
type Submission struct {
	AttemptID        string
	ExamID           string
	StudentID        string
	Answers          []domain.Answer
	TimeTakenSeconds int
	Reason           Reason
}

// Grader scores a submission authoritatively and persists the resulting response.
type Grader interface {
	Grade(ctx context.Context, s Submission) (*domain.Result, error)
}

type GraderFunc func(ctx context.Context, s Submission) (*domain.Result, error)

func (f GraderFunc) Grade(ctx context.Context, s Submission) (*domain.Result, error) {
	return f(ctx, s)
}

// QuestionStatus is the tracker entry of one question.
type QuestionStatus struct {
	QuestionID string
	Attempted  bool
	Selected   *int
}

// Snapshot is a consistent view of an attempt. It never contains answer keys
// unless the attempt has been graded.
type Snapshot struct {
	AttemptID  string
	ExamID     string
	ExamTitle  string
	Mode       clock.Mode
	State      clock.State
	Index      int
	Total      int
	Remaining  int
	Question   domain.PublicQuestion
	Questions  []QuestionStatus
	Attempted  int
	Result     *domain.Result
	GradeError string
}

// Attempt is one timed sitting of an exam. All of its state is owned by a single goroutine:
// user commands and clock ticks are serialized through it, which makes the submitted flag
// a sufficient guard against grading twice.
type Attempt struct {
	id        string
	studentID string
	exam      domain.Exam
	questions []domain.Question

	grader       Grader
	gradeTimeout time.Duration
	now          func() time.Time

	// Owned by the loop goroutine.
	ledger    *Ledger
	clock     *clock.Clock
	ticker    Ticker
	tickC     <-chan time.Time
	index     int
	submitted bool
	reason    Reason
	result    *domain.Result
	gradeErr  error
	startTime time.Time
	endTime   time.Time

	// closedAt is the unix nano time the attempt stopped accepting answers, 0 while open.
	closedAt atomic.Int64

	cmds     chan func()
	quit     chan struct{}
	quitOnce sync.Once
	exited   chan struct{}
	graded   chan struct{}
}

func (a *Attempt) ID() string        { return a.id }
func (a *Attempt) ExamID() string    { return a.exam.ExamID }
func (a *Attempt) StudentID() string { return a.studentID }

// Closed reports whether the attempt has reached a terminal state.
func (a *Attempt) Closed() bool {
	return a.closedAt.Load() != 0
}

func (a *Attempt) start(interval time.Duration, newTicker func(time.Duration) Ticker) {
	if err := a.clock.Start(); err != nil {
		panic(fmt.Sprintf("attempt %s: %v", a.id, err))
	}

	a.startTime = a.now()
	a.ticker = newTicker(interval)
	a.tickC = a.ticker.C()

	go a.run()
}

func (a *Attempt) run() {
	defer close(a.exited)
	defer a.stopTicker()

	for {
		select {
		case <-a.quit:
			return
		case fn := <-a.cmds:
			fn()
		case <-a.tickC:
			a.tick()
		}
	}
}

// do runs fn on the loop goroutine and waits for it to complete.
func (a *Attempt) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case a.cmds <- cmd:
	case <-a.exited:
		return errors.NotFound("attempt %s is closed", a.id)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Attempt) tick() {
	switch a.clock.Tick() {
	case clock.OutcomeAdvanced:
		a.index = a.clock.Index()
		a.check()
	case clock.OutcomeExpired:
		if err := a.finish(context.Background(), ReasonExpired); err != nil {
			slog.Error("attempt: grading expired attempt failed", "attempt", a.id, "error", err)
		}
	}
}

// finish closes the attempt and grades it. It is the only way into a terminal state.
func (a *Attempt) finish(ctx context.Context, reason Reason) error {
	if a.submitted {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("attempt %s is already submitted", a.id))
	}

	a.submitted = true
	a.reason = reason
	a.stopTicker()
	if a.clock.State() == clock.StateRunning {
		_ = a.clock.Stop()
	}
	a.endTime = a.now()
	a.closedAt.Store(a.endTime.UnixNano())
	telemetry.AttemptsFinished.WithLabelValues(string(reason)).Inc()

	slog.InfoContext(ctx, "attempt: closed", "attempt", a.id, "exam", a.exam.ExamID, "reason", reason)
	return a.grade(ctx)
}

func (a *Attempt) grade(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.gradeTimeout)
	defer cancel()

	res, err := a.grader.Grade(ctx, a.submission())
	if err != nil {
		a.gradeErr = err
		return err
	}

	a.result = res
	a.gradeErr = nil
	close(a.graded)
	return nil
}

func (a *Attempt) submission() Submission {
	return Submission{
		AttemptID:        a.id,
		ExamID:           a.exam.ExamID,
		StudentID:        a.studentID,
		Answers:          a.ledger.Answers(),
		TimeTakenSeconds: int(a.endTime.Sub(a.startTime) / time.Second),
		Reason:           a.reason,
	}
}

func (a *Attempt) stopTicker() {
	if a.ticker == nil {
		return
	}

	a.ticker.Stop()
	a.ticker = nil
	a.tickC = nil
}

func (a *Attempt) check() {
	if a.index < 0 || a.index >= len(a.questions) {
		panic(fmt.Sprintf("attempt %s: index %d out of [0, %d)", a.id, a.index, len(a.questions)))
	}
	if a.clock.Mode() == clock.ModePerQuestion && !a.clock.State().Terminal() && a.clock.Index() != a.index {
		panic(fmt.Sprintf("attempt %s: clock on question %d, attempt on %d", a.id, a.clock.Index(), a.index))
	}
}

func (a *Attempt) closedErr() error {
	return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("attempt %s is %s", a.id, a.reason))
}

// Select toggles option on the current question. questionID must be the current question,
// which guards against answering a question the clock has already moved away from.
// In per-question mode a question whose time has run out can no longer be changed.
func (a *Attempt) Select(ctx context.Context, questionID string, option int) (*int, error) {
	var (
		sel *int
		err error
	)

	if e := a.do(ctx, func() {
		if a.submitted {
			err = a.closedErr()
			return
		}

		cur := a.questions[a.index]
		if cur.QuestionID != questionID {
			err = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("question %s is not the current question", questionID))
			return
		}
		// A revisited question keeps its banked time, an exhausted one is read-only.
		if a.clock.Mode() == clock.ModePerQuestion && a.clock.Remaining() == 0 {
			err = errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("time is up on question %s", questionID))
			return
		}
		if option < 0 || option >= len(cur.Options) {
			err = errors.InvalidArgument("option %d out of range [0, %d)", option, len(cur.Options))
			return
		}

		sel = a.ledger.Toggle(questionID, option)
	}); e != nil {
		return nil, e
	}

	return sel, err
}

// Next moves to the next question, staying on the last one.
func (a *Attempt) Next(ctx context.Context) (*Snapshot, error) {
	return a.move(ctx, func(i int) int { return i + 1 })
}

// Prev moves to the previous question, staying on the first one.
func (a *Attempt) Prev(ctx context.Context) (*Snapshot, error) {
	return a.move(ctx, func(i int) int { return i - 1 })
}

// Goto jumps to question i, clamped to the question range.
func (a *Attempt) Goto(ctx context.Context, i int) (*Snapshot, error) {
	return a.move(ctx, func(int) int { return i })
}

func (a *Attempt) move(ctx context.Context, to func(int) int) (*Snapshot, error) {
	var (
		snap *Snapshot
		err  error
	)

	if e := a.do(ctx, func() {
		if a.submitted {
			err = a.closedErr()
			return
		}

		a.index = min(max(to(a.index), 0), len(a.questions)-1)
		a.clock.Seek(a.index)
		a.check()
		snap = a.snapshot()
	}); e != nil {
		return nil, e
	}

	return snap, err
}

// Submit closes the attempt and grades it. Submitting a graded attempt is rejected,
// submitting an attempt whose grading failed retries the grading with the same answers.
func (a *Attempt) Submit(ctx context.Context) (*domain.Result, error) {
	var (
		res *domain.Result
		err error
	)

	if e := a.do(ctx, func() {
		switch {
		case !a.submitted:
			err = a.finish(ctx, ReasonSubmitted)
		case a.result == nil:
			slog.InfoContext(ctx, "attempt: retrying grading", "attempt", a.id, "previous_error", a.gradeErr)
			err = a.grade(ctx)
		default:
			err = errors.New(errors.CodeAlreadyExists, errors.WithMessagef("attempt %s is already submitted", a.id))
		}
		res = a.result
	}); e != nil {
		return nil, e
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

// Snapshot returns the current view of the attempt.
func (a *Attempt) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	if err := a.do(ctx, func() { snap = a.snapshot() }); err != nil {
		return nil, err
	}

	return snap, nil
}

// Wait blocks until the attempt is graded.
func (a *Attempt) Wait(ctx context.Context) (*domain.Result, error) {
	select {
	case <-a.graded:
		return a.Result(ctx)
	case <-a.exited:
		return nil, errors.NotFound("attempt %s is closed", a.id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the graded result, nil while the attempt is not graded.
func (a *Attempt) Result(ctx context.Context) (*domain.Result, error) {
	var res *domain.Result
	if err := a.do(ctx, func() { res = a.result }); err != nil {
		return nil, err
	}

	return res, nil
}

// Graded reports whether the attempt has a result.
func (a *Attempt) Graded() bool {
	select {
	case <-a.graded:
		return true
	default:
		return false
	}
}

// Close stops the loop and discards the attempt. Unsubmitted answers are lost.
func (a *Attempt) Close() {
	a.quitOnce.Do(func() { close(a.quit) })
	<-a.exited
}

func (a *Attempt) snapshot() *Snapshot {
	cur := a.questions[a.index]
	s := &Snapshot{
		AttemptID: a.id,
		ExamID:    a.exam.ExamID,
		ExamTitle: a.exam.Title,
		Mode:      a.clock.Mode(),
		State:     a.clock.State(),
		Index:     a.index,
		Total:     len(a.questions),
		Remaining: a.clock.Remaining(),
		Question:  cur.Public(),
		Questions: make([]QuestionStatus, 0, len(a.questions)),
		Attempted: a.ledger.Attempted(),
		Result:    a.result,
	}

	for _, q := range a.questions {
		sel, _ := a.ledger.Selected(q.QuestionID)
		s.Questions = append(s.Questions, QuestionStatus{
			QuestionID: q.QuestionID,
			Attempted:  sel != nil,
			Selected:   sel,
		})
	}

	if a.gradeErr != nil {
		s.GradeError = errors.Convert(a.gradeErr).Message
	}

	return s
}
