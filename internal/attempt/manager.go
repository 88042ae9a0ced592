package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/examiner/internal/clock"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/shuffle"
	"github.com/victornm/examiner/internal/telemetry"
)

const (
	defaultQuestionTime = 30 * time.Second
	defaultTickInterval = time.Second
	defaultGradeTimeout = 10 * time.Second
	defaultRetention    = 10 * time.Minute
	defaultSweep        = time.Minute
)

// Exams is the read side of the exam catalogue.
type Exams interface {
	GetExam(ctx context.Context, examID string) (*domain.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]domain.Question, error)
}

type Config struct {
	Exams  Exams
	Grader Grader

	// DefaultQuestionTime is the allotment of questions without one, in per-question mode.
	DefaultQuestionTime time.Duration
	// TickInterval is the wall-clock length of one clock second.
	TickInterval time.Duration
	GradeTimeout time.Duration
	// Retention is how long a closed attempt stays readable before it is discarded.
	Retention time.Duration
	// SweepInterval is how often closed attempts past retention are discarded.
	SweepInterval time.Duration

	NewTickerFunc func(d time.Duration) Ticker
	Rand          shuffle.Rand
	Now           func() time.Time
}

// Manager holds the attempts in progress. Attempts live in memory only.
type Manager struct {
	c Config

	mu       sync.Mutex
	attempts map[string]*Attempt

	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func NewManager(c Config) *Manager {
	if c.DefaultQuestionTime <= 0 {
		c.DefaultQuestionTime = defaultQuestionTime
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.GradeTimeout <= 0 {
		c.GradeTimeout = defaultGradeTimeout
	}
	if c.Retention <= 0 {
		c.Retention = defaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweep
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = NewTimeTicker
	}
	if c.Rand == nil {
		c.Rand = shuffle.Default
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	m := &Manager{
		c:        c,
		attempts: make(map[string]*Attempt),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweepLoop()

	return m
}

func (m *Manager) sweepLoop() {
	defer close(m.done)

	t := time.NewTicker(m.c.SweepInterval)
	defer t.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-t.C:
			m.Sweep(context.Background())
		}
	}
}

type StartRequest struct {
	ExamID    string
	StudentID string
}

// Start loads the exam, fixes a random question order and starts the clock.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Attempt, error) {
	if req.ExamID == "" {
		return nil, errors.InvalidArgument("examId is required")
	}

	exam, err := m.c.Exams.GetExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if !exam.Published {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef("exam %s is not available", req.ExamID))
	}

	questions, err := m.c.Exams.ListQuestions(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.NotFound("no questions found for exam %s", req.ExamID)
	}

	questions = shuffle.Shuffle(questions, m.c.Rand)

	secs := int(m.c.DefaultQuestionTime / time.Second)
	allotments := make([]int, len(questions))
	for i, q := range questions {
		allotments[i] = secs
		if q.TimeLimitSeconds > 0 {
			allotments[i] = q.TimeLimitSeconds
		}
	}

	clk, err := clock.New(exam.TotalTimeSeconds, allotments)
	if err != nil {
		return nil, fmt.Errorf("attempt: clock: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("attempt: generate ID: %w", err)
	}

	a := &Attempt{
		id:           id.String(),
		studentID:    req.StudentID,
		exam:         *exam,
		questions:    questions,
		grader:       m.c.Grader,
		gradeTimeout: m.c.GradeTimeout,
		now:          m.c.Now,
		ledger:       NewLedger(),
		clock:        clk,
		cmds:         make(chan func()),
		quit:         make(chan struct{}),
		exited:       make(chan struct{}),
		graded:       make(chan struct{}),
	}
	a.start(m.c.TickInterval, m.c.NewTickerFunc)

	m.mu.Lock()
	m.attempts[a.id] = a
	m.mu.Unlock()

	telemetry.ActiveAttempts.Inc()

	slog.InfoContext(ctx, "attempt: started",
		"attempt", a.id,
		"exam", exam.ExamID,
		"student", req.StudentID,
		"mode", clk.Mode(),
		"questions", len(questions),
	)

	return a, nil
}

// Get returns the attempt owned by studentID.
func (m *Manager) Get(attemptID, studentID string) (*Attempt, error) {
	m.mu.Lock()
	a, ok := m.attempts[attemptID]
	m.mu.Unlock()

	if !ok {
		return nil, errors.NotFound("attempt not found: %s", attemptID)
	}
	if a.studentID != studentID {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef("attempt %s belongs to another student", attemptID))
	}

	return a, nil
}

// Abandon discards an attempt. An attempt abandoned before submission is never graded.
func (m *Manager) Abandon(attemptID, studentID string) error {
	a, err := m.Get(attemptID, studentID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	_, ok := m.attempts[attemptID]
	delete(m.attempts, attemptID)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if !a.Closed() {
		telemetry.AttemptsFinished.WithLabelValues(string(ReasonAbandoned)).Inc()
	}
	a.Close()
	telemetry.ActiveAttempts.Dec()
	return nil
}

// Stop ends the sweeper and discards every attempt.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.quit) })
	<-m.done

	m.mu.Lock()
	all := make([]*Attempt, 0, len(m.attempts))
	for id, a := range m.attempts {
		all = append(all, a)
		delete(m.attempts, id)
	}
	m.mu.Unlock()

	m.discard(context.Background(), all)
}

// Sweep discards the attempts closed for longer than the retention period.
func (m *Manager) Sweep(ctx context.Context) {
	cutoff := m.c.Now().Add(-m.c.Retention).UnixNano()

	var expired []*Attempt
	m.mu.Lock()
	for id, a := range m.attempts {
		if at := a.closedAt.Load(); at != 0 && at < cutoff {
			expired = append(expired, a)
			delete(m.attempts, id)
		}
	}
	m.mu.Unlock()

	m.discard(ctx, expired)
}

// discard closes the attempts. A closed attempt whose grading failed gets one last try first.
func (m *Manager) discard(ctx context.Context, attempts []*Attempt) {
	for _, a := range attempts {
		if a.Closed() && !a.Graded() {
			if _, err := a.Submit(ctx); err != nil && !a.Graded() {
				telemetry.AttemptsDiscardedUngraded.Inc()
				slog.ErrorContext(ctx, "attempt: discarding ungraded attempt",
					"attempt", a.id,
					"exam", a.exam.ExamID,
					"student", a.studentID,
					"error", err,
				)
			}
		}

		a.Close()
		telemetry.ActiveAttempts.Dec()
	}
}
