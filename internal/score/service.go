package score

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/event"
	"github.com/victornm/examiner/internal/grading"
	"github.com/victornm/examiner/internal/telemetry"
)

// Exams is the read side of the exam catalogue.
type Exams interface {
	GetExam(ctx context.Context, examID string) (*domain.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]domain.Question, error)
}

// Store persists responses. A response is written once and never updated.
type Store interface {
	// InsertResponse fails with AlreadyExists when the attempt already has a response.
	InsertResponse(ctx context.Context, r *domain.Response) error
	GetResponse(ctx context.Context, responseID string) (*domain.Response, error)
	// ListResponses returns the responses of a student, newest first.
	ListResponses(ctx context.Context, studentID string) ([]domain.ResponseSummary, error)
}

type Config struct {
	EventBus *event.Bus
	Exams    Exams
	Store    Store
	Now      func() time.Time
}

type Service struct {
	eb    *event.Bus
	exams Exams
	store Store
	now   func() time.Time
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		eb:    c.EventBus,
		exams: c.Exams,
		store: c.Store,
		now:   c.Now,
	}
}

// SubmitRequest is a finished answer set.
type SubmitRequest struct {
	// AttemptID identifies the attempt the answers come from. A student's second submission of
	// the same attempt is rejected. Empty for clients that do not track attempts.
	AttemptID        string
	ExamID           string
	StudentID        string
	SubjectID        string
	Answers          []domain.Answer
	TimeTakenSeconds *int
}

func (r SubmitRequest) validate() error {
	switch {
	case r.ExamID == "":
		return errors.InvalidArgument("examId is required")
	case r.StudentID == "":
		return errors.InvalidArgument("studentId is required")
	case r.Answers == nil:
		return errors.InvalidArgument("answers is required")
	case r.TimeTakenSeconds != nil && *r.TimeTakenSeconds < 0:
		return errors.InvalidArgument("timeTakenSeconds must not be negative")
	}

	return nil
}

// Submit grades an answer set against the stored answer keys and records the response.
// Nothing is recorded when the submission is rejected or fails.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (res *domain.Result, err error) {
	start := s.now()
	defer func() {
		telemetry.Submissions.WithLabelValues(outcome(err)).Inc()
		if err == nil {
			telemetry.GradingDuration.Observe(s.now().Sub(start).Seconds())
		}
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	exam, err := s.exams.GetExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if !exam.Published {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef("exam %s is not available", req.ExamID))
	}

	questions, err := s.exams.ListQuestions(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.NotFound("no questions found for exam %s", req.ExamID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate response ID: %w", err)
	}

	res = grading.Grade(questions, req.Answers)
	res.Response.ResponseID = id.String()
	res.Response.AttemptID = req.AttemptID
	res.Response.ExamID = exam.ExamID
	res.Response.ExamTitle = exam.Title
	res.Response.StudentID = req.StudentID
	res.Response.SubjectID = req.SubjectID
	res.Response.TimeTakenSeconds = req.TimeTakenSeconds
	res.Response.SubmitTime = s.now()

	if err := s.store.InsertResponse(ctx, &res.Response); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "score: response created",
		"response", res.Response.ResponseID,
		"attempt", req.AttemptID,
		"exam", exam.ExamID,
		"student", req.StudentID,
		"score", res.Response.Score.String(),
	)

	s.eb.Publish(ctx, domain.EventResponseCreated{
		Response: res.Response,
	})

	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeGraded
	case errors.Is(err, errors.CodeAlreadyExists):
		return telemetry.OutcomeDuplicate
	case errors.Convert(err).Code == errors.CodeInternal:
		return telemetry.OutcomeFailed
	default:
		return telemetry.OutcomeRejected
	}
}

type GetResponseRequest struct {
	ResponseID string
	StudentID  string
}

// GetResponse returns a stored response of the student.
func (s *Service) GetResponse(ctx context.Context, req GetResponseRequest) (*domain.Response, error) {
	r, err := s.store.GetResponse(ctx, req.ResponseID)
	if err != nil {
		return nil, err
	}
	if r.StudentID != req.StudentID {
		return nil, errors.NotFound("response not found: %s", req.ResponseID)
	}

	return r, nil
}

type ListResponsesRequest struct {
	StudentID string
}

func (s *Service) ListResponses(ctx context.Context, req ListResponsesRequest) ([]domain.ResponseSummary, error) {
	return s.store.ListResponses(ctx, req.StudentID)
}

type GetProfileRequest struct {
	StudentID string
}

// GetProfile aggregates the history of a student. Averages are rounded to 2 decimals.
func (s *Service) GetProfile(ctx context.Context, req GetProfileRequest) (*domain.Profile, error) {
	rs, err := s.store.ListResponses(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	p := &domain.Profile{
		StudentID:       req.StudentID,
		ExamsTaken:      len(rs),
		AverageScore:    decimal.Zero,
		HighestScore:    decimal.Zero,
		AverageAccuracy: decimal.Zero,
	}
	if len(rs) == 0 {
		return p, nil
	}

	var totalScore, totalAccuracy decimal.Decimal
	for i, r := range rs {
		totalScore = totalScore.Add(r.Score)
		totalAccuracy = totalAccuracy.Add(grading.Accuracy(r.CorrectCount, r.WrongCount))
		if i == 0 || r.Score.GreaterThan(p.HighestScore) {
			p.HighestScore = r.Score
		}
	}

	n := decimal.NewFromInt(int64(len(rs)))
	p.AverageScore = totalScore.Div(n).Round(grading.ScorePlaces)
	p.AverageAccuracy = totalAccuracy.Div(n).Round(grading.ScorePlaces)

	return p, nil
}
