// Package exam is the read model of exams and their questions.
package exam

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
)

var (
	// DefaultMarks is awarded on a correct answer when a question does not say otherwise.
	DefaultMarks = decimal.NewFromInt(2)
	// DefaultNegativeMarks is deducted on a wrong answer when a question does not say otherwise.
	DefaultNegativeMarks = decimal.RequireFromString("0.5")
)

const (
	minOptions = 2
	maxOptions = 6
)

type Config struct {
	DB  *pgxpool.Pool
	Now func() time.Time
}

type Service struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		db:  c.DB,
		now: c.Now,
	}
}

// CreateExamRequest represents a request to create an exam with its questions.
type CreateExamRequest struct {
	Title       string
	Description string
	// TotalTimeSeconds is the exam-wide duration, 0 to time every question on its own.
	TotalTimeSeconds int
	Owner            string
	Published        bool
	Questions        []CreateQuestionRequest
}

type CreateQuestionRequest struct {
	Text          string
	Options       []string
	CorrectAnswer int
	// Marks and NegativeMarks fall back to DefaultMarks and DefaultNegativeMarks when nil.
	Marks            *decimal.Decimal
	NegativeMarks    *decimal.Decimal
	Tier             string
	Section          string
	Image            string
	TimeLimitSeconds int
}

func (r CreateExamRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.InvalidArgument("title is required")
	}
	if r.Owner == "" {
		return errors.InvalidArgument("owner is required")
	}
	if r.TotalTimeSeconds < 0 {
		return errors.InvalidArgument("totalTimeSeconds must not be negative")
	}

	for i, q := range r.Questions {
		if err := q.validate(); err != nil {
			return errors.InvalidArgument("question %d: %s", i, errors.Convert(err).Message)
		}
	}

	return nil
}

func (q CreateQuestionRequest) validate() error {
	switch {
	case strings.TrimSpace(q.Text) == "":
		return errors.InvalidArgument("text is required")
	case len(q.Options) < minOptions || len(q.Options) > maxOptions:
		return errors.InvalidArgument("needs between %d and %d options, got %d", minOptions, maxOptions, len(q.Options))
	case q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options):
		return errors.InvalidArgument("correctAnswer %d out of range", q.CorrectAnswer)
	case q.Marks != nil && q.Marks.IsNegative():
		return errors.InvalidArgument("marks must not be negative")
	case q.NegativeMarks != nil && q.NegativeMarks.IsNegative():
		return errors.InvalidArgument("negativeMarks is a magnitude and must not be negative")
	case q.Tier != "" && !slices.Contains(domain.Tiers, q.Tier):
		return errors.InvalidArgument("unknown tier %q", q.Tier)
	case q.TimeLimitSeconds < 0:
		return errors.InvalidArgument("timeLimitSeconds must not be negative")
	}

	return nil
}

func (q CreateQuestionRequest) question(examID string) domain.Question {
	out := domain.Question{
		ExamID:           examID,
		Text:             q.Text,
		Options:          q.Options,
		CorrectAnswer:    q.CorrectAnswer,
		Marks:            DefaultMarks,
		NegativeMarks:    DefaultNegativeMarks,
		Tier:             q.Tier,
		Section:          q.Section,
		Image:            q.Image,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
	if q.Marks != nil {
		out.Marks = *q.Marks
	}
	if q.NegativeMarks != nil {
		out.NegativeMarks = *q.NegativeMarks
	}
	out.Tier, out.Section = out.TierKey(), out.SectionKey()

	return out
}

// CreateExam creates an exam and its questions in a single transaction.
func (s *Service) CreateExam(ctx context.Context, req CreateExamRequest) (*domain.Exam, []domain.Question, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	e := &domain.Exam{
		Title:            req.Title,
		Description:      req.Description,
		TotalTimeSeconds: req.TotalTimeSeconds,
		Owner:            req.Owner,
		Published:        req.Published,
		CreateTime:       s.now(),
	}

	questions, err := s.insertExam(ctx, e, req.Questions)
	if err != nil {
		return nil, nil, err
	}

	return e, questions, nil
}

func (s *Service) insertExam(ctx context.Context, e *domain.Exam, reqs []CreateQuestionRequest) (questions []domain.Question, err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate exam ID: %w", err)
	}
	e.ExamID = id.String()

	questions = make([]domain.Question, 0, len(reqs))
	for _, r := range reqs {
		qid, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate question ID: %w", err)
		}

		q := r.question(e.ExamID)
		q.QuestionID = qid.String()
		questions = append(questions, q)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insExamStmt = `
INSERT INTO exams (exam_id, title, description, total_time_seconds, owner, published, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
		insQuestionStmt = `
INSERT INTO questions (question_id, exam_id, position, text, options, correct_answer,
	marks, negative_marks, tier, section, image, time_limit_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
	)

	_, err = tx.Exec(ctx, insExamStmt, e.ExamID, e.Title, e.Description, e.TotalTimeSeconds, e.Owner, e.Published, e.CreateTime)
	if err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}

	batch := &pgx.Batch{}
	for i, q := range questions {
		batch.Queue(insQuestionStmt, q.QuestionID, q.ExamID, i, q.Text, q.Options, q.CorrectAnswer,
			q.Marks, q.NegativeMarks, q.Tier, q.Section, q.Image, q.TimeLimitSeconds)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert questions: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return questions, nil
}

const examColumns = `exam_id, title, description, total_time_seconds, owner, published, create_time`

func scanExam(r pgx.Row) (domain.Exam, error) {
	var (
		e  domain.Exam
		id uuid.UUID
	)
	err := r.Scan(&id, &e.Title, &e.Description, &e.TotalTimeSeconds, &e.Owner, &e.Published, &e.CreateTime)
	e.ExamID = id.String()
	return e, err
}

// GetExam returns a single exam, drafts included.
func (s *Service) GetExam(ctx context.Context, examID string) (*domain.Exam, error) {
	id, err := uuid.Parse(examID)
	if err != nil {
		return nil, errors.NotFound("exam not found: %s", examID)
	}

	e, err := scanExam(s.db.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE exam_id = $1;`, id))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("exam not found: %s", examID)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	return &e, nil
}

type ListExamsRequest struct {
	// Owner restricts the list to the exams of one owner when set.
	Owner string
	// PublishedOnly hides drafts.
	PublishedOnly bool
}

// ListExams returns exams newest first.
func (s *Service) ListExams(ctx context.Context, req ListExamsRequest) ([]domain.Exam, error) {
	const stmt = `SELECT ` + examColumns + `
FROM exams
WHERE ($1 = '' OR owner = $1) AND (NOT $2 OR published)
ORDER BY create_time DESC;`

	rows, err := s.db.Query(ctx, stmt, req.Owner, req.PublishedOnly)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	exams, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Exam, error) {
		return scanExam(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	return exams, nil
}

// ListQuestions returns the questions of an exam in authoring order, answer keys included.
func (s *Service) ListQuestions(ctx context.Context, examID string) ([]domain.Question, error) {
	id, err := uuid.Parse(examID)
	if err != nil {
		return nil, nil
	}

	const stmt = `
SELECT question_id, text, options, correct_answer, marks, negative_marks, tier, section, image, time_limit_seconds
FROM questions
WHERE exam_id = $1
ORDER BY position;`

	rows, err := s.db.Query(ctx, stmt, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var (
			q   domain.Question
			qid uuid.UUID
		)
		if err := r.Scan(&qid, &q.Text, &q.Options, &q.CorrectAnswer, &q.Marks, &q.NegativeMarks,
			&q.Tier, &q.Section, &q.Image, &q.TimeLimitSeconds); err != nil {
			return domain.Question{}, err
		}
		q.QuestionID = qid.String()
		q.ExamID = examID
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return questions, nil
}
