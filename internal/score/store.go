package score

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
)

// PostgresStore keeps responses in the responses table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type answerRecord struct {
	QuestionID string `json:"questionId"`
	Selected   *int   `json:"selected"`
}

type bucketRecord struct {
	Score       decimal.Decimal `json:"score"`
	TotalMarks  decimal.Decimal `json:"totalMarks"`
	Correct     int             `json:"correct"`
	Wrong       int             `json:"wrong"`
	Unattempted int             `json:"unattempted"`
}

func toAnswerRecords(as []domain.Answer) []answerRecord {
	out := make([]answerRecord, 0, len(as))
	for _, a := range as {
		out = append(out, answerRecord{QuestionID: a.QuestionID, Selected: a.Selected})
	}
	return out
}

func fromAnswerRecords(rs []answerRecord) []domain.Answer {
	out := make([]domain.Answer, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.Answer{QuestionID: r.QuestionID, Selected: r.Selected})
	}
	return out
}

func toBucketRecords(m map[string]domain.Bucket) map[string]bucketRecord {
	out := make(map[string]bucketRecord, len(m))
	for k, b := range m {
		out[k] = bucketRecord(b)
	}
	return out
}

func fromBucketRecords(m map[string]bucketRecord) map[string]domain.Bucket {
	out := make(map[string]domain.Bucket, len(m))
	for k, b := range m {
		out[k] = domain.Bucket(b)
	}
	return out
}

func (s *PostgresStore) InsertResponse(ctx context.Context, r *domain.Response) error {
	const stmt = `
INSERT INTO responses (response_id, attempt_id, exam_id, exam_title, student_id, subject_id, answers,
	score, total_marks, correct_count, wrong_count, unattempted, tier_scores, section_scores,
	time_taken_seconds, submit_time)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`

	_, err := s.db.Exec(ctx, stmt,
		r.ResponseID, r.AttemptID, r.ExamID, r.ExamTitle, r.StudentID, r.SubjectID, toAnswerRecords(r.Answers),
		r.Score, r.TotalMarks, r.CorrectCount, r.WrongCount, r.Unattempted,
		toBucketRecords(r.TierScores), toBucketRecords(r.SectionScores),
		r.TimeTakenSeconds, r.SubmitTime,
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("attempt %s of student %s is already submitted", r.AttemptID, r.StudentID),
			errors.WithCause(err))
	}

	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetResponse(ctx context.Context, responseID string) (*domain.Response, error) {
	id, err := uuid.Parse(responseID)
	if err != nil {
		return nil, errors.NotFound("response not found: %s", responseID)
	}

	const stmt = `
SELECT response_id, COALESCE(attempt_id, ''), exam_id, exam_title, student_id, COALESCE(subject_id, ''), answers,
	score, total_marks, correct_count, wrong_count, unattempted, tier_scores, section_scores,
	time_taken_seconds, submit_time
FROM responses
WHERE response_id = $1;`

	var (
		r               domain.Response
		rid, examID     uuid.UUID
		answers         []answerRecord
		tiers, sections map[string]bucketRecord
	)
	err = s.db.QueryRow(ctx, stmt, id).Scan(
		&rid, &r.AttemptID, &examID, &r.ExamTitle, &r.StudentID, &r.SubjectID, &answers,
		&r.Score, &r.TotalMarks, &r.CorrectCount, &r.WrongCount, &r.Unattempted, &tiers, &sections,
		&r.TimeTakenSeconds, &r.SubmitTime,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("response not found: %s", responseID)
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}

	r.ResponseID = rid.String()
	r.ExamID = examID.String()
	r.Answers = fromAnswerRecords(answers)
	r.TierScores = fromBucketRecords(tiers)
	r.SectionScores = fromBucketRecords(sections)

	return &r, nil
}

func (s *PostgresStore) ListResponses(ctx context.Context, studentID string) ([]domain.ResponseSummary, error) {
	const stmt = `
SELECT response_id, exam_id, exam_title, score, total_marks, correct_count, wrong_count, unattempted, submit_time
FROM responses
WHERE student_id = $1
ORDER BY submit_time DESC;`

	rows, err := s.db.Query(ctx, stmt, studentID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ResponseSummary, error) {
		var (
			sum         domain.ResponseSummary
			rid, examID uuid.UUID
		)
		if err := r.Scan(&rid, &examID, &sum.ExamTitle, &sum.Score, &sum.TotalMarks,
			&sum.CorrectCount, &sum.WrongCount, &sum.Unattempted, &sum.SubmitTime); err != nil {
			return domain.ResponseSummary{}, err
		}
		sum.ResponseID = rid.String()
		sum.ExamID = examID.String()
		return sum, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	return out, nil
}
