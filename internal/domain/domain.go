package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTier is the tier assigned to questions without one.
	DefaultTier = "I"
	// DefaultSection is the section assigned to questions without one.
	DefaultSection = "General"
)

// Tiers is the closed set of tier tags a question may carry.
var Tiers = []string{"I", "II"}

// Exam represents a published (or draft) examination.
type Exam struct {
	ExamID      string
	Title       string
	Description string
	// TotalTimeSeconds is the exam-wide duration. Zero means every question is timed on its own.
	TotalTimeSeconds int
	Owner            string
	Published        bool
	CreateTime       time.Time
}

// Timed reports whether the exam runs on a single exam-wide clock.
func (e Exam) Timed() bool {
	return e.TotalTimeSeconds > 0
}

type Question struct {
	QuestionID    string
	ExamID        string
	Text          string
	Options       []string
	CorrectAnswer int
	Marks         decimal.Decimal
	NegativeMarks decimal.Decimal
	Tier          string
	Section       string
	Image         string
	// TimeLimitSeconds is the allotment used when the exam has no exam-wide duration.
	TimeLimitSeconds int
}

// TierKey returns the tier bucket of the question.
func (q Question) TierKey() string {
	if q.Tier == "" {
		return DefaultTier
	}
	return q.Tier
}

// SectionKey returns the section bucket of the question.
func (q Question) SectionKey() string {
	if q.Section == "" {
		return DefaultSection
	}
	return q.Section
}

// Public strips the answer key from the question.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		QuestionID:       q.QuestionID,
		Text:             q.Text,
		Options:          q.Options,
		Marks:            q.Marks,
		NegativeMarks:    q.NegativeMarks,
		Tier:             q.TierKey(),
		Section:          q.SectionKey(),
		Image:            q.Image,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}

// PublicQuestion is the view of a question that may leave the server while an attempt is open.
type PublicQuestion struct {
	QuestionID       string
	Text             string
	Options          []string
	Marks            decimal.Decimal
	NegativeMarks    decimal.Decimal
	Tier             string
	Section          string
	Image            string
	TimeLimitSeconds int
}

// Answer is the selected option of a question. A nil Selected means the question was left (or cleared) unanswered.
type Answer struct {
	QuestionID string
	Selected   *int
}

// Bucket aggregates the outcome of a group of questions sharing a tier or a section.
type Bucket struct {
	Score       decimal.Decimal
	TotalMarks  decimal.Decimal
	Correct     int
	Wrong       int
	Unattempted int
}

// Response is the persisted outcome of one graded attempt. It is never mutated after creation.
type Response struct {
	ResponseID       string
	AttemptID        string
	ExamID           string
	ExamTitle        string
	StudentID        string
	SubjectID        string
	Answers          []Answer
	Score            decimal.Decimal
	TotalMarks       decimal.Decimal
	CorrectCount     int
	WrongCount       int
	Unattempted      int
	TierScores       map[string]Bucket
	SectionScores    map[string]Bucket
	TimeTakenSeconds *int
	SubmitTime       time.Time
}

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID    string
	Text          string
	Image         string
	Options       []string
	CorrectAnswer int
	Selected      *int
	Marks         decimal.Decimal
	NegativeMarks decimal.Decimal
	Tier          string
	Section       string
	EarnedMarks   decimal.Decimal
	IsCorrect     bool
}

// Result is a graded attempt together with the figures derived from it.
type Result struct {
	Response       Response
	TotalQuestions int
	// Accuracy is correct / (correct + wrong) in percent.
	Accuracy decimal.Decimal
	// Percentage is score / total marks in percent.
	Percentage decimal.Decimal
	Details    []QuestionResult
}

// ResponseSummary is a history entry of a student's responses.
type ResponseSummary struct {
	ResponseID   string
	ExamID       string
	ExamTitle    string
	Score        decimal.Decimal
	TotalMarks   decimal.Decimal
	CorrectCount int
	WrongCount   int
	Unattempted  int
	SubmitTime   time.Time
}

// Profile aggregates a student's history.
type Profile struct {
	StudentID       string
	ExamsTaken      int
	AverageScore    decimal.Decimal
	HighestScore    decimal.Decimal
	AverageAccuracy decimal.Decimal
}

// Leaderboard represents the best scores of students within an exam.
// The list is sorted by score in descending order.
type Leaderboard struct {
	ExamID  string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	StudentID string
	Score     float64
}
