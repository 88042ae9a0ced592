package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/attempt"
	"github.com/victornm/examiner/internal/domain"
)

// Wire representations. Scores are sent as JSON numbers.

type (
	Exam struct {
		ExamID           string    `json:"examId"`
		Title            string    `json:"title"`
		Description      string    `json:"description"`
		TotalTimeSeconds int       `json:"totalTimeSeconds"`
		Owner            string    `json:"owner"`
		Published        bool      `json:"published"`
		CreateTime       time.Time `json:"createTime"`
	}

	Question struct {
		QuestionID       string   `json:"questionId"`
		Question         string   `json:"question"`
		Options          []string `json:"options"`
		Marks            float64  `json:"marks"`
		NegativeMarks    float64  `json:"negativeMarks"`
		Tier             string   `json:"tier"`
		Section          string   `json:"section"`
		Image            string   `json:"image,omitempty"`
		TimeLimitSeconds int      `json:"timeLimitSeconds,omitempty"`
	}

	Answer struct {
		QuestionID string `json:"questionId" mapstructure:"questionId"`
		Selected   *int   `json:"selected" mapstructure:"selected"`
	}

	Bucket struct {
		Score       float64 `json:"score"`
		TotalMarks  float64 `json:"totalMarks"`
		Correct     int     `json:"correct"`
		Wrong       int     `json:"wrong"`
		Unattempted int     `json:"unattempted"`
	}

	QuestionResult struct {
		QuestionID    string   `json:"questionId"`
		Question      string   `json:"question"`
		Image         string   `json:"image,omitempty"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correctAnswer"`
		Selected      *int     `json:"selected"`
		Marks         float64  `json:"marks"`
		NegativeMarks float64  `json:"negativeMarks"`
		Tier          string   `json:"tier"`
		Section       string   `json:"section"`
		EarnedMarks   float64  `json:"earnedMarks"`
		IsCorrect     bool     `json:"isCorrect"`
	}

	Result struct {
		ResponseID       string            `json:"responseId"`
		AttemptID        string            `json:"attemptId,omitempty"`
		ExamID           string            `json:"examId"`
		ExamTitle        string            `json:"examTitle"`
		Score            float64           `json:"score"`
		TotalMarks       float64           `json:"totalMarks"`
		CorrectCount     int               `json:"correctCount"`
		WrongCount       int               `json:"wrongCount"`
		Unattempted      int               `json:"unattempted"`
		TotalQuestions   int               `json:"totalQuestions"`
		Accuracy         float64           `json:"accuracy"`
		Percentage       float64           `json:"percentage"`
		TierScores       map[string]Bucket `json:"tierScores"`
		SectionScores    map[string]Bucket `json:"sectionScores"`
		TimeTakenSeconds *int              `json:"timeTakenSeconds,omitempty"`
		SubmitTime       time.Time         `json:"submitTime"`
		DetailedResults  []QuestionResult  `json:"detailedResults"`
	}

	Response struct {
		ResponseID       string            `json:"responseId"`
		ExamID           string            `json:"examId"`
		ExamTitle        string            `json:"examTitle"`
		SubjectID        string            `json:"subjectId,omitempty"`
		Answers          []Answer          `json:"answers"`
		Score            float64           `json:"score"`
		TotalMarks       float64           `json:"totalMarks"`
		CorrectCount     int               `json:"correctCount"`
		WrongCount       int               `json:"wrongCount"`
		Unattempted      int               `json:"unattempted"`
		TierScores       map[string]Bucket `json:"tierScores"`
		SectionScores    map[string]Bucket `json:"sectionScores"`
		TimeTakenSeconds *int              `json:"timeTakenSeconds,omitempty"`
		SubmitTime       time.Time         `json:"submitTime"`
	}

	ResponseSummary struct {
		ResponseID   string    `json:"responseId"`
		ExamID       string    `json:"examId"`
		ExamTitle    string    `json:"examTitle"`
		Score        float64   `json:"score"`
		TotalMarks   float64   `json:"totalMarks"`
		CorrectCount int       `json:"correctCount"`
		WrongCount   int       `json:"wrongCount"`
		Unattempted  int       `json:"unattempted"`
		SubmitTime   time.Time `json:"submitTime"`
	}

	Profile struct {
		StudentID       string  `json:"studentId"`
		ExamsTaken      int     `json:"examsTaken"`
		AverageScore    float64 `json:"averageScore"`
		HighestScore    float64 `json:"highestScore"`
		AverageAccuracy float64 `json:"averageAccuracy"`
	}

	QuestionStatus struct {
		Index      int    `json:"index"`
		QuestionID string `json:"questionId"`
		Attempted  bool   `json:"attempted"`
		Selected   *int   `json:"selected"`
		Current    bool   `json:"current"`
	}

	Attempt struct {
		AttemptID  string           `json:"attemptId"`
		ExamID     string           `json:"examId"`
		ExamTitle  string           `json:"examTitle"`
		Mode       string           `json:"mode"`
		State      string           `json:"state"`
		Index      int              `json:"index"`
		Total      int              `json:"total"`
		Remaining  int              `json:"remaining"`
		Attempted  int              `json:"attempted"`
		Question   Question         `json:"question"`
		Questions  []QuestionStatus `json:"questions"`
		Result     *Result          `json:"result,omitempty"`
		GradeError string           `json:"gradeError,omitempty"`
	}

	Leaderboard struct {
		ExamID  string             `json:"examId"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Rank      int     `json:"rank"`
		StudentID string  `json:"studentId"`
		Score     float64 `json:"score"`
	}
)

func float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toExam(e domain.Exam) Exam {
	return Exam(e)
}

func toQuestion(q domain.PublicQuestion) Question {
	return Question{
		QuestionID:       q.QuestionID,
		Question:         q.Text,
		Options:          q.Options,
		Marks:            float(q.Marks),
		NegativeMarks:    float(q.NegativeMarks),
		Tier:             q.Tier,
		Section:          q.Section,
		Image:            q.Image,
		TimeLimitSeconds: q.TimeLimitSeconds,
	}
}

func toAnswers(as []domain.Answer) []Answer {
	out := make([]Answer, 0, len(as))
	for _, a := range as {
		out = append(out, Answer{QuestionID: a.QuestionID, Selected: a.Selected})
	}
	return out
}

func fromAnswers(as []Answer) []domain.Answer {
	if as == nil {
		return nil
	}

	out := make([]domain.Answer, 0, len(as))
	for _, a := range as {
		out = append(out, domain.Answer{QuestionID: a.QuestionID, Selected: a.Selected})
	}
	return out
}

func toBuckets(m map[string]domain.Bucket) map[string]Bucket {
	out := make(map[string]Bucket, len(m))
	for k, b := range m {
		out[k] = Bucket{
			Score:       float(b.Score),
			TotalMarks:  float(b.TotalMarks),
			Correct:     b.Correct,
			Wrong:       b.Wrong,
			Unattempted: b.Unattempted,
		}
	}
	return out
}

func toResult(res *domain.Result) *Result {
	if res == nil {
		return nil
	}

	r := res.Response
	out := &Result{
		ResponseID:       r.ResponseID,
		AttemptID:        r.AttemptID,
		ExamID:           r.ExamID,
		ExamTitle:        r.ExamTitle,
		Score:            float(r.Score),
		TotalMarks:       float(r.TotalMarks),
		CorrectCount:     r.CorrectCount,
		WrongCount:       r.WrongCount,
		Unattempted:      r.Unattempted,
		TotalQuestions:   res.TotalQuestions,
		Accuracy:         float(res.Accuracy),
		Percentage:       float(res.Percentage),
		TierScores:       toBuckets(r.TierScores),
		SectionScores:    toBuckets(r.SectionScores),
		TimeTakenSeconds: r.TimeTakenSeconds,
		SubmitTime:       r.SubmitTime,
		DetailedResults:  make([]QuestionResult, 0, len(res.Details)),
	}

	for _, d := range res.Details {
		out.DetailedResults = append(out.DetailedResults, QuestionResult{
			QuestionID:    d.QuestionID,
			Question:      d.Text,
			Image:         d.Image,
			Options:       d.Options,
			CorrectAnswer: d.CorrectAnswer,
			Selected:      d.Selected,
			Marks:         float(d.Marks),
			NegativeMarks: float(d.NegativeMarks),
			Tier:          d.Tier,
			Section:       d.Section,
			EarnedMarks:   float(d.EarnedMarks),
			IsCorrect:     d.IsCorrect,
		})
	}

	return out
}

func toResponse(r *domain.Response) Response {
	return Response{
		ResponseID:       r.ResponseID,
		ExamID:           r.ExamID,
		ExamTitle:        r.ExamTitle,
		SubjectID:        r.SubjectID,
		Answers:          toAnswers(r.Answers),
		Score:            float(r.Score),
		TotalMarks:       float(r.TotalMarks),
		CorrectCount:     r.CorrectCount,
		WrongCount:       r.WrongCount,
		Unattempted:      r.Unattempted,
		TierScores:       toBuckets(r.TierScores),
		SectionScores:    toBuckets(r.SectionScores),
		TimeTakenSeconds: r.TimeTakenSeconds,
		SubmitTime:       r.SubmitTime,
	}
}

func toResponseSummaries(rs []domain.ResponseSummary) []ResponseSummary {
	out := make([]ResponseSummary, 0, len(rs))
	for _, r := range rs {
		out = append(out, ResponseSummary{
			ResponseID:   r.ResponseID,
			ExamID:       r.ExamID,
			ExamTitle:    r.ExamTitle,
			Score:        float(r.Score),
			TotalMarks:   float(r.TotalMarks),
			CorrectCount: r.CorrectCount,
			WrongCount:   r.WrongCount,
			Unattempted:  r.Unattempted,
			SubmitTime:   r.SubmitTime,
		})
	}
	return out
}

func toProfile(p *domain.Profile) Profile {
	return Profile{
		StudentID:       p.StudentID,
		ExamsTaken:      p.ExamsTaken,
		AverageScore:    float(p.AverageScore),
		HighestScore:    float(p.HighestScore),
		AverageAccuracy: float(p.AverageAccuracy),
	}
}

func toAttempt(s *attempt.Snapshot) Attempt {
	out := Attempt{
		AttemptID:  s.AttemptID,
		ExamID:     s.ExamID,
		ExamTitle:  s.ExamTitle,
		Mode:       s.Mode.String(),
		State:      s.State.String(),
		Index:      s.Index,
		Total:      s.Total,
		Remaining:  s.Remaining,
		Attempted:  s.Attempted,
		Question:   toQuestion(s.Question),
		Questions:  make([]QuestionStatus, 0, len(s.Questions)),
		Result:     toResult(s.Result),
		GradeError: s.GradeError,
	}

	for i, q := range s.Questions {
		out.Questions = append(out.Questions, QuestionStatus{
			Index:      i,
			QuestionID: q.QuestionID,
			Attempted:  q.Attempted,
			Selected:   q.Selected,
			Current:    i == s.Index,
		})
	}

	return out
}

func toLeaderboard(l *domain.Leaderboard) Leaderboard {
	out := Leaderboard{
		ExamID:  l.ExamID,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for i, e := range l.Entries {
		out.Entries = append(out.Entries, LeaderboardEntry{
			Rank:      i + 1,
			StudentID: e.StudentID,
			Score:     e.Score,
		})
	}

	return out
}
