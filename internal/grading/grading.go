// Package grading scores a set of answers against the questions of an exam.
//
// Grading is a pure function of its inputs. The overall score is rounded to two
// decimal places. Tier and section scores are exact decimal sums and are not rounded:
// marks are fixed-point decimals, so a bucket only differs from its rounded value when
// the marks themselves carry more than two decimal places.
package grading

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/domain"
)

// ScorePlaces is the number of decimal places the overall score is rounded to.
const ScorePlaces = 2

var hundred = decimal.NewFromInt(100)

// Classification of a single answer.
type Classification int

const (
	Unattempted Classification = iota
	Correct
	Wrong
)

// Classify returns the classification of selected for q and the marks it earns.
func Classify(q domain.Question, selected *int) (Classification, decimal.Decimal) {
	switch {
	case selected == nil:
		return Unattempted, decimal.Zero
	case *selected == q.CorrectAnswer:
		return Correct, q.Marks
	default:
		return Wrong, q.NegativeMarks.Abs().Neg()
	}
}

// Grade scores answers against questions. Answers to questions outside the set are ignored,
// questions without an answer are unattempted, and when a question is answered more than
// once the last answer wins. The returned response carries no identity or timestamp.
func Grade(questions []domain.Question, answers []domain.Answer) *domain.Result {
	selected := make(map[string]*int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.Selected
	}

	var (
		score      = decimal.Zero
		totalMarks = decimal.Zero
		tiers      = make(map[string]*domain.Bucket)
		sections   = make(map[string]*domain.Bucket)
		details    = make([]domain.QuestionResult, 0, len(questions))
		resp       = domain.Response{Answers: answers}
	)

	for _, q := range questions {
		sel := selected[q.QuestionID]
		class, earned := Classify(q, sel)

		tier := bucket(tiers, q.TierKey())
		section := bucket(sections, q.SectionKey())

		score = score.Add(earned)
		totalMarks = totalMarks.Add(q.Marks)
		for _, b := range []*domain.Bucket{tier, section} {
			b.TotalMarks = b.TotalMarks.Add(q.Marks)
			b.Score = b.Score.Add(earned)
			switch class {
			case Correct:
				b.Correct++
			case Wrong:
				b.Wrong++
			default:
				b.Unattempted++
			}
		}

		switch class {
		case Correct:
			resp.CorrectCount++
		case Wrong:
			resp.WrongCount++
		default:
			resp.Unattempted++
		}

		details = append(details, domain.QuestionResult{
			QuestionID:    q.QuestionID,
			Text:          q.Text,
			Image:         q.Image,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Selected:      sel,
			Marks:         q.Marks,
			NegativeMarks: q.NegativeMarks,
			Tier:          q.TierKey(),
			Section:       q.SectionKey(),
			EarnedMarks:   earned,
			IsCorrect:     class == Correct,
		})
	}

	resp.Score = score.Round(ScorePlaces)
	resp.TotalMarks = totalMarks
	resp.TierScores = flatten(tiers)
	resp.SectionScores = flatten(sections)

	return &domain.Result{
		Response:       resp,
		TotalQuestions: len(questions),
		Accuracy:       Accuracy(resp.CorrectCount, resp.WrongCount),
		Percentage:     Percentage(resp.Score, totalMarks),
		Details:        details,
	}
}

// Accuracy is the share of attempted questions answered correctly, in percent.
// It is zero when nothing was attempted.
func Accuracy(correct, wrong int) decimal.Decimal {
	attempted := correct + wrong
	if attempted == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(attempted))).
		Round(ScorePlaces)
}

// Percentage is score over total marks, in percent. It is zero when there are no marks to earn.
func Percentage(score, totalMarks decimal.Decimal) decimal.Decimal {
	if !totalMarks.IsPositive() {
		return decimal.Zero
	}

	return score.Mul(hundred).Div(totalMarks).Round(ScorePlaces)
}

func bucket(m map[string]*domain.Bucket, key string) *domain.Bucket {
	b, ok := m[key]
	if !ok {
		b = &domain.Bucket{Score: decimal.Zero, TotalMarks: decimal.Zero}
		m[key] = b
	}

	return b
}

func flatten(m map[string]*domain.Bucket) map[string]domain.Bucket {
	out := make(map[string]domain.Bucket, len(m))
	for k, b := range m {
		out[k] = *b
	}

	return out
}
