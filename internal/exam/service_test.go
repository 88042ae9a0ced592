package exam_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/exam"
)

func TestService_CreateExam_Validation(t *testing.T) {
	valid := func() exam.CreateExamRequest {
		return exam.CreateExamRequest{
			Title: "Physics",
			Owner: "teacher-1",
			Questions: []exam.CreateQuestionRequest{
				{Text: "1 + 1?", Options: []string{"1", "2"}, CorrectAnswer: 1},
			},
		}
	}
	neg := decimal.NewFromInt(-1)

	tests := map[string]struct {
		arrange func() exam.CreateExamRequest
	}{
		"missing title": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Title = " "
				return r
			},
		},
		"missing owner": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Owner = ""
				return r
			},
		},
		"negative duration": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.TotalTimeSeconds = -1
				return r
			},
		},
		"too few options": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].Options = []string{"only"}
				r.Questions[0].CorrectAnswer = 0
				return r
			},
		},
		"too many options": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].Options = []string{"a", "b", "c", "d", "e", "f", "g"}
				return r
			},
		},
		"correct answer out of range": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].CorrectAnswer = 2
				return r
			},
		},
		"negative marks": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].Marks = &neg
				return r
			},
		},
		"signed negative marking": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].NegativeMarks = &neg
				return r
			},
		},
		"unknown tier": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].Tier = "III"
				return r
			},
		},
		"negative time limit": {
			arrange: func() exam.CreateExamRequest {
				r := valid()
				r.Questions[0].TimeLimitSeconds = -5
				return r
			},
		},
	}

	s := exam.NewService(exam.Config{})

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			_, _, err := s.CreateExam(context.Background(), tt.arrange())
			require.True(t, errors.Is(err, errors.CodeInvalidArgument), "should be rejected as invalid, got %v", err)
		})
	}
}

func TestService_GetExam_MalformedID(t *testing.T) {
	s := exam.NewService(exam.Config{})

	_, err := s.GetExam(context.Background(), "not-a-uuid")
	require.True(t, errors.Is(err, errors.CodeNotFound), "got %v", err)

	qs, err := s.ListQuestions(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	require.Empty(t, qs)
}
