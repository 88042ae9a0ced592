package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/victornm/examiner/internal/api"
	"github.com/victornm/examiner/internal/attempt"
	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/event"
	"github.com/victornm/examiner/internal/exam"
	"github.com/victornm/examiner/internal/grading"
	"github.com/victornm/examiner/internal/leaderboard"
	"github.com/victornm/examiner/internal/score"
)

func TestAPI_Authentication(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		header string
		want   int
	}{
		"missing token":  {header: "", want: http.StatusUnauthorized},
		"not a bearer":   {header: "Basic abc", want: http.StatusUnauthorized},
		"invalid token":  {header: "Bearer nope", want: http.StatusUnauthorized},
		"valid token":    {header: "Bearer " + f.token(t, "s1", auth.RoleStudent), want: http.StatusOK},
		"health is open": {header: "", want: http.StatusNoContent},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := "/exams"
			if name == "health is open" {
				path = "/healthz"
			}

			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPI_ListExams(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		role auth.Role
		want exam.ListExamsRequest
	}{
		"students see published exams": {role: auth.RoleStudent, want: exam.ListExamsRequest{PublishedOnly: true}},
		"teachers see their own exams": {role: auth.RoleTeacher, want: exam.ListExamsRequest{Owner: "u1"}},
		"admins see every exam":        {role: auth.RoleAdmin, want: exam.ListExamsRequest{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/exams", f.token(t, "u1", tt.role), nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.want, f.exams.lastList())
		})
	}
}

func TestAPI_ListQuestions(t *testing.T) {
	f := newFixture(t)
	student := f.token(t, "s1", auth.RoleStudent)

	w := f.do(t, http.MethodGet, "/exams/e1/questions", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "correctAnswer", "answer keys should never be served")

	var body struct {
		Questions []api.Question `json:"questions"`
	}
	decode(t, w, &body)
	require.Len(t, body.Questions, 3)
	require.Equal(t, 2.0, body.Questions[0].Marks)
	require.Equal(t, 0.5, body.Questions[0].NegativeMarks)

	w = f.do(t, http.MethodGet, "/exams/draft/questions", student, nil)
	require.Equal(t, http.StatusForbidden, w.Code, "students should not see drafts")

	w = f.do(t, http.MethodGet, "/exams/draft/questions", f.token(t, "t1", auth.RoleTeacher), nil)
	require.Equal(t, http.StatusOK, w.Code, "staff should see drafts")

	w = f.do(t, http.MethodGet, "/exams/missing/questions", student, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CreateExam(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"title": "Algebra",
		"questions": []map[string]any{
			{"question": "x + 1 = 2", "options": []string{"0", "1"}, "correctAnswer": 1, "negativeMarks": 0.25},
		},
	}

	w := f.do(t, http.MethodPost, "/exams", f.token(t, "s1", auth.RoleStudent), body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/exams", f.token(t, "t1", auth.RoleTeacher), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req := f.exams.lastCreate()
	require.Equal(t, "t1", req.Owner)
	require.Len(t, req.Questions, 1)
	require.Nil(t, req.Questions[0].Marks)
	require.Equal(t, "0.25", req.Questions[0].NegativeMarks.String())

	w = f.do(t, http.MethodPost, "/exams", f.token(t, "t1", auth.RoleTeacher), map[string]any{"questions": []any{}})
	require.Equal(t, http.StatusBadRequest, w.Code, "title is required")
}

func TestAPI_AttemptFlow(t *testing.T) {
	f := newFixture(t)
	student := f.token(t, "s1", auth.RoleStudent)

	w := f.do(t, http.MethodPost, "/exams/e1/attempts", student, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), "correctAnswer")

	var at api.Attempt
	decode(t, w, &at)
	require.Equal(t, "exam", at.Mode)
	require.Equal(t, "running", at.State)
	require.Equal(t, 3, at.Total)
	require.Equal(t, 60, at.Remaining)
	require.Equal(t, "q1", at.Question.QuestionID)
	base := "/attempts/" + at.AttemptID

	w = f.do(t, http.MethodPut, base+"/answers/q1", student, map[string]any{"option": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ans api.Answer
	decode(t, w, &ans)
	require.Equal(t, 0, *ans.Selected)

	w = f.do(t, http.MethodPut, base+"/answers/q2", student, map[string]any{"option": 0})
	require.Equal(t, http.StatusConflict, w.Code, "only the current question can be answered")

	w = f.do(t, http.MethodPut, base+"/answers/q1", student, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code, "option is required")

	w = f.do(t, http.MethodPost, base+"/next", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &at)
	require.Equal(t, 1, at.Index)
	require.True(t, at.Questions[1].Current)

	w = f.do(t, http.MethodPut, base+"/answers/q2", student, map[string]any{"option": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/goto/99", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &at)
	require.Equal(t, 2, at.Index)
	require.Equal(t, 2, at.Attempted)

	w = f.do(t, http.MethodPost, base+"/goto/x", student, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, base, f.token(t, "s2", auth.RoleStudent), nil)
	require.Equal(t, http.StatusForbidden, w.Code, "attempts are private")

	w = f.do(t, http.MethodPost, base+"/submit", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res api.Result
	decode(t, w, &res)
	require.Equal(t, 1.5, res.Score)
	require.Equal(t, 1, res.CorrectCount)
	require.Equal(t, 1, res.WrongCount)
	require.Equal(t, 1, res.Unattempted)
	require.Equal(t, 3, res.TotalQuestions)
	require.Equal(t, 50.0, res.Accuracy)
	require.Equal(t, 25.0, res.Percentage)
	require.Len(t, res.DetailedResults, 3)
	require.Equal(t, at.AttemptID, res.AttemptID)

	w = f.do(t, http.MethodPost, base+"/submit", student, nil)
	require.Equal(t, http.StatusConflict, w.Code, "an attempt is graded once")

	w = f.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &at)
	require.Equal(t, "stopped", at.State)
	require.NotNil(t, at.Result)

	w = f.do(t, http.MethodDelete, base, student, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Len(t, f.scores.submitted(), 1)
	require.Equal(t, "s1", f.scores.submitted()[0].StudentID)
}

func TestAPI_StartAttempt_Draft(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/exams/draft/attempts", f.token(t, "s1", auth.RoleStudent), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPI_SubmitResponse(t *testing.T) {
	f := newFixture(t)
	student := f.token(t, "s1", auth.RoleStudent)

	tests := map[string]struct {
		body any
		want int
	}{
		"valid submission": {
			body: map[string]any{
				"examId":           "e1",
				"answers":          []map[string]any{{"questionId": "q1", "selected": 0}, {"questionId": "q2", "selected": nil}},
				"timeTakenSeconds": 12,
			},
			want: http.StatusCreated,
		},
		"empty answers": {
			body: map[string]any{"examId": "e1", "answers": []any{}},
			want: http.StatusCreated,
		},
		"missing exam": {
			body: map[string]any{"answers": []any{}},
			want: http.StatusBadRequest,
		},
		"answers not a sequence": {
			body: map[string]any{"examId": "e1", "answers": "q1=0"},
			want: http.StatusBadRequest,
		},
		"missing answers": {
			body: map[string]any{"examId": "e1"},
			want: http.StatusBadRequest,
		},
		"unknown exam": {
			body: map[string]any{"examId": "missing", "answers": []any{}},
			want: http.StatusNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/responses/submit", student, tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	subs := f.scores.submitted()
	require.Len(t, subs, 2, "only well-formed submissions should reach grading")
	require.Equal(t, "s1", subs[0].StudentID, "the student is taken from the token")
}

func TestAPI_History(t *testing.T) {
	f := newFixture(t)
	student := f.token(t, "s1", auth.RoleStudent)

	w := f.do(t, http.MethodPost, "/responses/submit", student, map[string]any{
		"examId":  "e1",
		"answers": []map[string]any{{"questionId": "q1", "selected": 0}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var res api.Result
	decode(t, w, &res)

	w = f.do(t, http.MethodGet, "/responses/me", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Responses []api.ResponseSummary `json:"responses"`
	}
	decode(t, w, &list)
	require.Len(t, list.Responses, 1)
	require.Equal(t, 2.0, list.Responses[0].Score)

	w = f.do(t, http.MethodGet, "/responses/me/profile", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p api.Profile
	decode(t, w, &p)
	require.Equal(t, 1, p.ExamsTaken)

	w = f.do(t, http.MethodGet, "/responses/"+res.ResponseID, student, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/responses/"+res.ResponseID, f.token(t, "s2", auth.RoleStudent), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_GetLeaderboard(t *testing.T) {
	f := newFixture(t)
	student := f.token(t, "s1", auth.RoleStudent)

	w := f.do(t, http.MethodGet, "/exams/e1/leaderboard?limit=2", student, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var l api.Leaderboard
	decode(t, w, &l)
	require.Equal(t, []api.LeaderboardEntry{
		{Rank: 1, StudentID: "s2", Score: 4},
		{Rank: 2, StudentID: "s1", Score: 1.5},
	}, l.Entries)

	w = f.do(t, http.MethodGet, "/exams/e1/leaderboard?limit=-1", student, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Notifications(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := f.redis.Subscribe(ctx, api.UserChannel("test", "s1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err, "should subscribe")

	err = f.api.PublishResponseCreated(ctx, domain.EventResponseCreated{Response: domain.Response{
		ResponseID: "r1",
		ExamID:     "e1",
		StudentID:  "s1",
		Score:      decimal.RequireFromString("1.5"),
	}})
	require.NoError(t, err)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string              `json:"event"`
		Data  api.ResponseSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	require.Equal(t, domain.EventNameResponseCreated, n.Event)
	require.Equal(t, "r1", n.Data.ResponseID)
	require.Equal(t, 1.5, n.Data.Score)

	err = f.api.PublishLeaderboardUpdated(ctx, domain.EventLeaderboardUpdated{Leaderboard: domain.Leaderboard{
		ExamID:  "e1",
		Entries: []domain.LeaderboardEntry{{StudentID: "s1", Score: 2}},
	}})
	require.NoError(t, err)

	msg, err = sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.Contains(t, msg.Payload, domain.EventNameLeaderboardUpdated)
}

func TestAPI_GRPCSubmitAttempt(t *testing.T) {
	f := newFixture(t)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = f.grpc.Serve(lis) }()
	t.Cleanup(f.grpc.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	call := func(token string, payload map[string]any) (*structpb.Struct, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}

		in, err := structpb.NewStruct(payload)
		require.NoError(t, err)

		out := &structpb.Struct{}
		return out, conn.Invoke(ctx, api.GradingSubmitAttemptFull, in, out)
	}

	student := f.token(t, "s1", auth.RoleStudent)

	out, err := call(student, map[string]any{
		"examId":  "e1",
		"answers": []any{map[string]any{"questionId": "q1", "selected": 0}, map[string]any{"questionId": "q2", "selected": 1}},
	})
	require.NoError(t, err)
	require.Equal(t, 1.5, out.Fields["score"].GetNumberValue())
	require.Equal(t, 1.0, out.Fields["correctCount"].GetNumberValue())

	_, err = call("", map[string]any{"examId": "e1", "answers": []any{}})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = call(student, map[string]any{"examId": "e1", "answers": []any{map[string]any{"questionId": "q1", "selected": 0.5}}})
	require.Equal(t, codes.InvalidArgument, status.Code(err), "fractional options should be rejected")

	_, err = call(student, map[string]any{"examId": "e1", "answers": "q1"})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = call(student, map[string]any{"answers": []any{}})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = call(student, map[string]any{"examId": "missing", "answers": []any{}})
	require.Equal(t, codes.NotFound, status.Code(err))
}

type fixture struct {
	router   *gin.Engine
	grpc     *grpc.Server
	api      *api.API
	verifier *auth.Verifier
	exams    *fakeExams
	scores   *fakeScores
	redis    redis.UniversalClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{rs.Addr()}})

	f := &fixture{
		router:   gin.New(),
		grpc:     grpc.NewServer(),
		verifier: auth.NewVerifier(auth.Config{Secret: "test"}),
		exams:    newFakeExams(),
		redis:    rc,
	}
	f.scores = &fakeScores{exams: f.exams}

	am := attempt.NewManager(attempt.Config{
		Exams: f.exams,
		Grader: attempt.GraderFunc(func(ctx context.Context, s attempt.Submission) (*domain.Result, error) {
			return f.scores.Submit(ctx, score.SubmitRequest{
				AttemptID: s.AttemptID,
				ExamID:    s.ExamID,
				StudentID: s.StudentID,
				Answers:   s.Answers,
			})
		}),
		TickInterval: time.Hour,
		Rand:         func(n int) int { return n - 1 },
	})
	t.Cleanup(am.Stop)

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	f.api = api.New(api.Config{
		GRPC:         f.grpc,
		HTTP:         f.router,
		EventBus:     eb,
		Auth:         f.verifier,
		Exams:        f.exams,
		Attempts:     am,
		Scores:       f.scores,
		Leaderboard:  fakeLeaderboards{},
		Redis:        rc,
		PubsubPrefix: "test",
		Rand:         func(n int) int { return n - 1 },
	})

	return f
}

func (f *fixture) token(t *testing.T, subject string, role auth.Role) string {
	t.Helper()

	tok, err := f.verifier.Issue(auth.Identity{Subject: subject, Role: role})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(strings.NewReader(w.Body.String())).Decode(v))
}

type fakeExams struct {
	mu      sync.Mutex
	exams   map[string]domain.Exam
	qs      []domain.Question
	lists   []exam.ListExamsRequest
	creates []exam.CreateExamRequest
}

func newFakeExams() *fakeExams {
	qs := make([]domain.Question, 0, 3)
	for _, id := range []string{"q1", "q2", "q3"} {
		qs = append(qs, domain.Question{
			QuestionID:    id,
			Text:          "question " + id,
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 0,
			Marks:         decimal.NewFromInt(2),
			NegativeMarks: decimal.RequireFromString("0.5"),
		})
	}

	return &fakeExams{
		exams: map[string]domain.Exam{
			"e1":    {ExamID: "e1", Title: "Exam", TotalTimeSeconds: 60, Published: true},
			"draft": {ExamID: "draft", Title: "Draft", TotalTimeSeconds: 60},
		},
		qs: qs,
	}
}

func (f *fakeExams) CreateExam(_ context.Context, req exam.CreateExamRequest) (*domain.Exam, []domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, req)
	return &domain.Exam{ExamID: "new", Title: req.Title, Owner: req.Owner}, nil, nil
}

func (f *fakeExams) GetExam(_ context.Context, examID string) (*domain.Exam, error) {
	e, ok := f.exams[examID]
	if !ok {
		return nil, errors.NotFound("exam not found: %s", examID)
	}
	return &e, nil
}

func (f *fakeExams) ListExams(_ context.Context, req exam.ListExamsRequest) ([]domain.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lists = append(f.lists, req)
	return []domain.Exam{f.exams["e1"]}, nil
}

func (f *fakeExams) ListQuestions(_ context.Context, examID string) ([]domain.Question, error) {
	if _, ok := f.exams[examID]; !ok {
		return nil, nil
	}
	return f.qs, nil
}

func (f *fakeExams) lastList() exam.ListExamsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[len(f.lists)-1]
}

func (f *fakeExams) lastCreate() exam.CreateExamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[len(f.creates)-1]
}

type fakeScores struct {
	exams *fakeExams

	mu        sync.Mutex
	requests  []score.SubmitRequest
	responses []domain.Response
}

func (f *fakeScores) Submit(ctx context.Context, req score.SubmitRequest) (*domain.Result, error) {
	e, err := f.exams.GetExam(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	res := grading.Grade(f.exams.qs, req.Answers)
	res.Response.ResponseID = fmt.Sprintf("r%d", len(f.responses))
	res.Response.AttemptID = req.AttemptID
	res.Response.ExamID = e.ExamID
	res.Response.StudentID = req.StudentID
	f.responses = append(f.responses, res.Response)

	return res, nil
}

func (f *fakeScores) GetResponse(_ context.Context, req score.GetResponseRequest) (*domain.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.responses {
		if r.ResponseID == req.ResponseID && r.StudentID == req.StudentID {
			return &r, nil
		}
	}
	return nil, errors.NotFound("response not found: %s", req.ResponseID)
}

func (f *fakeScores) ListResponses(_ context.Context, req score.ListResponsesRequest) ([]domain.ResponseSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.ResponseSummary
	for _, r := range f.responses {
		if r.StudentID == req.StudentID {
			out = append(out, domain.ResponseSummary{ResponseID: r.ResponseID, ExamID: r.ExamID, Score: r.Score})
		}
	}
	return out, nil
}

func (f *fakeScores) GetProfile(ctx context.Context, req score.GetProfileRequest) (*domain.Profile, error) {
	rs, _ := f.ListResponses(ctx, score.ListResponsesRequest{StudentID: req.StudentID})
	return &domain.Profile{StudentID: req.StudentID, ExamsTaken: len(rs)}, nil
}

func (f *fakeScores) submitted() []score.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]score.SubmitRequest(nil), f.requests...)
}

type fakeLeaderboards struct{}

func (fakeLeaderboards) GetLeaderboard(_ context.Context, req leaderboard.GetLeaderboardRequest) (*domain.Leaderboard, error) {
	entries := []domain.LeaderboardEntry{
		{StudentID: "s2", Score: 4},
		{StudentID: "s1", Score: 1.5},
		{StudentID: "s3", Score: -1},
	}
	if req.Limit > 0 && req.Limit < len(entries) {
		entries = entries[:req.Limit]
	}

	return &domain.Leaderboard{ExamID: req.ExamID, Entries: entries}, nil
}
