package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/victornm/examiner/internal/attempt"
	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/errors"
	"github.com/victornm/examiner/internal/exam"
	"github.com/victornm/examiner/internal/leaderboard"
	"github.com/victornm/examiner/internal/score"
	"github.com/victornm/examiner/internal/shuffle"
)

func (a *API) registerRoutes(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	g := r.Group("/", a.authenticate)

	g.GET("/exams", a.listExams)
	g.POST("/exams", requireStaff, a.createExam)
	g.GET("/exams/:examId", a.getExam)
	g.GET("/exams/:examId/questions", a.listQuestions)
	g.GET("/exams/:examId/leaderboard", a.getLeaderboard)
	g.POST("/exams/:examId/attempts", a.startAttempt)

	g.GET("/attempts/:attemptId", a.getAttempt)
	g.PUT("/attempts/:attemptId/answers/:questionId", a.selectAnswer)
	g.POST("/attempts/:attemptId/next", a.nextQuestion)
	g.POST("/attempts/:attemptId/prev", a.prevQuestion)
	g.POST("/attempts/:attemptId/goto/:index", a.gotoQuestion)
	g.POST("/attempts/:attemptId/submit", a.submitAttempt)
	g.DELETE("/attempts/:attemptId", a.abandonAttempt)

	g.POST("/responses/submit", a.submitResponse)
	g.GET("/responses/me", a.listMyResponses)
	g.GET("/responses/me/profile", a.getMyProfile)
	g.GET("/responses/:responseId", a.getResponse)
}

func (a *API) authenticate(c *gin.Context) {
	tok, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || tok == "" {
		writeError(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token")))
		return
	}

	id, err := a.auth.Verify(tok)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
	c.Next()
}

func requireStaff(c *gin.Context) {
	if !identity(c).Role.Staff() {
		writeError(c, errors.New(errors.CodePermissionDenied, errors.WithMessagef("staff only")))
		return
	}

	c.Next()
}

func identity(c *gin.Context) *auth.Identity {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		panic("api: handler reached without identity")
	}

	return id
}

func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, errors.InvalidArgument("malformed request: %v", err))
		return false
	}

	return true
}

func (a *API) listExams(c *gin.Context) {
	id := identity(c)

	req := exam.ListExamsRequest{}
	switch id.Role {
	case auth.RoleTeacher:
		req.Owner = id.Subject
	case auth.RoleStudent:
		req.PublishedOnly = true
	}

	exams, err := a.es.ListExams(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]Exam, 0, len(exams))
	for _, e := range exams {
		out = append(out, toExam(e))
	}

	c.JSON(http.StatusOK, gin.H{"exams": out})
}

// visibleExam returns the exam if the caller may see it. Drafts are visible to staff only.
func (a *API) visibleExam(ctx context.Context, id *auth.Identity, examID string) (*domain.Exam, error) {
	e, err := a.es.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	if !e.Published && !id.Role.Staff() {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef("exam %s is not available", examID))
	}

	return e, nil
}

func (a *API) getExam(c *gin.Context) {
	e, err := a.visibleExam(c.Request.Context(), identity(c), c.Param("examId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toExam(*e))
}

// listQuestions serves the questions in a fresh random order for clients that run their own attempt.
// Answer keys are never included.
func (a *API) listQuestions(c *gin.Context) {
	ctx := c.Request.Context()

	e, err := a.visibleExam(ctx, identity(c), c.Param("examId"))
	if err != nil {
		writeError(c, err)
		return
	}

	qs, err := a.es.ListQuestions(ctx, e.ExamID)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(qs) == 0 {
		writeError(c, errors.NotFound("no questions found for exam %s", e.ExamID))
		return
	}

	out := make([]Question, 0, len(qs))
	for _, q := range shuffle.Shuffle(qs, a.rand) {
		out = append(out, toQuestion(q.Public()))
	}

	c.JSON(http.StatusOK, gin.H{"exam": toExam(*e), "questions": out})
}

type (
	createExamRequest struct {
		Title            string                  `json:"title" binding:"required"`
		Description      string                  `json:"description"`
		TotalTimeSeconds int                     `json:"totalTimeSeconds"`
		Published        bool                    `json:"published"`
		Questions        []createQuestionRequest `json:"questions" binding:"dive"`
	}

	createQuestionRequest struct {
		Question         string   `json:"question" binding:"required"`
		Options          []string `json:"options" binding:"required"`
		CorrectAnswer    int      `json:"correctAnswer"`
		Marks            *float64 `json:"marks"`
		NegativeMarks    *float64 `json:"negativeMarks"`
		Tier             string   `json:"tier"`
		Section          string   `json:"section"`
		Image            string   `json:"image"`
		TimeLimitSeconds int      `json:"timeLimitSeconds"`
	}
)

func optionalDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}

	d := decimal.NewFromFloat(*f)
	return &d
}

func (a *API) createExam(c *gin.Context) {
	var body createExamRequest
	if !bindJSON(c, &body) {
		return
	}

	req := exam.CreateExamRequest{
		Title:            body.Title,
		Description:      body.Description,
		TotalTimeSeconds: body.TotalTimeSeconds,
		Owner:            identity(c).Subject,
		Published:        body.Published,
		Questions:        make([]exam.CreateQuestionRequest, 0, len(body.Questions)),
	}
	for _, q := range body.Questions {
		req.Questions = append(req.Questions, exam.CreateQuestionRequest{
			Text:             q.Question,
			Options:          q.Options,
			CorrectAnswer:    q.CorrectAnswer,
			Marks:            optionalDecimal(q.Marks),
			NegativeMarks:    optionalDecimal(q.NegativeMarks),
			Tier:             q.Tier,
			Section:          q.Section,
			Image:            q.Image,
			TimeLimitSeconds: q.TimeLimitSeconds,
		})
	}

	e, qs, err := a.es.CreateExam(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.QuestionID)
	}

	c.JSON(http.StatusCreated, gin.H{"exam": toExam(*e), "questionIds": ids})
}

func (a *API) getLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()

	e, err := a.visibleExam(ctx, identity(c), c.Param("examId"))
	if err != nil {
		writeError(c, err)
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			writeError(c, errors.InvalidArgument("limit must be a non-negative integer"))
			return
		}
	}

	l, err := a.ls.GetLeaderboard(ctx, leaderboard.GetLeaderboardRequest{
		ExamID: e.ExamID,
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(l))
}

func (a *API) startAttempt(c *gin.Context) {
	at, err := a.am.Start(c.Request.Context(), attempt.StartRequest{
		ExamID:    c.Param("examId"),
		StudentID: identity(c).Subject,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	snap, err := at.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAttempt(snap))
}

func (a *API) ownAttempt(c *gin.Context) (*attempt.Attempt, bool) {
	at, err := a.am.Get(c.Param("attemptId"), identity(c).Subject)
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	return at, true
}

func (a *API) getAttempt(c *gin.Context) {
	at, ok := a.ownAttempt(c)
	if !ok {
		return
	}

	snap, err := at.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAttempt(snap))
}

type selectAnswerRequest struct {
	Option *int `json:"option" binding:"required"`
}

func (a *API) selectAnswer(c *gin.Context) {
	at, ok := a.ownAttempt(c)
	if !ok {
		return
	}

	var body selectAnswerRequest
	if !bindJSON(c, &body) {
		return
	}

	qid := c.Param("questionId")
	sel, err := at.Select(c.Request.Context(), qid, *body.Option)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Answer{QuestionID: qid, Selected: sel})
}

func (a *API) navigate(c *gin.Context, move func(ctx context.Context, at *attempt.Attempt) (*attempt.Snapshot, error)) {
	at, ok := a.ownAttempt(c)
	if !ok {
		return
	}

	snap, err := move(c.Request.Context(), at)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAttempt(snap))
}

func (a *API) nextQuestion(c *gin.Context) {
	a.navigate(c, func(ctx context.Context, at *attempt.Attempt) (*attempt.Snapshot, error) {
		return at.Next(ctx)
	})
}

func (a *API) prevQuestion(c *gin.Context) {
	a.navigate(c, func(ctx context.Context, at *attempt.Attempt) (*attempt.Snapshot, error) {
		return at.Prev(ctx)
	})
}

func (a *API) gotoQuestion(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, errors.InvalidArgument("index must be an integer"))
		return
	}

	a.navigate(c, func(ctx context.Context, at *attempt.Attempt) (*attempt.Snapshot, error) {
		return at.Goto(ctx, i)
	})
}

func (a *API) submitAttempt(c *gin.Context) {
	at, ok := a.ownAttempt(c)
	if !ok {
		return
	}

	res, err := at.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResult(res))
}

func (a *API) abandonAttempt(c *gin.Context) {
	if err := a.am.Abandon(c.Param("attemptId"), identity(c).Subject); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type submitRequest struct {
	ExamID           string   `json:"examId" binding:"required"`
	SubjectID        string   `json:"subjectId"`
	AttemptID        string   `json:"attemptId"`
	Answers          []Answer `json:"answers" binding:"required"`
	TimeTakenSeconds *int     `json:"timeTakenSeconds"`
}

func (a *API) submitResponse(c *gin.Context) {
	var body submitRequest
	if !bindJSON(c, &body) {
		return
	}

	res, err := a.ss.Submit(c.Request.Context(), score.SubmitRequest{
		AttemptID:        body.AttemptID,
		ExamID:           body.ExamID,
		StudentID:        identity(c).Subject,
		SubjectID:        body.SubjectID,
		Answers:          fromAnswers(body.Answers),
		TimeTakenSeconds: body.TimeTakenSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResult(res))
}

func (a *API) listMyResponses(c *gin.Context) {
	rs, err := a.ss.ListResponses(c.Request.Context(), score.ListResponsesRequest{
		StudentID: identity(c).Subject,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": toResponseSummaries(rs)})
}

func (a *API) getMyProfile(c *gin.Context) {
	p, err := a.ss.GetProfile(c.Request.Context(), score.GetProfileRequest{
		StudentID: identity(c).Subject,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfile(p))
}

func (a *API) getResponse(c *gin.Context) {
	r, err := a.ss.GetResponse(c.Request.Context(), score.GetResponseRequest{
		ResponseID: c.Param("responseId"),
		StudentID:  identity(c).Subject,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(r))
}
