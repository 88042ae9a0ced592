package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/victornm/examiner/internal/attempt"
	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/event"
	"github.com/victornm/examiner/internal/exam"
	"github.com/victornm/examiner/internal/leaderboard"
	"github.com/victornm/examiner/internal/score"
	"github.com/victornm/examiner/internal/shuffle"
)

type Config struct {
	GRPC     *grpc.Server
	HTTP     gin.IRouter
	EventBus *event.Bus

	Auth        *auth.Verifier
	Exams       Exams
	Attempts    *attempt.Manager
	Scores      Scores
	Leaderboard Leaderboards

	Redis        Redis
	PubsubPrefix string

	// Rand orders the questions served to clients that run their own attempt.
	Rand shuffle.Rand
}

type Exams interface {
	CreateExam(ctx context.Context, req exam.CreateExamRequest) (*domain.Exam, []domain.Question, error)
	GetExam(ctx context.Context, examID string) (*domain.Exam, error)
	ListExams(ctx context.Context, req exam.ListExamsRequest) ([]domain.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]domain.Question, error)
}

type Scores interface {
	Submit(ctx context.Context, req score.SubmitRequest) (*domain.Result, error)
	GetResponse(ctx context.Context, req score.GetResponseRequest) (*domain.Response, error)
	ListResponses(ctx context.Context, req score.ListResponsesRequest) ([]domain.ResponseSummary, error)
	GetProfile(ctx context.Context, req score.GetProfileRequest) (*domain.Profile, error)
}

type Leaderboards interface {
	GetLeaderboard(ctx context.Context, req leaderboard.GetLeaderboardRequest) (*domain.Leaderboard, error)
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	auth *auth.Verifier
	es   Exams
	am   *attempt.Manager
	ss   Scores
	ls   Leaderboards
	rand shuffle.Rand

	redis  Redis
	prefix string
}

func New(c Config) *API {
	if c.Rand == nil {
		c.Rand = shuffle.Default
	}

	a := &API{
		auth:   c.Auth,
		es:     c.Exams,
		am:     c.Attempts,
		ss:     c.Scores,
		ls:     c.Leaderboard,
		rand:   c.Rand,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// gRPC APIs
	if c.GRPC != nil {
		registerGradingServiceServer(c.GRPC, a)
	}

	// HTTP APIs
	if c.HTTP != nil {
		a.registerRoutes(c.HTTP)
	}

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameResponseCreated, func(ctx context.Context, e event.Event) error {
		return a.PublishResponseCreated(ctx, e.(domain.EventResponseCreated))
	})
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})

	return a
}
