package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/examiner/internal/api"
	"github.com/victornm/examiner/internal/attempt"
	"github.com/victornm/examiner/internal/auth"
	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/event"
	"github.com/victornm/examiner/internal/exam"
	"github.com/victornm/examiner/internal/leaderboard"
	"github.com/victornm/examiner/internal/score"
	"github.com/victornm/examiner/internal/telemetry"
)

type Postgres struct {
	Addr string
	User string
	Pass string
	Name string
}

type Redis struct {
	Addrs  []string
	Pass   string
	Prefix string
}

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Leaderboard Redis
		Pubsub      Redis
	}

	Postgres struct {
		Exam     Postgres
		Response Postgres
	}

	Auth struct {
		Secret string
		TTL    time.Duration
	}

	Attempt struct {
		DefaultQuestionSeconds int
		TickInterval           time.Duration
		GradeTimeout           time.Duration
		Retention              time.Duration
		SweepInterval          time.Duration
	}

	Event struct {
		PoolSize int
		Timeout  time.Duration
	}
}

// DefaultConfig returns the configuration values used when neither the config file nor the environment sets them.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Redis.Leaderboard.Prefix = "examiner"
	c.Redis.Pubsub.Prefix = "examiner"
	c.Auth.TTL = 8 * time.Hour
	c.Attempt.DefaultQuestionSeconds = 30
	c.Attempt.TickInterval = time.Second
	c.Attempt.GradeTimeout = 10 * time.Second
	c.Attempt.Retention = 10 * time.Minute
	c.Attempt.SweepInterval = time.Minute
	c.Event.PoolSize = 10000
	c.Event.Timeout = 30 * time.Second
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			exam     *pgxpool.Pool
			response *pgxpool.Pool
		}
	}

	service struct {
		auth        *auth.Verifier
		exam        *exam.Service
		score       *score.Service
		attempt     *attempt.Manager
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if c.Auth.Secret == "" {
		return nil, fmt.Errorf("server: auth secret is required")
	}

	s.eb = event.NewBus(
		event.WithPoolSize(c.Event.PoolSize),
		event.WithTimeout(c.Event.Timeout),
	)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c Redis) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(c Postgres) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.exam, err = connect(s.c.Postgres.Exam)
	if err != nil {
		return fmt.Errorf("exam: %w", err)
	}

	s.infra.postgres.response, err = connect(s.c.Postgres.Response)
	if err != nil {
		return fmt.Errorf("response: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewVerifier(auth.Config{
		Secret: s.c.Auth.Secret,
		TTL:    s.c.Auth.TTL,
	})

	s.service.exam = exam.NewService(exam.Config{
		DB: s.infra.postgres.exam,
	})

	s.service.score = score.NewService(score.Config{
		EventBus: s.eb,
		Exams:    s.service.exam,
		Store:    score.NewPostgresStore(s.infra.postgres.response),
	})

	s.service.attempt = attempt.NewManager(attempt.Config{
		Exams:               s.service.exam,
		Grader:              attempt.GraderFunc(s.gradeAttempt),
		DefaultQuestionTime: time.Duration(s.c.Attempt.DefaultQuestionSeconds) * time.Second,
		TickInterval:        s.c.Attempt.TickInterval,
		GradeTimeout:        s.c.Attempt.GradeTimeout,
		Retention:           s.c.Attempt.Retention,
		SweepInterval:       s.c.Attempt.SweepInterval,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})
}

// gradeAttempt hands a finished server-hosted attempt to the score service, which grades and persists it.
func (s *Server) gradeAttempt(ctx context.Context, sub attempt.Submission) (*domain.Result, error) {
	t := sub.TimeTakenSeconds
	return s.service.score.Submit(ctx, score.SubmitRequest{
		AttemptID:        sub.AttemptID,
		ExamID:           sub.ExamID,
		StudentID:        sub.StudentID,
		Answers:          sub.Answers,
		TimeTakenSeconds: &t,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		GRPC:         s.grpc,
		HTTP:         e,
		EventBus:     s.eb,
		Auth:         s.service.auth,
		Exams:        s.service.exam,
		Attempts:     s.service.attempt,
		Scores:       s.service.score,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.health.SetServingStatus(api.GradingServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// Attempts in progress are not persisted and are lost.
	s.service.attempt.Stop()
	s.eb.Stop()

	s.infra.postgres.exam.Close()
	s.infra.postgres.response.Close()
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
