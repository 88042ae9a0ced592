package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameResponseCreated, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventResponseCreated))
	})

	return s
}

type GetLeaderboardRequest struct {
	ExamID string
	// Limit caps the number of entries, 0 for all.
	Limit int
}

// GetLeaderboard returns the best score of every student who took the exam, highest first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	stop := int64(-1)
	if req.Limit > 0 {
		stop = int64(req.Limit) - 1
	}

	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.ExamID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			StudentID: z.Member.(string),
			Score:     z.Score,
		})
	}

	return &domain.Leaderboard{
		ExamID:  req.ExamID,
		Entries: entries,
	}, nil
}

// UpdateLeaderboard records the score of a response, keeping the student's best score only.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventResponseCreated) error {
	r := e.Response

	// TODO: retry on error
	if err := s.redis.ZAddGT(ctx, s.getLeaderboardKey(r.ExamID), redis.Z{
		Score:  r.Score.InexactFloat64(),
		Member: r.StudentID,
	}).Err(); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, r)
}

// schedulePublishLeaderboard publishes the leaderboard at most once per publish interval per exam.
// Responses of a whole class tend to arrive together when a timed exam ends.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, r domain.Response) error {
	// Also keeps several instances of the service from publishing the same change.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(r.ExamID), r.SubmitTime.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, r)
}

func (s *Service) publishLeaderboard(ctx context.Context, r domain.Response) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		ExamID: r.ExamID,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: exam=%s: %w", r.ExamID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return s.redis.Set(ctx, s.getLeaderboardTimeKey(r.ExamID), r.SubmitTime.UnixMilli(), publishInterval).Err()
}

func (s *Service) getLeaderboardKey(exam string) string {
	return fmt.Sprintf("%s:exam:%s:leaderboard", s.prefix, exam)
}

func (s *Service) getLeaderboardTimeKey(exam string) string {
	return fmt.Sprintf("%s:exam:%s:time", s.prefix, exam)
}
