package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/examiner/internal/domain"
	"github.com/victornm/examiner/internal/event"
	"github.com/victornm/examiner/internal/leaderboard"
)

func TestService_UpdateLeaderboard(t *testing.T) {
	s := makeService(t)

	for _, r := range []domain.Response{
		response("e1", "u1", "1.5"),
		response("e1", "u2", "4"),
		response("e1", "u1", "0.5"),
		response("e1", "u1", "3"),
		response("e2", "u3", "9"),
	} {
		err := s.UpdateLeaderboard(context.Background(), domain.EventResponseCreated{Response: r})
		require.NoError(t, err)
	}

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		ExamID: "e1",
	})
	require.NoError(t, err)

	want := &domain.Leaderboard{
		ExamID: "e1",
		Entries: []domain.LeaderboardEntry{
			{StudentID: "u2", Score: 4},
			{StudentID: "u1", Score: 3},
		},
	}
	require.Equal(t, want, resp, "should keep the best score of each student")

	resp, err = s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		ExamID: "e1",
		Limit:  1,
	})
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{{StudentID: "u2", Score: 4}}, resp.Entries)
}

func TestService_UpdateLeaderboard_NegativeScores(t *testing.T) {
	s := makeService(t)

	for _, r := range []domain.Response{
		response("e1", "u1", "-1.5"),
		response("e1", "u1", "-2"),
	} {
		err := s.UpdateLeaderboard(context.Background(), domain.EventResponseCreated{Response: r})
		require.NoError(t, err)
	}

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{ExamID: "e1"})
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{{StudentID: "u1", Score: -1.5}}, resp.Entries)
}

func TestService_GetLeaderboard_Empty(t *testing.T) {
	s := makeService(t)

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{ExamID: "e1"})
	require.NoError(t, err)
	require.Empty(t, resp.Entries)
}

func TestServer_PublishLeaderboardUpdated(t *testing.T) {
	type (
		inputs struct {
			receivedEvents []domain.EventResponseCreated
		}

		outputs struct {
			publishedEvents []domain.EventLeaderboardUpdated
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should publish correct event leaderboard.updated after receiving response.created": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventResponseCreated{
						{Response: response("e1", "u1", "1.1")},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1, "should receive 1 leaderboard updated event")
				require.Equal(t, domain.Leaderboard{
					ExamID: "e1",
					Entries: []domain.LeaderboardEntry{
						{StudentID: "u1", Score: 1.1},
					},
				}, out.publishedEvents[0].Leaderboard)
			},
		},

		"should publish 2 events leaderboard.updated after receiving events response.created for 2 different exams": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventResponseCreated{
						{Response: response("e1", "u1", "1.1")},
						{Response: response("e2", "u2", "2.2")},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 2, "should receive 2 leaderboard updated event")
			},
		},

		"should publish 1 event leaderboard.updated after receiving events response.created for the same exam within the publish interval": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventResponseCreated{
						{Response: response("e1", "u1", "1.1")},
						{Response: response("e1", "u2", "2.2")},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1, "should receive 1 leaderboard updated event")
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}

			eb := event.NewBus()

			var mu sync.Mutex
			eb.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.publishedEvents = append(out.publishedEvents, e.(domain.EventLeaderboardUpdated))
				mu.Unlock()
				return nil
			})

			s := makeService(t,
				withEventBus(eb),
			)

			for _, e := range in.receivedEvents {
				err := s.UpdateLeaderboard(context.Background(), e)
				require.NoError(t, err)
			}

			eb.Stop()

			tt.assert(t, out)
		})
	}
}

func TestService_SubscribesToResponseCreated(t *testing.T) {
	eb := event.NewBus()
	s := makeService(t, withEventBus(eb))

	eb.Publish(context.Background(), domain.EventResponseCreated{Response: response("e1", "u1", "2")})
	eb.Stop()

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{ExamID: "e1"})
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{{StudentID: "u1", Score: 2}}, resp.Entries)
}

func response(exam, student, score string) domain.Response {
	return domain.Response{
		ExamID:     exam,
		StudentID:  student,
		Score:      decimal.RequireFromString(score),
		SubmitTime: time.Now(),
	}
}

func makeService(t *testing.T, opts ...options) *leaderboard.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c)
}

type options func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}
