package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/examiner/internal/domain"
)

const maxConcurrent = 100

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishResponseCreated tells the student their response has been graded.
func (a *API) PublishResponseCreated(ctx context.Context, e domain.EventResponseCreated) error {
	r := e.Response

	data := ResponseSummary{
		ResponseID:   r.ResponseID,
		ExamID:       r.ExamID,
		ExamTitle:    r.ExamTitle,
		Score:        float(r.Score),
		TotalMarks:   float(r.TotalMarks),
		CorrectCount: r.CorrectCount,
		WrongCount:   r.WrongCount,
		Unattempted:  r.Unattempted,
		SubmitTime:   r.SubmitTime,
	}

	return a.publishNotification(ctx, r.StudentID, e.Name(), data)
}

// PublishLeaderboardUpdated sends the new leaderboard to every student on it.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := toLeaderboard(&e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.StudentID, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, UserChannel(a.prefix, user), b).Err()
}

// UserChannel is the Redis channel notifications of a user are published on.
func UserChannel(prefix, user string) string {
	return fmt.Sprintf("%s:user:%s", prefix, user)
}
