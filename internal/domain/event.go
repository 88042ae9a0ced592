package domain

const (
	EventNameResponseCreated    = "response.created"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventResponseCreated struct {
	Response Response
}

func (EventResponseCreated) Name() string { return EventNameResponseCreated }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
