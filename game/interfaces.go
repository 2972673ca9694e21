package game

import "time"

// Transport is the connection-group messaging fabric. Implementations must not block:
// the coordinator emits while holding a room lock.
type Transport interface {
	SendTo(connId, event string, payload any)
	SendToGroup(roomId, event string, payload any)
	SendToGroupExcept(roomId, senderId, event string, payload any)
	JoinGroup(connId, roomId string)
	LeaveGroup(connId, roomId string)
}

type RandomWordsGenerator interface {
	Generate(count int) []string
}

type Timer interface {
	Stop()
}

type Scheduler interface {
	Every(interval time.Duration, fn func()) Timer
	After(delay time.Duration, fn func()) Timer
}

type RoundFeed interface {
	Publish(result RoundResult)
}

type RoundResult struct {
	RoomId   string       `json:"roomId"`
	Word     string       `json:"word"`
	DrawerId string       `json:"drawerId"`
	WinnerId string       `json:"winnerId,omitempty"`
	Players  []PlayerView `json:"players"`
	EndedAt  time.Time    `json:"endedAt"`
}
