package game

import (
	"sync"
	"time"
)

type RoomPhase int

const (
	PHASE_IDLE RoomPhase = iota
	PHASE_RUNNING
	PHASE_GRACE
)

func (p RoomPhase) String() string {
	switch p {
	case PHASE_RUNNING:
		return "running"
	case PHASE_GRACE:
		return "grace"
	default:
		return "idle"
	}
}

// NoDrawer is the drawer index of a room that never started a round.
const NoDrawer = -1

const MinPlayers = 2

type Player struct {
	id       string
	username string
	score    int
}

func (p *Player) Id() string       { return p.id }
func (p *Player) Username() string { return p.username }
func (p *Player) Score() int       { return p.score }

func (p *Player) view() PlayerView {
	return PlayerView{Id: p.id, Username: p.username, Score: p.score}
}

type Room struct {
	mu sync.Mutex

	// Identity
	id string

	// Players, in join order. Order defines rotation.
	players []*Player

	// Round state, owned by the Coordinator
	phase              RoomPhase
	currentDrawerIndex int
	currentWord        string
	isActive           bool
	roundTimeRemaining int

	// drawerVacated is set when the drawer left: currentDrawerIndex then
	// points at the player who followed them, and that player draws next.
	drawerVacated bool

	// Scheduling. generation changes every time the outstanding timer is replaced,
	// so callbacks carrying an older value are stale.
	timer      Timer
	generation uint64

	// closed is set once the registry dropped the room.
	closed bool
}

func newRoom(id string) *Room {
	return &Room{
		id:                 id,
		players:            make([]*Player, 0, 8),
		phase:              PHASE_IDLE,
		currentDrawerIndex: NoDrawer,
	}
}

func (r *Room) Id() string {
	return r.id
}

func (r *Room) indexOf(playerId string) int {
	for i, p := range r.players {
		if p.id == playerId {
			return i
		}
	}
	return -1
}

func (r *Room) player(playerId string) *Player {
	if i := r.indexOf(playerId); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) drawer() *Player {
	if r.currentDrawerIndex < 0 || r.currentDrawerIndex >= len(r.players) {
		return nil
	}
	return r.players[r.currentDrawerIndex]
}

func (r *Room) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, p.view())
	}
	return views
}

func (r *Room) description() RoomDescription {
	return RoomDescription{Id: r.id, PlayerCount: len(r.players), IsActive: r.isActive}
}

type PlayerView struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type RoomDescription struct {
	Id          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	IsActive    bool   `json:"isActive"`
}

type Settings struct {
	RoundDuration   time.Duration
	GracePeriod     time.Duration
	RestartDelay    time.Duration
	TickInterval    time.Duration
	PointsPerSecond int
}

func DefaultSettings() Settings {
	return Settings{
		RoundDuration:   60 * time.Second,
		GracePeriod:     5 * time.Second,
		RestartDelay:    3 * time.Second,
		TickInterval:    time.Second,
		PointsPerSecond: 10,
	}
}

func (s Settings) roundSeconds() int {
	return int(s.RoundDuration / s.TickInterval)
}
