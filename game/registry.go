package game

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rithiksai/scribble-game/logger"
)

// Registry maps room ids to rooms. The mapping has its own lock; each room's
// player sequence is guarded by the room lock, which callers of AddPlayer and
// RemovePlayer must hold. Lock order is always room first, then registry.
type Registry struct {
	locker sync.RWMutex
	rooms  map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

func (reg *Registry) CreateOrGet(roomId string) *Room {
	reg.locker.Lock()
	defer reg.locker.Unlock()

	if room, ok := reg.rooms[roomId]; ok {
		return room
	}

	room := newRoom(roomId)
	reg.rooms[roomId] = room
	logger.Infof("[Room %s] Created", roomId)
	return room
}

func (reg *Registry) Get(roomId string) (*Room, bool) {
	reg.locker.RLock()
	defer reg.locker.RUnlock()

	room, ok := reg.rooms[roomId]
	return room, ok
}

// AddPlayer appends a player with a zero score. The room lock must be held.
func (reg *Registry) AddPlayer(room *Room, playerId, username string) (*Player, error) {
	if room.closed {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, room.id)
	}
	if existing := room.player(playerId); existing != nil {
		return existing, fmt.Errorf("%w: %s in %s", ErrDuplicatePlayer, playerId, room.id)
	}

	player := &Player{id: playerId, username: username}
	room.players = append(room.players, player)
	return player, nil
}

// RemovePlayer drops a player by id. When the room ends up empty it is deleted
// from the registry. The room lock must be held.
func (reg *Registry) RemovePlayer(room *Room, playerId string) (*Player, bool) {
	i := room.indexOf(playerId)
	if i < 0 {
		return nil, false
	}

	removed := room.players[i]
	room.players = append(room.players[:i], room.players[i+1:]...)

	if len(room.players) == 0 {
		reg.delete(room)
	}
	return removed, true
}

func (reg *Registry) delete(room *Room) {
	reg.locker.Lock()
	defer reg.locker.Unlock()

	room.closed = true
	if current, ok := reg.rooms[room.id]; ok && current == room {
		delete(reg.rooms, room.id)
		logger.Infof("[Room %s] Deleted (empty)", room.id)
	}
}

// Describe lists every room, sorted by id.
func (reg *Registry) Describe() []RoomDescription {
	reg.locker.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.locker.RUnlock()

	descriptions := make([]RoomDescription, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed {
			descriptions = append(descriptions, room.description())
		}
		room.mu.Unlock()
	}

	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Id < descriptions[j].Id
	})
	return descriptions
}

func (reg *Registry) Len() int {
	reg.locker.RLock()
	defer reg.locker.RUnlock()
	return len(reg.rooms)
}
