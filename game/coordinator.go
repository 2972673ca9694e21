package game

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rithiksai/scribble-game/logger"
)

// Coordinator runs the round state machine of every room: drawer rotation,
// word assignment, the countdown, guess adjudication, scoring and departure
// reconciliation. Every entry point takes the room lock, so events for one
// room are serialized while different rooms proceed in parallel.
type Coordinator struct {
	registry  *Registry
	transport Transport
	words     RandomWordsGenerator
	scheduler Scheduler
	settings  Settings
	feed      RoundFeed
	now       func() time.Time

	// generations are unique process-wide, so a callback can never match a
	// newer room that reuses the id of a deleted one.
	generations atomic.Uint64
}

type Option func(*Coordinator)

func WithRoundFeed(feed RoundFeed) Option {
	return func(c *Coordinator) { c.feed = feed }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(registry *Registry, transport Transport, words RandomWordsGenerator, scheduler Scheduler, settings Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:  registry,
		transport: transport,
		words:     words,
		scheduler: scheduler,
		settings:  settings,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// lockRoom resolves a live room and returns it locked.
func (c *Coordinator) lockRoom(roomId string) (*Room, bool) {
	room, ok := c.registry.Get(roomId)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, false
	}
	return room, true
}

// CreateRoom adds the connection to roomId, creating the room when it does not exist.
func (c *Coordinator) CreateRoom(connId, roomId, username string) error {
	for {
		room := c.registry.CreateOrGet(roomId)
		room.mu.Lock()
		if room.closed {
			// emptied and dropped between lookup and lock, the next lookup creates a fresh one
			room.mu.Unlock()
			continue
		}
		err := c.admit(room, connId, username)
		room.mu.Unlock()
		return err
	}
}

// JoinRoom adds the connection to an existing room. Unknown rooms are reported
// to the connection with an error event.
func (c *Coordinator) JoinRoom(connId, roomId, username string) error {
	room, ok := c.lockRoom(roomId)
	if !ok {
		c.transport.SendTo(connId, EVENT_ERROR, MessagePayload{Message: MESSAGE_ROOM_NOT_FOUND})
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomId)
	}
	defer room.mu.Unlock()

	return c.admit(room, connId, username)
}

func (c *Coordinator) admit(room *Room, connId, username string) error {
	player, err := c.registry.AddPlayer(room, connId, username)
	if errors.Is(err, ErrDuplicatePlayer) {
		logger.Debugf("[Room %s] %s joined twice, resending snapshot", room.id, connId)
		c.transport.JoinGroup(connId, room.id)
		c.transport.SendTo(connId, EVENT_ROOM_JOINED, c.snapshot(room))
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("[Room %s] %s (%s) joined. Players: %d", room.id, player.username, player.id, len(room.players))

	c.transport.JoinGroup(connId, room.id)
	c.transport.SendTo(connId, EVENT_ROOM_JOINED, c.snapshot(room))
	c.transport.SendToGroupExcept(room.id, connId, EVENT_PLAYER_JOINED, PlayerJoinedPayload{
		PlayerId: player.id,
		Username: player.username,
	})

	if len(room.players) >= MinPlayers && room.phase == PHASE_IDLE {
		c.startRound(room)
	}
	return nil
}

func (c *Coordinator) snapshot(room *Room) RoomJoinedPayload {
	payload := RoomJoinedPayload{
		RoomId:   room.id,
		Players:  room.playerViews(),
		IsActive: room.isActive,
	}
	if room.isActive {
		if drawer := room.drawer(); drawer != nil {
			id := drawer.id
			payload.CurrentDrawer = &id
		}
		payload.TimeLeft = room.roundTimeRemaining
		payload.WordLength = utf8.RuneCountInString(room.currentWord)
	}
	return payload
}

// StartRound moves the room to RUNNING with the next drawer. It is a no-op
// that leaves the room idle when fewer than two players are present.
func (c *Coordinator) StartRound(roomId string) {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return
	}
	defer room.mu.Unlock()

	c.startRound(room)
}

func (c *Coordinator) startRound(room *Room) {
	c.stopTimer(room)

	if len(room.players) < MinPlayers {
		logger.Infof("[Room %s] Not enough players to start a round (%d)", room.id, len(room.players))
		c.goIdle(room)
		return
	}

	words := c.words.Generate(1)
	if len(words) == 0 || words[0] == "" {
		logger.Criticalf("[Room %s] Word generator returned nothing, staying idle", room.id)
		c.goIdle(room)
		return
	}
	word := words[0]

	next := room.currentDrawerIndex + 1
	if room.drawerVacated {
		// the slot of the departed drawer now holds the player after them
		next = room.currentDrawerIndex
	}
	room.currentDrawerIndex = next % len(room.players)
	room.drawerVacated = false

	drawer := room.players[room.currentDrawerIndex]
	room.currentWord = word
	room.isActive = true
	room.phase = PHASE_RUNNING
	room.roundTimeRemaining = c.settings.roundSeconds()

	logger.Infof("[Room %s] Round started. Drawer: %s (index %d)", room.id, drawer.username, room.currentDrawerIndex)

	c.transport.SendToGroup(room.id, EVENT_SELECT_DRAWER, SelectDrawerPayload{
		DrawerId:       drawer.id,
		DrawerUsername: drawer.username,
		WordLength:     utf8.RuneCountInString(word),
	})
	c.transport.SendTo(drawer.id, EVENT_SELECT_DRAWER, DrawerWordPayload{
		DrawerId: drawer.id,
		Word:     word,
	})

	c.scheduleEvery(room, c.settings.TickInterval, c.tick)
}

func (c *Coordinator) tick(room *Room) {
	if room.phase != PHASE_RUNNING {
		return
	}

	room.roundTimeRemaining--
	logger.Debugf("[Room %s] Tick. Time left: %d", room.id, room.roundTimeRemaining)
	c.transport.SendToGroup(room.id, EVENT_TIME_LEFT, TimeLeftPayload{TimeLeft: room.roundTimeRemaining})

	if room.roundTimeRemaining <= 0 {
		logger.Infof("[Room %s] Time is up", room.id)
		c.endRound(room, "")
	}
}

// EndRound reveals the word and schedules the next round after the grace
// period. Calling it outside a running round does nothing.
func (c *Coordinator) EndRound(roomId string) {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return
	}
	defer room.mu.Unlock()

	c.endRound(room, "")
}

func (c *Coordinator) endRound(room *Room, winnerId string) {
	if room.phase != PHASE_RUNNING {
		return
	}
	c.stopTimer(room)

	word := room.currentWord
	players := room.playerViews()

	logger.Infof("[Room %s] Round ended. Word was: %s", room.id, word)
	c.transport.SendToGroup(room.id, EVENT_ROUND_END, RoundEndPayload{Word: word, Players: players})

	if c.feed != nil {
		result := RoundResult{
			RoomId:   room.id,
			Word:     word,
			WinnerId: winnerId,
			Players:  players,
			EndedAt:  c.now(),
		}
		if drawer := room.drawer(); drawer != nil {
			result.DrawerId = drawer.id
		}
		c.feed.Publish(result)
	}

	room.isActive = false
	room.phase = PHASE_GRACE
	room.currentWord = ""
	room.roundTimeRemaining = 0

	c.scheduleAfter(room, c.settings.GracePeriod, c.startRound)
}

// SubmitGuess adjudicates a guess. Guesses outside a running round, from the
// drawer, from non-members or made of whitespace are ignored.
func (c *Coordinator) SubmitGuess(roomId, playerId, text string) {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return
	}
	defer room.mu.Unlock()

	if err := c.adjudicate(room, playerId, text); err != nil {
		logger.Debugf("[Room %s] Guess from %s ignored: %v", room.id, playerId, err)
	}
}

func (c *Coordinator) adjudicate(room *Room, playerId, text string) error {
	if !room.isActive || room.phase != PHASE_RUNNING {
		return errors.New("no-active-round")
	}
	drawer := room.drawer()
	if drawer == nil || drawer.id == playerId {
		return errors.New("drawer-cannot-guess")
	}
	guesser := room.player(playerId)
	if guesser == nil {
		return ErrPlayerNotFound
	}
	guess := strings.TrimSpace(text)
	if guess == "" {
		return ErrInvalidGuess
	}

	isCorrect := strings.EqualFold(guess, room.currentWord)

	c.transport.SendToGroup(room.id, EVENT_PLAYER_GUESS, PlayerGuessPayload{
		PlayerId:  guesser.id,
		Username:  guesser.username,
		Guess:     text,
		IsCorrect: isCorrect,
	})

	if !isCorrect {
		return nil
	}

	scoreGained := room.roundTimeRemaining * c.settings.PointsPerSecond
	guesser.score += scoreGained
	drawer.score += (scoreGained + 1) / 2

	logger.Infof("[Room %s] %s guessed the word (+%d), drawer %s (+%d)", room.id, guesser.username, scoreGained, drawer.username, (scoreGained+1)/2)

	c.transport.SendToGroup(room.id, EVENT_CORRECT_GUESS, CorrectGuessPayload{
		Username:    guesser.username,
		ScoreGained: scoreGained,
	})

	c.endRound(room, guesser.id)
	return nil
}

// Leave removes a player and reconciles the round: the drawer index keeps
// pointing at the same logical drawer, and the round stops when the drawer
// left or fewer than two players remain.
func (c *Coordinator) Leave(roomId, playerId string) {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return
	}
	defer room.mu.Unlock()

	index := room.indexOf(playerId)
	if index < 0 {
		return
	}
	wasDrawer := !room.drawerVacated && index == room.currentDrawerIndex

	removed, _ := c.registry.RemovePlayer(room, playerId)
	c.transport.LeaveGroup(playerId, room.id)

	if wasDrawer {
		room.drawerVacated = true
	} else if index < room.currentDrawerIndex {
		room.currentDrawerIndex--
	}

	remaining := len(room.players)
	logger.Infof("[Room %s] %s (%s) left. Players: %d, was drawer: %v", room.id, removed.username, removed.id, remaining, wasDrawer)

	if remaining > 0 {
		c.transport.SendToGroup(room.id, EVENT_PLAYER_LEFT, PlayerLeftPayload{PlayerId: playerId})
	}

	if !wasDrawer && remaining >= MinPlayers {
		return
	}

	c.stopTimer(room)
	c.goIdle(room)

	if remaining == 0 {
		return
	}

	message := MESSAGE_NOT_ENOUGH_PLAYERS
	if wasDrawer {
		message = MESSAGE_DRAWER_LEFT
	}
	c.transport.SendToGroup(room.id, EVENT_SYSTEM_MESSAGE, MessagePayload{Message: message})

	if remaining >= MinPlayers {
		c.scheduleAfter(room, c.settings.RestartDelay, c.startRound)
	}
}

// RelaySystemMessage forwards a client notice to the room of a member.
func (c *Coordinator) RelaySystemMessage(roomId, senderId, message string) {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return
	}
	defer room.mu.Unlock()

	if room.indexOf(senderId) < 0 {
		return
	}
	c.transport.SendToGroup(room.id, EVENT_SYSTEM_MESSAGE, MessagePayload{Message: message})
}

// StopAll cancels every outstanding timer. Used on shutdown.
func (c *Coordinator) StopAll() {
	c.registry.locker.RLock()
	rooms := make([]*Room, 0, len(c.registry.rooms))
	for _, room := range c.registry.rooms {
		rooms = append(rooms, room)
	}
	c.registry.locker.RUnlock()

	for _, room := range rooms {
		room.mu.Lock()
		c.stopTimer(room)
		c.goIdle(room)
		room.mu.Unlock()
	}
}

func (c *Coordinator) goIdle(room *Room) {
	room.isActive = false
	room.phase = PHASE_IDLE
	room.currentWord = ""
	room.roundTimeRemaining = 0
}

// stopTimer cancels the outstanding timer, if any, and invalidates callbacks
// already in flight. Safe to call repeatedly.
func (c *Coordinator) stopTimer(room *Room) {
	if room.timer != nil {
		room.timer.Stop()
		room.timer = nil
	}
	room.generation = c.generations.Add(1)
}

func (c *Coordinator) scheduleEvery(room *Room, interval time.Duration, fn func(*Room)) {
	c.stopTimer(room)
	room.timer = c.scheduler.Every(interval, c.callback(room, fn))
}

func (c *Coordinator) scheduleAfter(room *Room, delay time.Duration, fn func(*Room)) {
	c.stopTimer(room)
	room.timer = c.scheduler.After(delay, c.callback(room, fn))
}

// callback binds fn to the room id and current generation. At fire time the
// room is looked up again; a vanished room or a newer generation drops the call.
func (c *Coordinator) callback(room *Room, fn func(*Room)) func() {
	roomId := room.id
	generation := room.generation
	return func() {
		if err := c.fire(roomId, generation, fn); err != nil {
			logger.Debugf("[Room %s] Timer dropped: %v", roomId, err)
		}
	}
}

func (c *Coordinator) fire(roomId string, generation uint64, fn func(*Room)) error {
	room, ok := c.lockRoom(roomId)
	if !ok {
		return fmt.Errorf("%w: room %s is gone", ErrStaleTimer, roomId)
	}
	defer room.mu.Unlock()

	if room.generation != generation {
		return fmt.Errorf("%w: generation %d, room is at %d", ErrStaleTimer, generation, room.generation)
	}
	fn(room)
	return nil
}
