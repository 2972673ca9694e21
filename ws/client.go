package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rithiksai/scribble-game/game"
	"github.com/rithiksai/scribble-game/logger"
	"golang.org/x/time/rate"
)

// Game is what a connection drives. *game.Coordinator implements it.
type Game interface {
	CreateRoom(connId, roomId, username string) error
	JoinRoom(connId, roomId, username string) error
	SubmitGuess(roomId, playerId, text string)
	Leave(roomId, playerId string)
	RelaySystemMessage(roomId, senderId, message string)
}

type Options struct {
	GuessRate    rate.Limit
	GuessBurst   int
	SendBuffer   int
	PingInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		GuessRate:    2,
		GuessBurst:   5,
		SendBuffer:   256,
		PingInterval: pingPeriod,
	}
}

type Client struct {
	id      string
	hub     *Hub
	game    Game
	socket  Socket
	send    chan []byte
	limiter *rate.Limiter
	ping    time.Duration

	closeOnce sync.Once
	done      chan struct{}
	reason    string

	// roomId is only touched by the read pump.
	roomId string
}

func NewClient(id string, hub *Hub, g Game, socket Socket, opts Options) *Client {
	return &Client{
		id:      id,
		hub:     hub,
		game:    g,
		socket:  socket,
		send:    make(chan []byte, opts.SendBuffer),
		limiter: rate.NewLimiter(opts.GuessRate, opts.GuessBurst),
		ping:    opts.PingInterval,
		done:    make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

// Close asks the write pump to send a close frame and drop the socket. The
// read pump then fails and the client leaves its room. Safe to call from
// anywhere, any number of times.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.done)
	})
}

func (c *Client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// ReadPump decodes frames and dispatches them until the socket fails. It then
// runs departure for the current room and unregisters the client.
func (c *Client) ReadPump() {
	defer c.disconnect()

	for {
		data, err := c.socket.Read()
		if err != nil {
			logger.Debugf("[Conn %s] Read ended: %v", c.id, err)
			return
		}

		envelope := Envelope{}
		if err := json.Unmarshal(data, &envelope); err != nil {
			logger.Debugf("[Conn %s] Dropping malformed frame: %v", c.id, err)
			continue
		}
		c.dispatch(envelope)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.ping)
	defer func() {
		ticker.Stop()
		c.socket.Close(c.reason)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.socket.Write(data); err != nil {
				c.Close("write-failed")
				return
			}
		case <-ticker.C:
			if err := c.socket.Ping(); err != nil {
				c.Close("ping-failed")
				return
			}
		}
	}
}

func (c *Client) disconnect() {
	if c.roomId != "" {
		c.game.Leave(c.roomId, c.id)
		c.roomId = ""
	}
	c.hub.Unregister(c)
	c.Close("")
}

func (c *Client) dispatch(envelope Envelope) {
	switch envelope.Event {
	case game.EVENT_CREATE_ROOM, game.EVENT_JOIN_ROOM:
		req := roomRequest{}
		if err := decode(envelope.Data, &req); err != nil || strings.TrimSpace(req.RoomId) == "" {
			c.reject(envelope.Event)
			return
		}
		c.enterRoom(envelope.Event, req)

	case game.EVENT_GUESS:
		req := guessRequest{}
		if err := decode(envelope.Data, &req); err != nil {
			c.reject(envelope.Event)
			return
		}
		if !c.limiter.Allow() {
			logger.Debugf("[Conn %s] Guess rate limited", c.id)
			return
		}
		c.game.SubmitGuess(c.target(req.RoomId), c.id, req.Guess)

	case game.EVENT_DRAW_LINE:
		if c.roomId != "" {
			c.hub.SendToGroupExcept(c.roomId, c.id, game.EVENT_DRAW_LINE, envelope.Data)
		}

	case game.EVENT_CLEAR_CANVAS:
		if c.roomId != "" {
			c.hub.SendToGroupExcept(c.roomId, c.id, game.EVENT_CLEAR_CANVAS, nil)
		}

	case game.EVENT_SYSTEM_MESSAGE:
		req := systemMessageRequest{}
		if err := decode(envelope.Data, &req); err != nil {
			c.reject(envelope.Event)
			return
		}
		c.game.RelaySystemMessage(c.target(req.RoomId), c.id, req.Message)

	default:
		logger.Debugf("[Conn %s] Unknown event %q", c.id, envelope.Event)
	}
}

// enterRoom moves the connection to another room. The previous room is left
// only once the new one has accepted the connection, so a failed join keeps
// the player where they were.
func (c *Client) enterRoom(event string, req roomRequest) {
	var err error
	if event == game.EVENT_CREATE_ROOM {
		err = c.game.CreateRoom(c.id, req.RoomId, req.Username)
	} else {
		err = c.game.JoinRoom(c.id, req.RoomId, req.Username)
	}
	if err != nil {
		logger.Debugf("[Conn %s] %s %s failed: %v", c.id, event, req.RoomId, err)
		return
	}

	if c.roomId != "" && c.roomId != req.RoomId {
		c.game.Leave(c.roomId, c.id)
	}
	c.roomId = req.RoomId
}

func (c *Client) target(roomId string) string {
	if roomId == "" {
		return c.roomId
	}
	return roomId
}

func (c *Client) reject(event string) {
	logger.Debugf("[Conn %s] Invalid %s payload", c.id, event)
	c.hub.SendTo(c.id, game.EVENT_ERROR, game.MessagePayload{Message: ErrInvalidRequest.Error()})
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(data, v)
}
