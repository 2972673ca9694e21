package ws

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rithiksai/scribble-game/game"
	"github.com/rithiksai/scribble-game/logger"
)

type RoomLister interface {
	Describe() []game.RoomDescription
}

type Handler struct {
	hub      *Hub
	game     Game
	rooms    RoomLister
	options  Options
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, g Game, rooms RoomLister, allowedOrigins []string, opts Options) *Handler {
	return &Handler{
		hub:     hub,
		game:    g,
		rooms:   rooms,
		options: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// WebsocketHandler upgrades the request and serves the connection until it closes.
func (h *Handler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warningf("WS upgrade failed from %s: %v", ctx.ClientIP(), err)
		return
	}

	client := NewClient(uuid.NewString(), h.hub, h.game, NewWebsocketConnection(conn), h.options)
	if err := h.hub.Register(client); err != nil {
		logger.Warningf("[Conn %s] Rejected: %v", client.id, err)
		client.socket.Close(err.Error())
		return
	}

	logger.Infof("[Conn %s] Connected from %s", client.id, ctx.ClientIP())
	go client.WritePump()
	client.ReadPump()
	logger.Infof("[Conn %s] Disconnected", client.id)
}

func (h *Handler) ListRoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.rooms.Describe())
}
