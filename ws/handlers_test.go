package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rithiksai/scribble-game/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func newTestServer(t *testing.T) (*httptest.Server, *game.Coordinator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	coordinator := game.NewCoordinator(
		game.NewRegistry(),
		hub,
		game.NewWordList([]string{"apple"}),
		game.NewClockScheduler(),
		game.DefaultSettings(),
	)
	handler := NewHandler(hub, coordinator, coordinator.Registry(), []string{testOrigin}, DefaultOptions())

	router := gin.New()
	router.GET("/ws", handler.WebsocketHandler)
	router.GET("/api/rooms", handler.ListRoomsHandler)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		coordinator.StopAll()
		server.Close()
	})
	return server, coordinator
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", testOrigin)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame(t, event, data)))
}

// receive reads the next frame, skipping countdown ticks.
func receive(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		env := Envelope{}
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Event != game.EVENT_TIME_LEFT {
			return env
		}
	}
}

func receiveEvents(t *testing.T, conn *websocket.Conn, n int) []Envelope {
	t.Helper()
	envs := make([]Envelope, 0, n)
	for range n {
		envs = append(envs, receive(t, conn))
	}
	return envs
}

func eventNames(envs []Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Event)
	}
	return names
}

func TestWebsocketHandler_GameFlow(t *testing.T) {
	server, _ := newTestServer(t)
	alice := dial(t, server)
	bob := dial(t, server)

	send(t, alice, game.EVENT_CREATE_ROOM, map[string]string{"roomId": "r1", "username": "Alice"})
	joined := receive(t, alice)
	assert.Equal(t, game.EVENT_ROOM_JOINED, joined.Event)
	snapshot := game.RoomJoinedPayload{}
	require.NoError(t, json.Unmarshal(joined.Data, &snapshot))
	assert.Equal(t, "r1", snapshot.RoomId)
	assert.Len(t, snapshot.Players, 1)
	assert.False(t, snapshot.IsActive)
	assert.Nil(t, snapshot.CurrentDrawer)

	send(t, bob, game.EVENT_JOIN_ROOM, map[string]string{"roomId": "r1", "username": "Bob"})

	bobEvents := receiveEvents(t, bob, 2)
	assert.Equal(t, []string{game.EVENT_ROOM_JOINED, game.EVENT_SELECT_DRAWER}, eventNames(bobEvents))
	drawer := game.SelectDrawerPayload{}
	require.NoError(t, json.Unmarshal(bobEvents[1].Data, &drawer))
	assert.Equal(t, "Alice", drawer.DrawerUsername)
	assert.Equal(t, 5, drawer.WordLength)

	aliceEvents := receiveEvents(t, alice, 3)
	assert.Equal(t, []string{game.EVENT_PLAYER_JOINED, game.EVENT_SELECT_DRAWER, game.EVENT_SELECT_DRAWER}, eventNames(aliceEvents))
	word := game.DrawerWordPayload{}
	require.NoError(t, json.Unmarshal(aliceEvents[2].Data, &word))
	assert.Equal(t, "apple", word.Word)

	// strokes reach bob only
	send(t, alice, game.EVENT_DRAW_LINE, map[string]int{"x0": 1, "y0": 1, "x1": 2, "y1": 2})
	stroke := receive(t, bob)
	assert.Equal(t, game.EVENT_DRAW_LINE, stroke.Event)
	assert.JSONEq(t, `{"x0":1,"y0":1,"x1":2,"y1":2}`, string(stroke.Data))

	send(t, bob, game.EVENT_GUESS, map[string]string{"roomId": "r1", "guess": "Apple"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		events := receiveEvents(t, conn, 3)
		assert.Equal(t, []string{game.EVENT_PLAYER_GUESS, game.EVENT_CORRECT_GUESS, game.EVENT_ROUND_END}, eventNames(events))
		end := game.RoundEndPayload{}
		require.NoError(t, json.Unmarshal(events[2].Data, &end))
		assert.Equal(t, "apple", end.Word)
	}

	// bob leaves, alice is told the round cannot go on
	bob.Close()
	aliceEvents = receiveEvents(t, alice, 2)
	assert.Equal(t, []string{game.EVENT_PLAYER_LEFT, game.EVENT_SYSTEM_MESSAGE}, eventNames(aliceEvents))
	assert.JSONEq(t, `{"message":"`+game.MESSAGE_NOT_ENOUGH_PLAYERS+`"}`, string(aliceEvents[1].Data))
}

func TestWebsocketHandler_JoinUnknownRoom(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, game.EVENT_JOIN_ROOM, map[string]string{"roomId": "nope", "username": "Alice"})

	env := receive(t, conn)
	assert.Equal(t, game.EVENT_ERROR, env.Event)
	assert.JSONEq(t, `{"message":"Room does not exist"}`, string(env.Data))
}

func TestWebsocketHandler_ForbiddenOrigin(t *testing.T) {
	server, _ := newTestServer(t)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", header)

	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestListRoomsHandler(t *testing.T) {
	server, coordinator := newTestServer(t)
	require.NoError(t, coordinator.CreateRoom("p0", "r2", "user-p0"))
	require.NoError(t, coordinator.CreateRoom("p1", "r1", "user-p1"))
	require.NoError(t, coordinator.JoinRoom("p2", "r1", "user-p2"))

	res, err := http.Get(server.URL + "/api/rooms")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	rooms := []game.RoomDescription{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rooms))
	assert.Equal(t, []game.RoomDescription{
		{Id: "r1", PlayerCount: 2, IsActive: true},
		{Id: "r2", PlayerCount: 1},
	}, rooms)
}

func TestListRoomsHandler_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewHub(), nil, game.NewRegistry(), nil, DefaultOptions())
	router := gin.New()
	router.GET("/api/rooms", handler.ListRoomsHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())
}
