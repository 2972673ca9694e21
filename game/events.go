package game

// Outbound events.
const (
	EVENT_ROOM_JOINED    = "room-joined"
	EVENT_PLAYER_JOINED  = "player-joined"
	EVENT_PLAYER_LEFT    = "player-left"
	EVENT_SELECT_DRAWER  = "select-drawer"
	EVENT_TIME_LEFT      = "time-left"
	EVENT_ROUND_END      = "round-end"
	EVENT_PLAYER_GUESS   = "player-guess"
	EVENT_CORRECT_GUESS  = "correct-guess"
	EVENT_SYSTEM_MESSAGE = "system-message"
	EVENT_ERROR          = "error"
)

// Inbound events.
const (
	EVENT_CREATE_ROOM  = "create-room"
	EVENT_JOIN_ROOM    = "join-room"
	EVENT_GUESS        = "guess"
	EVENT_DRAW_LINE    = "draw-line"
	EVENT_CLEAR_CANVAS = "clear-canvas"
)

const (
	MESSAGE_DRAWER_LEFT        = "The drawer has left the game. Waiting for more players..."
	MESSAGE_NOT_ENOUGH_PLAYERS = "Not enough players to continue. Waiting for more players..."
	MESSAGE_ROOM_NOT_FOUND     = "Room does not exist"
)

type RoomJoinedPayload struct {
	RoomId        string       `json:"roomId"`
	Players       []PlayerView `json:"players"`
	IsActive      bool         `json:"isActive"`
	CurrentDrawer *string      `json:"currentDrawer"`
	TimeLeft      int          `json:"timeLeft"`
	WordLength    int          `json:"wordLength"`
}

type PlayerJoinedPayload struct {
	PlayerId string `json:"playerId"`
	Username string `json:"username"`
}

type PlayerLeftPayload struct {
	PlayerId string `json:"playerId"`
}

type SelectDrawerPayload struct {
	DrawerId       string `json:"drawerId"`
	DrawerUsername string `json:"drawerUsername"`
	WordLength     int    `json:"wordLength"`
}

type DrawerWordPayload struct {
	DrawerId string `json:"drawerId"`
	Word     string `json:"word"`
}

type TimeLeftPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type RoundEndPayload struct {
	Word    string       `json:"word"`
	Players []PlayerView `json:"players"`
}

type PlayerGuessPayload struct {
	PlayerId  string `json:"playerId"`
	Username  string `json:"username"`
	Guess     string `json:"guess"`
	IsCorrect bool   `json:"isCorrect"`
}

type CorrectGuessPayload struct {
	Username    string `json:"username"`
	ScoreGained int    `json:"scoreGained"`
}

type MessagePayload struct {
	Message string `json:"message"`
}
