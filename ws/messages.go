package ws

import "encoding/json"

// Envelope is the frame format in both directions: {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: payload})
}

type roomRequest struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
}

type guessRequest struct {
	RoomId string `json:"roomId"`
	Guess  string `json:"guess"`
}

type systemMessageRequest struct {
	RoomId  string `json:"roomId"`
	Message string `json:"message"`
}
