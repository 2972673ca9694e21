package game

import "errors"

var (
	ErrRoomNotFound    = errors.New("room-not-found")
	ErrDuplicatePlayer = errors.New("duplicate-player")
	ErrPlayerNotFound  = errors.New("player-not-found")
)

var ErrInvalidGuess = errors.New("invalid-guess")

// ErrStaleTimer marks a timer callback that outlived its room or its round.
var ErrStaleTimer = errors.New("stale-timer")
