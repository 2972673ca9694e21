package ws

import "errors"

var (
	ErrSendBufferFull   = errors.New("send-buffer-full")
	ErrConnectionClosed = errors.New("connection-closed")
	ErrHubClosed        = errors.New("hub-closed")
	ErrInvalidRequest   = errors.New("invalid-request")
)
