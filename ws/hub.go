package ws

import (
	"sync"

	"github.com/rithiksai/scribble-game/logger"
)

// Hub tracks live connections and the room groups they belong to. It is the
// game.Transport of the server: every send encodes once and queues the frame
// on each recipient without blocking. A recipient whose queue is full is
// disconnected.
type Hub struct {
	locker  sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) error {
	h.locker.Lock()
	defer h.locker.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.clients[c.id] = c
	logger.Debugf("[Conn %s] Registered. Connections: %d", c.id, len(h.clients))
	return nil
}

func (h *Hub) Unregister(c *Client) {
	h.locker.Lock()
	defer h.locker.Unlock()

	if current, ok := h.clients[c.id]; !ok || current != c {
		return
	}
	delete(h.clients, c.id)
	for roomId, members := range h.groups {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, roomId)
		}
	}
	logger.Debugf("[Conn %s] Unregistered. Connections: %d", c.id, len(h.clients))
}

func (h *Hub) JoinGroup(connId, roomId string) {
	h.locker.Lock()
	defer h.locker.Unlock()

	client, ok := h.clients[connId]
	if !ok {
		return
	}
	if h.groups[roomId] == nil {
		h.groups[roomId] = make(map[string]*Client)
	}
	h.groups[roomId][connId] = client
}

func (h *Hub) LeaveGroup(connId, roomId string) {
	h.locker.Lock()
	defer h.locker.Unlock()

	members, ok := h.groups[roomId]
	if !ok {
		return
	}
	delete(members, connId)
	if len(members) == 0 {
		delete(h.groups, roomId)
	}
}

func (h *Hub) SendTo(connId, event string, payload any) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.locker.RLock()
	client, found := h.clients[connId]
	h.locker.RUnlock()

	if found {
		h.deliver(client, data)
	}
}

func (h *Hub) SendToGroup(roomId, event string, payload any) {
	h.SendToGroupExcept(roomId, "", event, payload)
}

func (h *Hub) SendToGroupExcept(roomId, senderId, event string, payload any) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.locker.RLock()
	recipients := make([]*Client, 0, len(h.groups[roomId]))
	for connId, client := range h.groups[roomId] {
		if connId != senderId {
			recipients = append(recipients, client)
		}
	}
	h.locker.RUnlock()

	for _, client := range recipients {
		h.deliver(client, data)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	data, err := encode(event, payload)
	if err != nil {
		logger.Criticalf("Could not encode %s event: %v", event, err)
		return nil, false
	}
	return data, true
}

func (h *Hub) deliver(c *Client, data []byte) {
	err := c.enqueue(data)
	if err == ErrSendBufferFull {
		logger.Warningf("[Conn %s] Send buffer full, disconnecting", c.id)
		c.Close(ErrSendBufferFull.Error())
	}
}

// GroupSize is the number of connections in a room group.
func (h *Hub) GroupSize(roomId string) int {
	h.locker.RLock()
	defer h.locker.RUnlock()
	return len(h.groups[roomId])
}

func (h *Hub) Len() int {
	h.locker.RLock()
	defer h.locker.RUnlock()
	return len(h.clients)
}

// Close refuses new connections and closes every open one. Each closed
// connection leaves its room as if the client had disconnected.
func (h *Hub) Close() {
	h.locker.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.locker.Unlock()

	logger.Infof("Closing %d connections", len(clients))
	for _, client := range clients {
		client.Close("server-shutdown")
	}
}
