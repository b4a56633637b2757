package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"couple-service/internal/models"
)

// Room kinds.
const (
	KindChat = "chat"
	KindGame = "game"
)

// Hub maintains active websocket rooms, one per couple chat and kind.
type Hub struct {
	chatRooms map[int]map[*Client]bool
	gameRooms map[int]map[*Client]bool
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		chatRooms: make(map[int]map[*Client]bool),
		gameRooms: make(map[int]map[*Client]bool),
	}
}

func (h *Hub) rooms(kind string) map[int]map[*Client]bool {
	if kind == KindGame {
		return h.gameRooms
	}
	return h.chatRooms
}

func (h *Hub) add(kind string, chatID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := h.rooms(kind)
	if _, ok := rooms[chatID]; !ok {
		rooms[chatID] = make(map[*Client]bool)
	}
	rooms[chatID][client] = true
}

func (h *Hub) remove(kind string, chatID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := h.rooms(kind)
	if clients, ok := rooms[chatID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(rooms, chatID)
		}
	}
}

// snapshot copies the room so writes happen without holding the lock.
func (h *Hub) snapshot(kind string, chatID int) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.rooms(kind)[chatID]
	out := make([]*Client, 0, len(clients))
	for c := range clients {
		out = append(out, c)
	}
	return out
}

// CloseAll closes every connection. Read loops then exit and unregister themselves.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var clients []*Client
	for _, rooms := range []map[int]map[*Client]bool{h.chatRooms, h.gameRooms} {
		for _, room := range rooms {
			for c := range room {
				clients = append(clients, c)
			}
		}
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.Close()
	}
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(kind string, chatID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms(kind)[chatID])
}

// AddChatClient registers a connection to a chat room.
func (h *Hub) AddChatClient(chatID int, client *Client) {
	h.add(KindChat, chatID, client)
}

// RemoveChatClient removes a chat connection.
func (h *Hub) RemoveChatClient(chatID int, client *Client) {
	h.remove(KindChat, chatID, client)
}

// AddGameClient registers a connection to a game room.
func (h *Hub) AddGameClient(chatID int, client *Client) {
	h.add(KindGame, chatID, client)
}

// RemoveGameClient removes a game connection.
func (h *Hub) RemoveGameClient(chatID int, client *Client) {
	h.remove(KindGame, chatID, client)
}

// BroadcastChatMessage sends a new message to all clients in a chat.
func (h *Hub) BroadcastChatMessage(chatID int, msg interface{}) {
	h.broadcast(KindChat, chatID, models.ChatEvent{Type: "message", Message: msg})
}

// BroadcastDeletion notifies clients of a delete-for-all event.
func (h *Hub) BroadcastDeletion(chatID int, messageID int) {
	h.broadcast(KindChat, chatID, models.ChatEvent{Type: "delete_for_all", MessageID: messageID})
}

// BroadcastMemory notifies chat clients that the memories wall changed.
func (h *Hub) BroadcastMemory(chatID int, event models.MemoryEvent) {
	h.broadcast(KindChat, chatID, event)
}

// RelayGameMessage forwards payload to every game connection of the chat except
// from. It returns the number of clients that received it.
func (h *Hub) RelayGameMessage(chatID int, from *Client, payload []byte) int {
	delivered := 0
	for _, client := range h.snapshot(KindGame, chatID) {
		if client == from {
			continue
		}
		if err := client.WriteText(payload); err != nil {
			h.dropClient(KindGame, chatID, client, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) broadcast(kind string, chatID int, event interface{}) {
	for _, client := range h.snapshot(kind, chatID) {
		if err := client.WriteJSON(event); err != nil {
			h.dropClient(kind, chatID, client, err)
		}
	}
}

func (h *Hub) dropClient(kind string, chatID int, client *Client, err error) {
	zap.L().Warn("websocket write failed", append(client.Info().Fields(), zap.Error(err))...)
	_ = client.Close()
	h.remove(kind, chatID, client)
	publishWSEvent(context.Background(), kind, chatID, "ws_error", client.Info(), err.Error())
}
