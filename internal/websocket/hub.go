package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub хранит подключенных клиентов, сгруппированных по комнатам
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub создает пустой хаб
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Register добавляет клиента в его комнату
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.room]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.room] = room
	}
	room[c] = struct{}{}
	log.Printf("[Hub] Client %s joined room %s (%d in room)", c.ConnectionID, c.room, len(room))
}

// Unregister удаляет клиента и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	room, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.room)
	}
	c.closeSend()
}

// BroadcastJSON отправляет событие всем клиентам комнаты.
// Клиенты с переполненным буфером отключаются.
func (h *Hub) BroadcastJSON(room string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			log.Printf("[Hub] Send buffer full for client %s in room %s, disconnecting", c.ConnectionID, room)
			h.removeLocked(c)
		}
	}
	return nil
}

// RoomSize возвращает количество клиентов в комнате
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount возвращает общее количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// Rooms возвращает slug всех комнат, в которых есть клиенты
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// CloseRoom отключает всех клиентов комнаты (например, после удаления набора)
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		h.removeLocked(c)
	}
}
