package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения. Лента только на запись.
	maxMessageSize = 512

	// Размер буфера канала отправки
	defaultClientBufferSize = 64
)

// Client является посредником между WebSocket соединением и hub.
// Каждый клиент подписан ровно на одну комнату (slug набора).
type Client struct {
	UserID       uint
	ConnectionID string

	room string
	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send      chan []byte
	closeOnce sync.Once
}

// NewClient создает клиента для комнаты
func NewClient(hub *Hub, conn *websocket.Conn, room string, userID uint) *Client {
	return &Client{
		UserID:       userID,
		ConnectionID: uuid.NewString(),
		room:         room,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, defaultClientBufferSize),
	}
}

// closeSend закрывает канал отправки один раз
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump читает управляющие кадры и отслеживает разрыв соединения.
// Сообщения от клиента игнорируются.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Printf("[WebSocket] Read pump stopped for user %d (conn %s, room %s)", c.UserID, c.ConnectionID, c.room)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[WebSocket] SetReadDeadline error (conn %s): %v", c.ConnectionID, err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error (conn %s): %v", c.ConnectionID, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Хаб закрыл канал клиента
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WebSocket] Write error (conn %s): %v", c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}
