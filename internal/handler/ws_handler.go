package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/answerly-api/internal/service"
	"github.com/yourusername/answerly-api/internal/websocket"
)

// WSHandler обрабатывает подключения к живой ленте отправок
type WSHandler struct {
	setService *service.QuestionSetService
	hub        *websocket.Hub
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает обработчик WebSocket.
// allowedOrigins синхронизирован с настройкой CORS.
func NewWSHandler(setService *service.QuestionSetService, hub *websocket.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &WSHandler{
		setService: setService,
		hub:        hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Не браузерный клиент
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
				return false
			},
		},
	}
}

// LiveFeed подписывает владельца набора на события новых отправок
func (h *WSHandler) LiveFeed(c *gin.Context) {
	slug := c.MustGet(ctxSlug).(string)
	viewer := viewerFromContext(c)

	set, owner, err := h.setService.Resolve(c.Request.Context(), slug, viewer)
	if err != nil {
		handleError(c, err)
		return
	}
	if !owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Live feed is available to the owner only"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("WebSocket: upgrade failed for set %s: %v", slug, err)
		return
	}

	log.Printf("WebSocket: owner %d subscribed to live feed of %s", viewer.UserID, set.Slug)
	websocket.NewClient(h.hub, conn, set.Slug, viewer.UserID).Start()
}
