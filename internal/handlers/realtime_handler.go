package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"siraqemir/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.ChangeHub
}

func NewRealtimeHandler(hub *realtime.ChangeHub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// @Summary     Task change feed
// @Description Upgrades to a WebSocket that receives the caller's task change events.
// @Description Incoming frames are read only to detect disconnects.
// @Tags        Realtime
// @Param       token  query  string  false  "access token when headers cannot be set"
// @Success     101  {object}  models.ChangeEvent
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /realtime/tasks [get]
func (h *RealtimeHandler) Tasks(c *gin.Context) {
	userID := getUserID(c)
	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Printf("[realtime][upgrade][err] userID=%s: %v", userID, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "websocket upgrade required"})
		return
	}
	sub := h.hub.Register(userID, conn)
	defer h.hub.Unregister(sub)

	for {
		var discard map[string]interface{}
		if err := conn.ReadJSON(&discard); err != nil {
			log.Printf("[realtime][closed] userID=%s: %v", userID, err)
			return
		}
	}
}
