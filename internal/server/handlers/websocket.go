package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/server/websocket"
	"github.com/vieclance/wls/pkg/config"
)

// WebSocketHandler upgrades authenticated wallet event subscriptions.
type WebSocketHandler struct {
	hub      *websocket.WsHub
	upgrader gws.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandler(hub *websocket.WsHub, cfg config.WebSocketConfig, logger zerolog.Logger) *WebSocketHandler {
	readBuf, writeBuf := cfg.ReadBufferSize, cfg.WriteBufferSize
	if readBuf == 0 {
		readBuf = 1024
	}
	if writeBuf == 0 {
		writeBuf = 1024
	}
	upgrader := gws.Upgrader{
		ReadBufferSize:  readBuf,
		WriteBufferSize: writeBuf,
	}
	if !cfg.CheckOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to upgrade to WebSocket"})
		return
	}

	client := &websocket.WsClient{UserID: userID, Conn: conn}
	h.hub.Register <- client

	// The subscription is one-way; drain client frames until the peer
	// hangs up so ping/pong keeps working.
	go func() {
		defer func() {
			h.hub.Unregister <- client
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
