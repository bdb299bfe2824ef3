package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/domain/interfaces"
)

var _ interfaces.EventBroadcaster = (*WsHub)(nil)

// WsHub fans wallet events out to the owner's connected clients. It
// implements interfaces.EventBroadcaster.
type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Events     chan *domain.WalletEvent
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	UserID string
	Conn   *websocket.Conn
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Events:     make(chan *domain.WalletEvent, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.UserID] == nil {
				h.Clients[client.UserID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.UserID][client.Conn] = true
			h.Logger.Info().
				Str("user_id", client.UserID).
				Int("connection_count", len(h.Clients[client.UserID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.UserID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.UserID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("user_id", client.UserID).
					Int("connection_count", len(clients)).
					Msg("WebSocket client unregistered")
			}

		case event := <-h.Events:
			clients, ok := h.Clients[event.UserID]
			if !ok || event.UserID == "" {
				continue
			}
			for conn := range clients {
				if err := conn.WriteJSON(event); err != nil {
					h.Logger.Err(err).
						Str("user_id", event.UserID).
						Str("kind", string(event.Kind)).
						Msg("Failed to send WebSocket message")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, event.UserID)
			}
		}
	}
}

// Broadcast queues the event for delivery. Events are dropped when the hub
// is backed up; clients refresh over HTTP on reconnect anyway.
func (h *WsHub) Broadcast(event *domain.WalletEvent) {
	select {
	case h.Events <- event:
	default:
		h.Logger.Warn().
			Str("user_id", event.UserID).
			Str("kind", string(event.Kind)).
			Msg("Event channel full, dropping wallet event")
	}
}
