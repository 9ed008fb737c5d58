package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/queue"
	"github.com/keepsakehq/keepsake/core/internal/syncer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local clients only.
		return strings.HasPrefix(r.Host, "localhost") || strings.HasPrefix(r.Host, "127.0.0.1")
	},
}

// WSClient represents one WebSocket client connection.
type WSClient struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *WSHub
	subscriptions map[string]bool
}

// WSHub maintains active client connections and broadcasts messages.
type WSHub struct {
	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

const (
	// Queue events mirror queue.ChangeEvent kinds.
	EventQueueAdded   = "queue.added"
	EventQueueUpdated = "queue.updated"
	EventQueueRemoved = "queue.removed"

	// Sync pass events.
	EventSyncStarted       = "sync.started"
	EventSyncItemCompleted = "sync.item_completed"
	EventSyncCompleted     = "sync.completed"
	EventSyncFailed        = "sync.failed"

	// Connectivity edge events.
	EventConnectivityChanged = "connectivity.changed"
)

// NewWSHub creates a WebSocket hub and starts its dispatch loop.
func NewWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client connected", map[string]interface{}{
				"client_id": client.id,
				"total":     total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client disconnected", map[string]interface{}{
				"client_id": client.id,
				"total":     total,
			})

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, drop the client.
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *WSHub) Broadcast(messageType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		logging.Error("Failed to marshal WebSocket message", err, map[string]interface{}{
			"type": messageType,
		})
		return
	}

	h.broadcast <- bytes
}

// BroadcastQueueChange relays a queue mutation to clients so open feeds can
// refresh without polling.
func (h *WSHub) BroadcastQueueChange(ev queue.ChangeEvent) {
	h.Broadcast("queue."+string(ev.Kind), map[string]interface{}{
		"local_id":    ev.LocalID,
		"memory_type": string(ev.MemoryType),
	})
}

// BroadcastSyncStarted notifies clients that a sync pass began.
func (h *WSHub) BroadcastSyncStarted(pending int) {
	h.Broadcast(EventSyncStarted, map[string]interface{}{
		"pending": pending,
	})
}

// BroadcastSyncItemCompleted notifies clients that one queued memory reached
// the server and left the queue.
func (h *WSHub) BroadcastSyncItemCompleted(ev syncer.CompletionEvent) {
	h.Broadcast(EventSyncItemCompleted, map[string]interface{}{
		"local_id":    ev.LocalID,
		"server_id":   ev.ServerID,
		"memory_type": string(ev.MemoryType),
	})
}

// BroadcastSyncCompleted notifies clients that a sync pass finished.
func (h *WSHub) BroadcastSyncCompleted(remaining int, failed int) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"remaining": remaining,
		"failed":    failed,
	})
}

// BroadcastSyncFailed notifies clients that a sync pass could not run.
func (h *WSHub) BroadcastSyncFailed(errorCode string) {
	h.Broadcast(EventSyncFailed, map[string]interface{}{
		"error_code": errorCode,
	})
}

// BroadcastConnectivityChanged notifies clients of an online/offline edge.
func (h *WSHub) BroadcastConnectivityChanged(online bool) {
	h.Broadcast(EventConnectivityChanged, map[string]interface{}{
		"online": online,
	})
}

// ClientCount reports connected clients. Used by the health endpoint.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("WebSocket read error", map[string]interface{}{
					"client_id": c.id,
					"error":     err.Error(),
				})
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		action, ok := msg["action"].(string)
		if !ok {
			continue
		}

		switch action {
		case "subscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						c.subscriptions[eventStr] = true
					}
				}
				c.sendAck("subscribe_ack", events)
			}

		case "unsubscribe":
			if events, ok := msg["events"].([]interface{}); ok {
				for _, e := range events {
					if eventStr, ok := e.(string); ok {
						delete(c.subscriptions, eventStr)
					}
				}
			}

		case "ping":
			c.sendPong()
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) sendAck(action string, events []interface{}) {
	envelope := map[string]interface{}{
		"action":     action,
		"subscribed": events,
		"timestamp":  time.Now().Unix(),
	}

	bytes, _ := json.Marshal(envelope)
	c.send <- bytes
}

func (c *WSClient) sendPong() {
	envelope := map[string]interface{}{
		"action":    "pong",
		"timestamp": time.Now().Unix(),
	}

	bytes, _ := json.Marshal(envelope)
	c.send <- bytes
}

// HandleWebSocket upgrades connections and registers them with the hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("WebSocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		clientID := time.Now().Format("20060102150405.000000") + "-" + r.RemoteAddr

		client := &WSClient{
			id:            clientID,
			conn:          conn,
			send:          make(chan []byte, 256),
			hub:           hub,
			subscriptions: make(map[string]bool),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
