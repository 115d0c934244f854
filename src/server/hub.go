package server

import (
	"net/http"

	"price-scout/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

type subscription struct {
	client *Client
	runID  string
}

// runHub owns the client set. It exits when the server stops.
func (s *APIServer) runHub() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(int64(len(s.clients)))

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; ok {
				sub.client.runID = sub.runID
			}

		case event := <-s.broadcast:
			for client := range s.clients {
				if client.runID != "" && client.runID != event.RunID {
					continue
				}
				select {
				case client.send <- event:
				default:
					// Slow consumer; drop it so the hub never blocks.
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.connections.Store(int64(len(s.clients)))
		}
	}
}

// -----------------------------------------------------------------------------

// Publish queues a feed event for every subscriber of its run. Events are
// dropped when the queue is full or the server has stopped.
func (s *APIServer) Publish(event models.MFeedEvent) {
	select {
	case s.broadcast <- event:
	case <-s.done:
	default:
		s.Logger.Warning("Feed queue full, dropping %s event for run %s", event.Type, event.RunID)
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) registerClient(c *Client) bool {
	select {
	case s.register <- c:
		return true
	case <-s.done:
		return false
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) unregisterClient(c *Client) {
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:   s,
		conn:  conn,
		send:  make(chan models.MFeedEvent, sendBuffer),
		runID: c.Query("run_id"),
	}
	if !s.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) handleClientCommand(client *Client, cmd models.MSubscribeCommand) {
	if cmd.Command != "subscribe" {
		s.Logger.Debug("Ignoring websocket command %q", cmd.Command)
		return
	}

	select {
	case s.subscribe <- subscription{client: client, runID: cmd.RunID}:
	case <-s.done:
	}
}
