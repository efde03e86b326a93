package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stockchart/internal/logger"
	"stockchart/internal/quote"
	"stockchart/internal/view"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 16
)

// Message is what WebSocket clients receive: the full view state.
type Message struct {
	Type string        `json:"type"`
	Data view.Snapshot `json:"data"`
}

// Hub fans the current view state out to WebSocket clients. It sends the
// state on connect, on every pipeline publication and on Notify.
type Hub struct {
	snapshot func() view.Snapshot
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	notify     chan struct{}
	done       chan struct{}
	clients    map[*client]struct{}
}

func NewHub(snapshot func() view.Snapshot, log *zap.SugaredLogger) *Hub {
	return &Hub{
		snapshot: snapshot,
		log:      logger.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Notify schedules a push of the current state. It never blocks.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run is the hub loop. It returns when ctx is done or states is closed,
// disconnecting every client.
func (h *Hub) Run(ctx context.Context, states <-chan quote.FetchState) error {
	defer func() {
		close(h.done)
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			c.send <- h.message()
			h.log.Debugw("websocket client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Debugw("websocket client disconnected", "clients", len(h.clients))
			}

		case _, ok := <-states:
			if !ok {
				return nil
			}
			h.broadcast(h.message())

		case <-h.notify:
			h.broadcast(h.message())
		}
	}
}

func (h *Hub) message() Message {
	return Message{Type: "state", Data: h.snapshot()}
}

func (h *Hub) broadcast(m Message) {
	for c := range h.clients {
		select {
		case c.send <- m:
		default:
			// Too slow; drop it rather than block the loop.
			delete(h.clients, c)
			close(c.send)
			h.log.Warnw("dropping slow websocket client")
		}
	}
}

func (h *Hub) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Infow("websocket upgrade failed", "error", err.Error())
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan Message, sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// readPump discards client messages and keeps the read deadline alive.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Infow("websocket read error", "error", err.Error())
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				c.hub.log.Infow("websocket write error", "error", err.Error())
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
