package main

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexandrut83/rigdash/dashboard"
)

const (
	pushWriteWait  = 10 * time.Second
	pushPongWait   = 60 * time.Second
	pushPingPeriod = pushPongWait * 9 / 10
)

// pushMessage is sent to every browser after a state change
type pushMessage struct {
	Rigs     string                 `json:"rigs"`
	Command  dashboard.CommandModal `json:"command"`
	Selected int                    `json:"selected"`
}

// pushHub fans rendered views out to connected browsers
type pushHub struct {
	mu       sync.RWMutex
	ctrl     *dashboard.Controller
	clients  map[*pushClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// pushClient is one connected browser
type pushClient struct {
	conn *websocket.Conn
	send chan pushMessage
	hub  *pushHub
}

func newPushHub(ctrl *dashboard.Controller, logger *zap.Logger) *pushHub {
	return &pushHub{
		ctrl:    ctrl,
		clients: make(map[*pushClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: logger,
	}
}

// Run broadcasts the current view after every controller update
func (h *pushHub) Run(ctx context.Context) error {
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case <-updates:
			if h.count() == 0 {
				continue
			}
			msg, err := h.message()
			if err != nil {
				h.logger.Error("Failed to render rigs fragment", zap.Error(err))
				continue
			}
			h.broadcast(msg)
		}
	}
}

func (h *pushHub) message() (pushMessage, error) {
	v := h.ctrl.View()
	html, err := dashboard.RigsHTML(v)
	if err != nil {
		return pushMessage{}, err
	}
	return pushMessage{Rigs: html, Command: v.Command, Selected: v.SelectedCount}, nil
}

func (h *pushHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues msg for every client. A client whose queue is full is
// dropped; the browser reconnects and gets a fresh view.
func (h *pushHub) broadcast(msg pushMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Dropping slow browser", zap.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// register adds a client unless the hub has shut down
func (h *pushHub) register(c *pushClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *pushHub) remove(c *pushClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *pushHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Handle upgrades a browser connection and sends it the current view
func (h *pushHub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &pushClient{conn: conn, send: make(chan pushMessage, 8), hub: h}
	msg, err := h.message()
	if err != nil {
		h.logger.Error("Failed to render rigs fragment", zap.Error(err))
		conn.Close()
		return
	}
	client.send <- msg

	if !h.register(client) {
		h.logger.Debug("Browser refused after shutdown", zap.String("remote", conn.RemoteAddr().String()))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(pushWriteWait))
		conn.Close()
		return
	}
	h.logger.Debug("Browser connected", zap.String("remote", conn.RemoteAddr().String()))

	go client.writePump()
	client.readPump()
}

// readPump discards browser messages and notices disconnects
func (c *pushClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pushPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pushPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Browser read failed", zap.Error(err))
			}
			return
		}
	}
}

func (c *pushClient) writePump() {
	ticker := time.NewTicker(pushPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debug("Browser write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(pushWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
