package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one websocket peer following a single symbol.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu     sync.RWMutex
	symbol string
}

// Symbol returns the symbol the client follows.
func (c *Client) Symbol() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbol
}

func (c *Client) setSymbol(s string) {
	c.mu.Lock()
	c.symbol = s
	c.mu.Unlock()
}

func (c *Client) sendInitial(ctx context.Context) {
	c.hub.sendTo(c, c.hub.initial(ctx, c.Symbol()))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// clientMsg is what a peer may send: a ping, or a switch to another symbol.
type clientMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Ping   int64  `json:"ping"`
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		slog.Info("ws client disconnected", "component", "gateway", "symbol", c.Symbol())
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMsg
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}

		switch {
		case msg.Ping > 0:
			pong, _ := json.Marshal(map[string]any{
				"type":      "pong",
				"ping":      msg.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			c.hub.sendTo(c, pong)
		case msg.Type == "subscribe":
			sym, ok := normalizeSymbol(msg.Symbol)
			if !ok {
				c.sendError("invalid symbol")
				continue
			}
			c.setSymbol(sym)
			go c.sendInitial(ctx)
		}
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": message})
	c.hub.sendTo(c, data)
}

// normalizeSymbol upper-cases s and accepts 1-20 letters or digits.
func normalizeSymbol(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || len(s) > 20 {
		return "", false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", false
		}
	}
	return s, true
}
