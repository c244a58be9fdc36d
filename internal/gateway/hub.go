package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReportSource renders the composite report for a symbol.
// *report.Aggregator implements it.
type ReportSource interface {
	GetReport(ctx context.Context, symbol string) string
}

// Recorder receives websocket counters. *metrics.Metrics implements it.
type Recorder interface {
	SetWSClients(n int)
	Published()
}

type nopRecorder struct{}

func (nopRecorder) SetWSClients(int) {}
func (nopRecorder) Published()       {}

// HubOptions configures a Hub.
type HubOptions struct {
	Interval time.Duration // report push period; default 30s
	Recorder Recorder
}

// Hub manages websocket clients, each following one symbol, and pushes
// fresh reports to them. Reports arrive from the periodic refresh in Run
// or from a PubSubRouter.
type Hub struct {
	src      ReportSource
	interval time.Duration
	rec      Recorder

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry // by symbol
	seq     int64
}

type latestEntry struct {
	Data []byte
	TS   time.Time
}

// Envelope is the websocket message carrying a report.
type Envelope struct {
	Type    string    `json:"type"`
	Symbol  string    `json:"symbol"`
	Report  string    `json:"report"`
	TS      time.Time `json:"ts"`
	Seq     int64     `json:"seq"`
	Initial bool      `json:"initial,omitempty"`
}

// NewHub creates a Hub rendering reports from src.
func NewHub(src ReportSource, opts HubOptions) *Hub {
	h := &Hub{
		src:      src,
		interval: opts.Interval,
		rec:      opts.Recorder,
		clients:  make(map[*Client]bool),
		latest:   make(map[string]latestEntry),
	}
	if h.interval <= 0 {
		h.interval = 30 * time.Second
	}
	if h.rec == nil {
		h.rec = nopRecorder{}
	}
	return h
}

// Run refreshes every followed symbol each interval. Blocks until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Refresh renders and broadcasts a report for every followed symbol.
func (h *Hub) Refresh(ctx context.Context) {
	for _, sym := range h.Symbols() {
		h.Broadcast(sym, h.src.GetReport(ctx, sym))
	}
}

// Symbols returns the distinct symbols followed by connected clients.
func (h *Hub) Symbols() []string {
	h.mu.RLock()
	seen := make(map[string]bool)
	for c := range h.clients {
		seen[c.Symbol()] = true
	}
	h.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Broadcast sends report to every client following symbol and keeps it as
// the symbol's latest.
func (h *Hub) Broadcast(symbol, report string) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	data, err := json.Marshal(Envelope{Type: "report", Symbol: symbol, Report: report, TS: now, Seq: h.seq})
	if err != nil {
		h.mu.Unlock()
		slog.Error("encode report envelope", "component", "gateway", "symbol", symbol, "error", err)
		return
	}
	h.latest[symbol] = latestEntry{Data: data, TS: now}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.Symbol() != symbol {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.rec.Published()
}

// Register attaches a websocket connection following symbol.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn, symbol string) *Client {
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 16),
		hub:    h,
		symbol: symbol,
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.rec.SetWSClients(count)

	slog.Info("ws client connected", "component", "gateway", "symbol", symbol, "clients", count)

	go c.sendInitial(ctx)
	go c.writePump()
	go c.readPump(ctx)
	return c
}

// RemoveClient detaches c and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()
	h.rec.SetWSClients(count)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo queues data for c if it is still registered.
func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// initial returns the latest envelope for symbol, rendering one when none
// has been broadcast yet.
func (h *Hub) initial(ctx context.Context, symbol string) []byte {
	h.mu.RLock()
	entry, ok := h.latest[symbol]
	h.mu.RUnlock()
	if ok {
		var env Envelope
		if json.Unmarshal(entry.Data, &env) == nil {
			env.Initial = true
			if data, err := json.Marshal(env); err == nil {
				return data
			}
		}
		return entry.Data
	}

	report := h.src.GetReport(ctx, symbol)
	data, _ := json.Marshal(Envelope{
		Type:    "report",
		Symbol:  symbol,
		Report:  report,
		TS:      time.Now().UTC(),
		Initial: true,
	})
	return data
}
