package gateway

import (
	"context"
	"log/slog"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"trading-analyticsv1/internal/marketdata/redisfeed"
)

// PubSubRouter relays reports published on Redis (report:{symbol}) to the
// hub's websocket clients, so one scheduler can feed many gateways.
type PubSubRouter struct {
	hub *Hub
	rdb *goredis.Client
}

// NewPubSubRouter creates a router feeding hub from rdb.
func NewPubSubRouter(hub *Hub, rdb *goredis.Client) *PubSubRouter {
	return &PubSubRouter{hub: hub, rdb: rdb}
}

// Run subscribes to every report channel. Blocks until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	pattern := redisfeed.ReportChannel("*")
	pubsub := r.rdb.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	slog.Info("subscribed to report channels", "component", "gateway", "pattern", pattern)

	prefix := redisfeed.ReportChannel("")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			symbol := strings.TrimPrefix(msg.Channel, prefix)
			if symbol == "" {
				continue
			}
			r.hub.Broadcast(symbol, msg.Payload)
		}
	}
}
