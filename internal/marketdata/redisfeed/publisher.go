package redisfeed

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// Publisher pushes rendered reports to subscribers and keeps the latest one.
//
//	report:{symbol}         pubsub channel
//	report:latest:{symbol}  string with TTL
type Publisher struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewPublisher creates a publisher. ttl <= 0 uses 30 minutes.
func NewPublisher(client *goredis.Client, ttl time.Duration) *Publisher {
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}
	return &Publisher{client: client, ttl: ttl}
}

// ReportChannel is the pubsub channel for symbol.
func ReportChannel(symbol string) string { return "report:" + symbol }

// LatestReportKey holds the last published report for symbol.
func LatestReportKey(symbol string) string { return "report:latest:" + symbol }

// Publish sets the latest report and publishes it in one round trip.
func (p *Publisher) Publish(ctx context.Context, symbol, report string) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, LatestReportKey(symbol), report, p.ttl)
	pipe.Publish(ctx, ReportChannel(symbol), report)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish report %s: %w", symbol, err)
	}
	return nil
}

// Latest returns the last published report, or "" when none is live.
func (p *Publisher) Latest(ctx context.Context, symbol string) (string, error) {
	s, err := p.client.Get(ctx, LatestReportKey(symbol)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return s, err
}
