// Package notifier publishes ingestion lifecycle envelopes on a Redis
// channel so other services can react to new events. Publishing is best
// effort; a nil Notifier is a valid no-op.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Envelope is the message published for every ingestion event.
type Envelope struct {
	EventID   string                 `json:"event_id"`
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Payload   map[string]interface{} `json:"payload"`
}

type Notifier struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// New connects to Redis and returns a notifier, or nil when addr is empty
// or the server is unreachable. Callers may use a nil notifier freely.
func New(addr string, db int, channel string, log zerolog.Logger) *Notifier {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, notifications disabled")
		client.Close()
		return nil
	}

	log.Info().Str("addr", addr).Str("channel", channel).Msg("Connected to Redis")
	return &Notifier{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Publish sends an envelope of the given type. Failures are logged, not
// returned; ingestion must not depend on the notifier being up.
func (n *Notifier) Publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if n == nil {
		return
	}

	envelope := Envelope{
		EventID:   uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0",
		Payload:   payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		n.log.Error().Err(err).Msg("Failed to marshal notification envelope")
		return
	}

	if err := n.client.Publish(ctx, n.channel, string(data)).Err(); err != nil {
		n.log.Error().Err(err).Str("channel", n.channel).Msg("Failed to publish notification")
		return
	}

	n.log.Debug().Str("channel", n.channel).Str("type", eventType).Msg("Published notification")
}

// Close releases the Redis connection.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.client.Close()
}
