package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/platform/metrics"
)

// RelayChannel is the Redis pub/sub channel shared by every server instance.
const RelayChannel = "clinic:live"

// Envelope addresses a message to a topic on the relay.
type Envelope struct {
	Topic   string  `json:"topic"`
	Message Message `json:"message"`
}

// Relay publishes through Redis so that a message raised on one instance
// reaches clients connected to any instance. Run delivers what arrives to
// the local hub.
type Relay struct {
	client  redis.UniversalClient
	hub     *Hub
	channel string
	logger  zerolog.Logger
}

func NewRelay(client redis.UniversalClient, hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{client: client, hub: hub, channel: RelayChannel, logger: logger}
}

func (r *Relay) Publish(ctx context.Context, topic string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(Envelope{Topic: topic, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		metrics.IncrementRelayError("publish")
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	metrics.IncrementLiveMessage(msg.Type)
	return nil
}

// Run subscribes to the relay channel and blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Msg("live relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decodeEnvelope([]byte(m.Payload))
			if err != nil {
				metrics.IncrementRelayError("decode")
				r.logger.Warn().Err(err).Msg("discarding relay payload")
				continue
			}
			r.hub.Broadcast(env.Topic, env.Message)
		}
	}
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Topic == "" || env.Message.Type == "" {
		return Envelope{}, fmt.Errorf("envelope without topic or type")
	}
	return env, nil
}
