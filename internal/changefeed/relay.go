package changefeed

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay publishes local changes to a Redis channel and replays changes
// published by other instances into the local hub, so a stream served by one
// replica sees commits made on another.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	origin  string
	log     *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		origin:  uuid.NewString(),
		log:     log.Named("changefeed.relay"),
	}
}

func (r *RedisRelay) Notify(ctx context.Context, change Change) {
	change.Origin = r.origin
	r.hub.Publish(change)

	payload, err := json.Marshal(change)
	if err != nil {
		r.log.Warn("encode change failed", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Warn("publish change failed", zap.String("table", change.Table), zap.Error(err))
	}
}

// Run consumes the channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		r.log.Warn("decode change failed", zap.Error(err))
		return
	}
	if change.Origin == r.origin {
		return
	}
	r.hub.Publish(change)
}
