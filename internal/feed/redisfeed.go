package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
)

const redisChannelPrefix = "bookmarks:changes:"

// RedisFeed is a Bus that routes published events through Redis pub/sub so
// that subscribers on every instance of the service see them. Local delivery
// still happens through the wrapped Hub; Publish only writes to Redis, and
// the Run loop feeds received messages back into the Hub.
type RedisFeed struct {
	client *redis.Client
	hub    *Hub
}

// NewRedisFeed wraps hub with a Redis transport using the given client.
func NewRedisFeed(client *redis.Client, hub *Hub) *RedisFeed {
	return &RedisFeed{
		client: client,
		hub:    hub,
	}
}

// Publish sends the event to the owner's Redis channel. Delivery failures are
// logged, not returned: the feed is advisory and the authoritative state is
// always one List call away.
func (f *RedisFeed) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Debugln("cannot marshal change feed event", "error", err)
		return
	}

	if err := f.client.Publish(ctx, redisChannelPrefix+event.Owner, payload).Err(); err != nil {
		logger.Log.Warnln("cannot publish change feed event to redis", "error", err)
	}
}

// Subscribe registers a local stream for the given owner.
func (f *RedisFeed) Subscribe(ownerID string) (<-chan Event, func()) {
	return f.hub.Subscribe(ownerID)
}

// Run starts the Redis subscription loop in a background goroutine.
// It stops when ctx is cancelled.
func (f *RedisFeed) Run(ctx context.Context) {
	pubsub := f.client.PSubscribe(ctx, redisChannelPrefix+"*")

	go func() {
		defer func() {
			_ = pubsub.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-pubsub.Channel():
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
					logger.Log.Debugln("skipping malformed redis feed payload", "payload", message.Payload)
					continue
				}

				f.hub.Publish(ctx, event)
			}
		}
	}()
}
